package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/telegram-stats-bot/internal/models"
	"google.golang.org/api/option"
)

// ErrNotEnoughMessages is returned when a user has fewer stored
// messages than MinMessages
var ErrNotEnoughMessages = errors.New("not enough messages for analysis")

// Client generates communication style reports from message histories
// using Gemini
type Client struct {
	apiKey      string
	model       string
	timeout     time.Duration
	logger      zerolog.Logger
	genaiClient *genai.Client
	mu          sync.Mutex
}

// NewClient creates a new analysis client
func NewClient(apiKey, model string, timeout int, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		timeout: time.Duration(timeout) * time.Second,
		logger:  logger.With().Str("component", "analyze").Logger(),
	}
}

// getClient returns or creates a genai client (thread-safe)
func (c *Client) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		return c.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c.genaiClient = client
	c.logger.Info().Msg("Gemini client created and cached")
	return c.genaiClient, nil
}

// Close closes the analysis client and releases resources
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		err := c.genaiClient.Close()
		c.genaiClient = nil
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		c.logger.Info().Msg("Gemini client closed")
	}
	return nil
}

// AnalyzeUser sends a user's message history to Gemini and returns the
// free-text style report. Requires at least MinMessages messages.
func (c *Client) AnalyzeUser(ctx context.Context, messages []models.UserMessage) (*models.AnalyzeReport, error) {
	if len(messages) < MinMessages {
		return nil, ErrNotEnoughMessages
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(messages)

	c.logger.Debug().
		Int("message_count", len(messages)).
		Str("model", c.model).
		Msg("Sending analysis request to LLM")

	model := client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate analysis: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Int("message_count", len(messages)).
		Int("analysis_length", len([]rune(text))).
		Msg("Analysis generated")

	return &models.AnalyzeReport{
		ReportID:      uuid.NewString(),
		Analysis:      text,
		MessagesCount: len(messages),
	}, nil
}

// extractText concatenates the text parts of the first candidate
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from LLM")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in response")
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}

	text := builder.String()
	if text == "" {
		return "", fmt.Errorf("empty analysis text in response")
	}

	return text, nil
}
