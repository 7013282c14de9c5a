package analyze

import (
	"context"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telegram-stats-bot/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	messages := []models.UserMessage{
		{Text: "привет всем", CreatedAt: time.Date(2024, 6, 15, 23, 45, 0, 0, time.UTC)},
		{Text: "как дела?", CreatedAt: time.Date(2024, 6, 15, 9, 5, 0, 0, time.UTC)},
	}

	prompt := buildPrompt(messages)

	assert.Contains(t, prompt, "1. [2024-06-15 23:45] привет всем")
	assert.Contains(t, prompt, "2. [2024-06-15 09:05] как дела?")
	assert.Contains(t, prompt, "Проанализируй")
	assert.Contains(t, prompt, "психологический портрет")
}

func TestAnalyzeUserRequiresMinimumMessages(t *testing.T) {
	client := NewClient("test-key", "gemini-1.5-flash", 30, zerolog.Nop())

	messages := make([]models.UserMessage, MinMessages-1)
	for i := range messages {
		messages[i] = models.UserMessage{Text: "msg", CreatedAt: time.Now()}
	}

	// Rejected before any network call is attempted
	_, err := client.AnalyzeUser(context.Background(), messages)
	assert.ErrorIs(t, err, ErrNotEnoughMessages)

	_, err = client.AnalyzeUser(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotEnoughMessages)
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("Общий стиль: "), genai.Text("дружелюбный")},
				},
			},
		},
	}

	text, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Общий стиль: дружелюбный", text)
}

func TestExtractTextEmptyResponses(t *testing.T) {
	_, err := extractText(nil)
	assert.Error(t, err)

	_, err = extractText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = extractText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	assert.Error(t, err)
}
