package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/telegram-stats-bot/internal/analyze"
	"github.com/telegram-stats-bot/internal/models"
	"github.com/telegram-stats-bot/internal/storage"
)

const (
	defaultAnalyzeLimit = 80
	maxAnalyzeLimit     = 200
)

// AnalyzeRequest is the analysis request payload
type AnalyzeRequest struct {
	Username string `json:"username"`
	Limit    int    `json:"limit"`
}

// AnalyzeResponse wraps a generated report
type AnalyzeResponse struct {
	ReportID      string `json:"report_id"`
	Analysis      string `json:"analysis"`
	MessagesCount int    `json:"messages_count"`
}

// ErrorResponse is the error payload for all failure modes
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server is the web-report HTTP API: it reads a user's recent messages
// and forwards them to the analysis client
type Server struct {
	app     *fiber.App
	storage *storage.Client
	analyze *analyze.Client
	logger  zerolog.Logger
}

// NewServer builds the Fiber app and wires the routes
func NewServer(storageClient *storage.Client, analyzeClient *analyze.Client, logger zerolog.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		storage: storageClient,
		analyze: analyzeClient,
		logger:  logger.With().Str("component", "web").Logger(),
	}

	s.app.Get("/health", s.handleHealth)
	s.app.Post("/api/analyze", s.handleAnalyze)

	return s
}

// Listen serves the API on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Web report API listening")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleHealth reports liveness, including database reachability
func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.storage.Ping(c.UserContext()); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "database_unavailable",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// handleAnalyze fetches a user's recent messages and returns the
// generated communication style report
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid_json",
		})
	}

	if req.Username == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "username is required",
		})
	}
	if req.Limit < 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "limit must not be negative",
		})
	}
	if req.Limit == 0 {
		req.Limit = defaultAnalyzeLimit
	}
	if req.Limit > maxAnalyzeLimit {
		req.Limit = maxAnalyzeLimit
	}

	report, err := s.analyzeUser(c.UserContext(), req.Username, req.Limit)
	if err != nil {
		if errors.Is(err, analyze.ErrNotEnoughMessages) {
			return c.Status(http.StatusUnprocessableEntity).JSON(ErrorResponse{
				Error:   "not_enough_messages",
				Message: "слишком мало сообщений для анализа",
			})
		}

		s.logger.Error().
			Err(err).
			Str("username", req.Username).
			Msg("Analysis failed")
		return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
			Error: "analysis_failed",
		})
	}

	s.logger.Info().
		Str("username", req.Username).
		Str("report_id", report.ReportID).
		Int("messages_count", report.MessagesCount).
		Msg("Analysis report generated")

	return c.JSON(AnalyzeResponse{
		ReportID:      report.ReportID,
		Analysis:      report.Analysis,
		MessagesCount: report.MessagesCount,
	})
}

func (s *Server) analyzeUser(ctx context.Context, username string, limit int) (*models.AnalyzeReport, error) {
	messages, err := s.storage.RecentMessagesByUsername(ctx, username, limit)
	if err != nil {
		return nil, err
	}

	return s.analyze.AnalyzeUser(ctx, messages)
}
