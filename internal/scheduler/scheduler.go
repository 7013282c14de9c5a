package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// digestSpec fires every Monday at 09:00 in the configured timezone
const digestSpec = "0 9 * * 1"

// DigestFunc posts the weekly digest to one chat
type DigestFunc func(ctx context.Context, chatID int64) error

// Scheduler runs the weekly digest job for every allowed chat
type Scheduler struct {
	cron     *cron.Cron
	chatIDs  []int64
	digest   DigestFunc
	logger   zerolog.Logger
	timezone *time.Location
}

// New creates a scheduler posting digests to the given chats
func New(timezone string, chatIDs []int64, digest DigestFunc, logger zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		chatIDs:  chatIDs,
		digest:   digest,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		timezone: loc,
	}, nil
}

// Start schedules the digest job and blocks until the context is
// cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	entryID, err := s.cron.AddFunc(digestSpec, func() {
		s.runDigests(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule digest job: %w", err)
	}

	s.cron.Start()

	s.logger.Info().
		Str("spec", digestSpec).
		Time("next_run", s.cron.Entry(entryID).Next).
		Int("chat_count", len(s.chatIDs)).
		Msg("Scheduler started")

	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// Stop stops the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// runDigests posts the digest to each allowed chat
func (s *Scheduler) runDigests(ctx context.Context) {
	s.logger.Info().
		Int("chat_count", len(s.chatIDs)).
		Msg("Running weekly digests")

	for _, chatID := range s.chatIDs {
		// Separate goroutine per chat so one slow chat doesn't block others
		go func(cid int64) {
			if err := s.digest(ctx, cid); err != nil {
				s.logger.Error().
					Err(err).
					Int64("chat_id", cid).
					Msg("Failed to post weekly digest")
				return
			}
			s.logger.Info().
				Int64("chat_id", cid).
				Msg("Weekly digest posted")
		}(chatID)
	}
}
