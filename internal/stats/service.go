package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/telegram-stats-bot/internal/models"
)

// Store is the read-only aggregation contract the message store must
// satisfy. All queries are set aggregations bounded by an optional
// creation-time lower bound; unknown identities yield empty results.
type Store interface {
	TopUsers(ctx context.Context, chatID int64, since *time.Time, limit int) ([]models.TopUser, error)
	UsersPage(ctx context.Context, chatID int64, since *time.Time, limit, offset int) ([]models.TopUser, error)
	TotalMessageCount(ctx context.Context, chatID int64, since *time.Time) (int64, error)
	UniqueUserCount(ctx context.Context, chatID int64, since *time.Time) (int64, error)
	UserMessageCount(ctx context.Context, chatID, userID int64, since *time.Time) (int64, error)
	UserRank(ctx context.Context, chatID, userID int64, since *time.Time) (int64, error)
	MostActiveWeekdayForChat(ctx context.Context, chatID int64, since *time.Time) (*models.MostActiveWeekday, error)
	MostActiveWeekdayForUser(ctx context.Context, chatID, userID int64, since *time.Time) (*models.MostActiveWeekday, error)
	FindUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

// Cache is the key-value collaborator memoizing query results.
// Get reports a miss via the boolean; an error is an upstream fault
// and is never treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Service answers statistics requests, memoizing results in the cache
// under deterministic keys. It performs reads only; staleness is
// bounded by the cache TTL since nothing invalidates on write.
type Service struct {
	store    Store
	cache    Cache
	timezone *time.Location
	topLimit int
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a stats service. topLimit bounds the ranking in
// ChatStats; timezone anchors the "today" filter.
func NewService(store Store, cache Cache, timezone string, topLimit int, logger zerolog.Logger) (*Service, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}
	if topLimit <= 0 {
		return nil, fmt.Errorf("top users limit must be positive, got %d", topLimit)
	}

	return &Service{
		store:    store,
		cache:    cache,
		timezone: loc,
		topLimit: topLimit,
		logger:   logger.With().Str("component", "stats").Logger(),
		now:      time.Now,
	}, nil
}

// ChatStats returns the chat dashboard: top users, total message count
// and distinct user count within the filter scope
func (s *Service) ChatStats(ctx context.Context, chatID int64, filter TimeFilter) (*models.ChatStats, error) {
	if !filter.Valid() {
		return nil, ErrUnknownFilter
	}

	key := chatStatsKey(chatID, filter)
	var cached models.ChatStats
	hit, err := s.fromCache(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}

	since := s.lowerBound(filter)

	topUsers, err := s.store.TopUsers(ctx, chatID, since, s.topLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	totalMessages, err := s.store.TotalMessageCount(ctx, chatID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get total message count: %w", err)
	}
	totalUsers, err := s.store.UniqueUserCount(ctx, chatID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique user count: %w", err)
	}

	result := &models.ChatStats{
		TopUsers:      topUsers,
		TotalMessages: totalMessages,
		TotalUsers:    totalUsers,
	}

	if err := s.toCache(ctx, key, result); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64("chat_id", chatID).
		Str("filter", string(filter)).
		Int64("total_messages", totalMessages).
		Msg("Chat stats computed")

	return result, nil
}

// UserStats returns one user's message count and rank within the chat.
// A user with no qualifying messages gets count 0 and rank 0; that is
// an answer, not a fault.
func (s *Service) UserStats(ctx context.Context, chatID, userID int64, filter TimeFilter) (*models.UserStats, error) {
	if !filter.Valid() {
		return nil, ErrUnknownFilter
	}

	key := userStatsKey(chatID, userID, filter)
	var cached models.UserStats
	hit, err := s.fromCache(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}

	user, err := s.store.FindUserByTelegramID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// Unknown identity: zero stats under the platform id
		user = &models.User{TelegramID: userID}
	}

	since := s.lowerBound(filter)

	messageCount, err := s.store.UserMessageCount(ctx, chatID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get user message count: %w", err)
	}
	rank, err := s.store.UserRank(ctx, chatID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get user rank: %w", err)
	}

	result := &models.UserStats{
		User:         *user,
		MessageCount: messageCount,
		Rank:         rank,
	}

	if err := s.toCache(ctx, key, result); err != nil {
		return nil, err
	}

	return result, nil
}

// UsersPage returns one page of the chat ranking, consistent with the
// ordering ChatStats uses so concatenated pages reproduce the full
// ranking (modulo concurrent writes between page fetches).
func (s *Service) UsersPage(ctx context.Context, chatID int64, filter TimeFilter, pageSize, offset int) ([]models.TopUser, error) {
	if !filter.Valid() {
		return nil, ErrUnknownFilter
	}
	if pageSize <= 0 {
		return nil, ErrInvalidLimit
	}
	if offset < 0 {
		return nil, ErrInvalidOffset
	}

	key := usersPageKey(chatID, filter, pageSize, offset)
	var cached []models.TopUser
	hit, err := s.fromCache(ctx, key, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		return cached, nil
	}

	page, err := s.store.UsersPage(ctx, chatID, s.lowerBound(filter), pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get users page: %w", err)
	}

	if err := s.toCache(ctx, key, page); err != nil {
		return nil, err
	}

	return page, nil
}

// weekdayEnvelope distinguishes a cached "no data" answer from a cache
// miss; otherwise an empty scope would be recomputed on every call
type weekdayEnvelope struct {
	Found        bool  `json:"found"`
	Dow          int   `json:"dow"`
	MessageCount int64 `json:"message_count"`
}

// MostActiveWeekdayForChat returns the chat's busiest weekday, or nil
// when the scope has no messages
func (s *Service) MostActiveWeekdayForChat(ctx context.Context, chatID int64, filter TimeFilter) (*models.MostActiveWeekday, error) {
	if !filter.Valid() {
		return nil, ErrUnknownFilter
	}

	return s.cachedWeekday(ctx, activityChatKey(chatID, filter), func() (*models.MostActiveWeekday, error) {
		return s.store.MostActiveWeekdayForChat(ctx, chatID, s.lowerBound(filter))
	})
}

// MostActiveWeekdayForUser returns one user's busiest weekday within
// the chat, or nil when the scope has no messages
func (s *Service) MostActiveWeekdayForUser(ctx context.Context, chatID, userID int64, filter TimeFilter) (*models.MostActiveWeekday, error) {
	if !filter.Valid() {
		return nil, ErrUnknownFilter
	}

	return s.cachedWeekday(ctx, activityUserKey(chatID, userID, filter), func() (*models.MostActiveWeekday, error) {
		return s.store.MostActiveWeekdayForUser(ctx, chatID, userID, s.lowerBound(filter))
	})
}

func (s *Service) cachedWeekday(ctx context.Context, key string, compute func() (*models.MostActiveWeekday, error)) (*models.MostActiveWeekday, error) {
	var envelope weekdayEnvelope
	hit, err := s.fromCache(ctx, key, &envelope)
	if err != nil {
		return nil, err
	}
	if hit {
		if !envelope.Found {
			return nil, nil
		}
		return &models.MostActiveWeekday{Dow: envelope.Dow, MessageCount: envelope.MessageCount}, nil
	}

	weekday, err := compute()
	if err != nil {
		return nil, fmt.Errorf("failed to get most active weekday: %w", err)
	}

	envelope = weekdayEnvelope{Found: weekday != nil}
	if weekday != nil {
		envelope.Dow = weekday.Dow
		envelope.MessageCount = weekday.MessageCount
	}
	if err := s.toCache(ctx, key, envelope); err != nil {
		return nil, err
	}

	return weekday, nil
}

// InvalidateChatStats drops the cached dashboard for one (chat, filter)
// so the next request recomputes from the store
func (s *Service) InvalidateChatStats(ctx context.Context, chatID int64, filter TimeFilter) error {
	if !filter.Valid() {
		return ErrUnknownFilter
	}
	if err := s.cache.Del(ctx, chatStatsKey(chatID, filter)); err != nil {
		return fmt.Errorf("failed to invalidate chat stats: %w", err)
	}
	return nil
}

func (s *Service) lowerBound(filter TimeFilter) *time.Time {
	return filter.LowerBound(s.now().In(s.timezone))
}

func (s *Service) fromCache(ctx context.Context, key string, out any) (bool, error) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// A cache fault is surfaced, not downgraded to a miss
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}

	return true, nil
}

func (s *Service) toCache(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	return s.cache.Set(ctx, key, data)
}
