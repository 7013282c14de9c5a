package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/telegram-stats-bot/internal/models"
)

// Aggregation queries over the message set.
//
// Scope is always (chat[, user], lower time bound). A nil since means no
// lower bound. Unknown chats and users produce empty/zero results, never
// an error. Ordering ties are broken by ascending telegram_id so that
// paginated listings stay stable.

// TopUsers returns the most active users of a chat, message count
// descending, bounded to limit rows
func (c *Client) TopUsers(ctx context.Context, chatID int64, since *time.Time, limit int) ([]models.TopUser, error) {
	return c.queryTopUsers(ctx, chatID, since, limit, 0)
}

// UsersPage returns one page of the same ranking TopUsers produces
func (c *Client) UsersPage(ctx context.Context, chatID int64, since *time.Time, limit, offset int) ([]models.TopUser, error) {
	return c.queryTopUsers(ctx, chatID, since, limit, offset)
}

func (c *Client) queryTopUsers(ctx context.Context, chatID int64, since *time.Time, limit, offset int) ([]models.TopUser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	where, args, argIndex := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT u.telegram_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), COUNT(m.id) AS message_count
	FROM messages m
	JOIN users u ON u.id = m.user_id
	JOIN chats c ON c.id = m.chat_id
	WHERE %s
	GROUP BY u.telegram_id, u.username, u.first_name
	ORDER BY message_count DESC, u.telegram_id ASC
	LIMIT $%d OFFSET $%d`, where, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var users []models.TopUser
	for rows.Next() {
		var u models.TopUser
		if err := rows.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan top user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top users: %w", err)
	}

	return users, nil
}

// TotalMessageCount returns the number of messages in scope
func (c *Client) TotalMessageCount(ctx context.Context, chatID int64, since *time.Time) (int64, error) {
	where, args, _ := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT COUNT(m.id)
	FROM messages m
	JOIN chats c ON c.id = m.chat_id
	WHERE %s`, where)

	return c.queryCount(ctx, query, args...)
}

// UniqueUserCount returns the number of distinct users with at least
// one message in scope
func (c *Client) UniqueUserCount(ctx context.Context, chatID int64, since *time.Time) (int64, error) {
	where, args, _ := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT COUNT(DISTINCT m.user_id)
	FROM messages m
	JOIN chats c ON c.id = m.chat_id
	WHERE %s`, where)

	return c.queryCount(ctx, query, args...)
}

// UserMessageCount returns one user's message count in scope
func (c *Client) UserMessageCount(ctx context.Context, chatID, userID int64, since *time.Time) (int64, error) {
	where, args, argIndex := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT COUNT(m.id)
	FROM messages m
	JOIN users u ON u.id = m.user_id
	JOIN chats c ON c.id = m.chat_id
	WHERE %s AND u.telegram_id = $%d`, where, argIndex)
	args = append(args, userID)

	return c.queryCount(ctx, query, args...)
}

// UserRank returns the user's 1-based rank by message count in scope.
// Ties share a rank (two users tied at the top both rank 1, the next
// user ranks 3). Returns 0 when the user has no messages in scope.
func (c *Client) UserRank(ctx context.Context, chatID, userID int64, since *time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	where, args, argIndex := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT ranked.rnk FROM (
		SELECT u.telegram_id AS telegram_id, RANK() OVER (ORDER BY COUNT(m.id) DESC) AS rnk
		FROM messages m
		JOIN users u ON u.id = m.user_id
		JOIN chats c ON c.id = m.chat_id
		WHERE %s
		GROUP BY u.telegram_id
	) ranked
	WHERE ranked.telegram_id = $%d`, where, argIndex)
	args = append(args, userID)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query user rank: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		// No qualifying messages: sentinel rank 0, not a fault
		return 0, rows.Err()
	}

	var rank int64
	if err := rows.Scan(&rank); err != nil {
		return 0, fmt.Errorf("failed to scan user rank: %w", err)
	}

	return rank, rows.Err()
}

// MostActiveWeekdayForChat returns the busiest day of week in a chat,
// or nil when the scope has no messages. Ties go to the lowest weekday
// index.
func (c *Client) MostActiveWeekdayForChat(ctx context.Context, chatID int64, since *time.Time) (*models.MostActiveWeekday, error) {
	where, args, _ := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT EXTRACT(DOW FROM m.created_at)::int AS dow, COUNT(m.id) AS message_count
	FROM messages m
	JOIN chats c ON c.id = m.chat_id
	WHERE %s
	GROUP BY dow
	ORDER BY message_count DESC, dow ASC
	LIMIT 1`, where)

	return c.queryWeekday(ctx, query, args...)
}

// MostActiveWeekdayForUser is MostActiveWeekdayForChat narrowed to one user
func (c *Client) MostActiveWeekdayForUser(ctx context.Context, chatID, userID int64, since *time.Time) (*models.MostActiveWeekday, error) {
	where, args, argIndex := scopeWhere(chatID, since)
	query := fmt.Sprintf(`
	SELECT EXTRACT(DOW FROM m.created_at)::int AS dow, COUNT(m.id) AS message_count
	FROM messages m
	JOIN users u ON u.id = m.user_id
	JOIN chats c ON c.id = m.chat_id
	WHERE %s AND u.telegram_id = $%d
	GROUP BY dow
	ORDER BY message_count DESC, dow ASC
	LIMIT 1`, where, argIndex)
	args = append(args, userID)

	return c.queryWeekday(ctx, query, args...)
}

func (c *Client) queryCount(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query count: %w", err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to scan count: %w", err)
		}
	}

	return count, rows.Err()
}

func (c *Client) queryWeekday(ctx context.Context, query string, args ...any) (*models.MostActiveWeekday, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query most active weekday: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		// Empty scope: absence, not a zero-count day
		return nil, rows.Err()
	}

	var weekday models.MostActiveWeekday
	if err := rows.Scan(&weekday.Dow, &weekday.MessageCount); err != nil {
		return nil, fmt.Errorf("failed to scan most active weekday: %w", err)
	}

	return &weekday, rows.Err()
}

// scopeWhere builds the shared chat + time-bound predicate. It returns
// the clause, its arguments and the next free placeholder index.
func scopeWhere(chatID int64, since *time.Time) (string, []any, int) {
	where := "c.telegram_id = $1"
	args := []any{chatID}
	argIndex := 2

	if since != nil {
		where += fmt.Sprintf(" AND m.created_at >= $%d", argIndex)
		args = append(args, since.UTC())
		argIndex++
	}

	return where, args, argIndex
}
