package storage

import (
	"context"
	"fmt"

	"github.com/telegram-stats-bot/internal/models"
)

// InsertMessage stores one chat message. Messages are append-only;
// created_at is assigned by the database.
func (c *Client) InsertMessage(ctx context.Context, chatID, userID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	const query = `
	INSERT INTO messages (chat_id, user_id, text)
	VALUES ($1, $2, NULLIF($3, ''))`

	err := c.withRetry(ctx, "insert_message", func() error {
		if _, err := c.db.ExecContext(ctx, query, chatID, userID, text); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Int64("user_id", userID).
			Msg("Failed to insert message")
		return err
	}

	c.logger.Debug().
		Int64("chat_id", chatID).
		Int64("user_id", userID).
		Msg("Chat message saved")

	return nil
}

// RecentMessagesByUsername returns a user's latest non-empty messages,
// most recent first. Consumed by the analyze flow.
func (c *Client) RecentMessagesByUsername(ctx context.Context, username string, limit int) ([]models.UserMessage, error) {
	const query = `
	SELECT m.text, m.created_at
	FROM messages m
	JOIN users u ON u.id = m.user_id
	WHERE u.username = $1
	  AND m.text IS NOT NULL
	ORDER BY m.created_at DESC
	LIMIT $2`

	return c.queryUserMessages(ctx, query, username, limit)
}

// RecentMessagesByTelegramID returns a user's latest non-empty messages
// within one chat, most recent first
func (c *Client) RecentMessagesByTelegramID(ctx context.Context, chatTelegramID, userTelegramID int64, limit int) ([]models.UserMessage, error) {
	const query = `
	SELECT m.text, m.created_at
	FROM messages m
	JOIN users u ON u.id = m.user_id
	JOIN chats c ON c.id = m.chat_id
	WHERE c.telegram_id = $1
	  AND u.telegram_id = $2
	  AND m.text IS NOT NULL
	ORDER BY m.created_at DESC
	LIMIT $3`

	return c.queryUserMessages(ctx, query, chatTelegramID, userTelegramID, limit)
}

func (c *Client) queryUserMessages(ctx context.Context, query string, args ...any) ([]models.UserMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select user messages: %w", err)
	}
	defer rows.Close()

	var messages []models.UserMessage
	for rows.Next() {
		var msg models.UserMessage
		if err := rows.Scan(&msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user messages: %w", err)
	}

	return messages, nil
}
