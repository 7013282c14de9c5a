package storage

import (
	"context"
	"fmt"

	"github.com/telegram-stats-bot/internal/models"
)

// UpsertUser inserts a user on first sight and refreshes the display
// fields on every later message (last write wins). Returns the internal id.
func (c *Client) UpsertUser(ctx context.Context, telegramID int64, username, firstName string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	const query = `
	INSERT INTO users (telegram_id, username, first_name)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
	ON CONFLICT (telegram_id)
	DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
	RETURNING id`

	var id int64
	err := c.withRetry(ctx, "upsert_user", func() error {
		rows, err := c.db.QueryContext(ctx, query, telegramID, username, firstName)
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		defer rows.Close()

		if !rows.Next() {
			return fmt.Errorf("upsert user returned no row")
		}
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan user id: %w", err)
		}
		return rows.Err()
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("telegram_id", telegramID).
			Msg("Failed to upsert user")
		return 0, err
	}

	return id, nil
}

// FindUserByTelegramID looks up a user by their Telegram identity.
// Returns nil when the user has never been observed.
func (c *Client) FindUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	const query = `
	SELECT id, telegram_id, COALESCE(username, ''), COALESCE(first_name, '')
	FROM users
	WHERE telegram_id = $1`

	rows, err := c.db.QueryContext(ctx, query, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read user row: %w", err)
		}
		return nil, nil
	}

	var user models.User
	if err := rows.Scan(&user.ID, &user.TelegramID, &user.Username, &user.FirstName); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}
