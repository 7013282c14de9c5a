package storage

import (
	"context"
	"fmt"
)

// UpsertChat inserts a chat on first sight and refreshes the title on
// every later message (last write wins). Returns the internal id.
func (c *Client) UpsertChat(ctx context.Context, telegramID int64, title string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	const query = `
	INSERT INTO chats (telegram_id, title)
	VALUES ($1, NULLIF($2, ''))
	ON CONFLICT (telegram_id)
	DO UPDATE SET title = EXCLUDED.title
	RETURNING id`

	var id int64
	err := c.withRetry(ctx, "upsert_chat", func() error {
		rows, err := c.db.QueryContext(ctx, query, telegramID, title)
		if err != nil {
			return fmt.Errorf("failed to upsert chat: %w", err)
		}
		defer rows.Close()

		if !rows.Next() {
			return fmt.Errorf("upsert chat returned no row")
		}
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan chat id: %w", err)
		}
		return rows.Err()
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("telegram_id", telegramID).
			Msg("Failed to upsert chat")
		return 0, err
	}

	return id, nil
}
