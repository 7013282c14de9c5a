package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/telegram-stats-bot/internal/stats"
)

// defaultFilter is the filter menus open with
const defaultFilter = stats.FilterAll

// handleUpdate processes incoming update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Wrap in recover middleware
	b.recoverMiddleware(func() {
		if update.Message != nil {
			b.handleMessage(ctx, update.Message)
			return
		}
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
		}
	})
}

// handleMessage processes incoming message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Only process messages from allowed group chats
	if !b.config.IsAllowedChat(message.Chat.ID) {
		b.logger.Debug().
			Int64("chat_id", message.Chat.ID).
			Msg("Ignoring message from disallowed chat")
		return
	}

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Every ordinary text message is logged
	b.logMessage(ctx, message)
}

// logMessage persists one observed chat message, upserting the sender
// and chat identities first
func (b *Bot) logMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.From.IsBot {
		return
	}
	if message.Text == "" {
		return
	}

	userID, err := b.storage.UpsertUser(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("telegram_user_id", message.From.ID).
			Msg("Failed to upsert user")
		return
	}

	chatID, err := b.storage.UpsertChat(ctx, message.Chat.ID, message.Chat.Title)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("telegram_chat_id", message.Chat.ID).
			Msg("Failed to upsert chat")
		return
	}

	if err := b.storage.InsertMessage(ctx, chatID, userID, message.Text); err != nil {
		b.logger.Error().
			Err(err).
			Int64("telegram_chat_id", message.Chat.ID).
			Int64("telegram_user_id", message.From.ID).
			Msg("Failed to save message")
	}
}

// handleCommand processes bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	b.logger.Info().
		Str("command", command).
		Int64("user_id", message.From.ID).
		Str("username", message.From.UserName).
		Msg("Received command")

	switch command {
	case "stats", "top":
		b.handleStatsCommand(ctx, message)
	case "me":
		b.handleMeCommand(ctx, message)
	case "digest":
		b.handleDigestCommand(ctx, message)
	case "start", "help":
		b.handleHelpCommand(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "❓ Неизвестная команда. Используйте /help для списка команд.")
	}
}

// handleStatsCommand handles /stats and /top: opens the chat dashboard menu
func (b *Bot) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) {
	b.sendTypingAction(message.Chat.ID)

	text, err := b.buildChatStatsView(ctx, message.Chat.ID, defaultFilter)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", message.Chat.ID).
			Msg("Failed to get chat stats")
		b.sendErrorMessage(message.Chat.ID, "❌ Ошибка при получении статистики")
		return
	}

	b.sendMessageWithKeyboard(message.Chat.ID, text, chatStatsKeyboard(defaultFilter))
}

// handleMeCommand handles /me: personal stats for the caller
func (b *Bot) handleMeCommand(ctx context.Context, message *tgbotapi.Message) {
	b.sendTypingAction(message.Chat.ID)

	text, err := b.buildUserStatsView(ctx, message.Chat.ID, message.From.ID, defaultFilter)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", message.Chat.ID).
			Int64("user_id", message.From.ID).
			Msg("Failed to get user stats")
		b.sendErrorMessage(message.Chat.ID, "❌ Ошибка при получении статистики")
		return
	}

	b.sendMessageWithKeyboard(message.Chat.ID, text, userStatsKeyboard(defaultFilter))
}

// handleDigestCommand handles /digest: admin-only manual weekly digest
func (b *Bot) handleDigestCommand(ctx context.Context, message *tgbotapi.Message) {
	isAdmin, err := b.isAdmin(message.Chat.ID, message.From.ID)
	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", message.Chat.ID).
			Int64("user_id", message.From.ID).
			Msg("Failed to check admin status")
	}
	if !isAdmin {
		b.sendMessage(message.Chat.ID, "🔒 Эта команда доступна только администраторам.")
		return
	}

	b.sendTypingAction(message.Chat.ID)

	if err := b.SendWeeklyDigest(ctx, message.Chat.ID); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", message.Chat.ID).
			Msg("Failed to send digest")
		b.sendErrorMessage(message.Chat.ID, "❌ Ошибка при подготовке итогов недели")
	}
}

// handleHelpCommand handles /help and /start commands
func (b *Bot) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) {
	helpMsg := "👋 *Привет! Я веду статистику этого чата*\n\n" +
		"Я сохраняю все текстовые сообщения и считаю активность участников.\n\n" +
		"*Доступные команды:*\n" +
		"/stats — статистика чата (топ участников, фильтры по времени)\n" +
		"/me — ваша личная статистика и место в рейтинге\n" +
		"/digest — итоги недели (только для администраторов)\n" +
		"/help — показать это сообщение"

	b.sendMessage(message.Chat.ID, helpMsg)
}

// handleCallback processes inline keyboard presses. The callback data
// is decoded once into a typed action; handlers never re-parse it.
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || !b.config.IsAllowedChat(callback.Message.Chat.ID) {
		b.answerCallback(callback.ID, "")
		return
	}

	action, err := decodeAction(callback.Data)
	if err != nil {
		b.logger.Warn().
			Err(err).
			Str("data", callback.Data).
			Msg("Rejected malformed callback")
		b.answerCallback(callback.ID, "Кнопка устарела, вызовите /stats заново")
		return
	}

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	var text string
	var keyboard tgbotapi.InlineKeyboardMarkup

	switch action.Kind {
	case actionChatStats:
		text, err = b.buildChatStatsView(ctx, chatID, action.Filter)
		keyboard = chatStatsKeyboard(action.Filter)
	case actionUserStats:
		text, err = b.buildUserStatsView(ctx, chatID, callback.From.ID, action.Filter)
		keyboard = userStatsKeyboard(action.Filter)
	case actionUsersPage:
		text, keyboard, err = b.buildUsersPageView(ctx, chatID, action.Filter, action.Page)
	}

	if err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("data", callback.Data).
			Msg("Failed to build menu view")
		b.answerCallback(callback.ID, "❌ Ошибка при получении статистики")
		return
	}

	if err := b.editMessageWithKeyboard(chatID, messageID, text, keyboard); err != nil {
		// Telegram rejects edits when nothing changed; not worth a toast
		b.logger.Debug().
			Err(err).
			Int64("chat_id", chatID).
			Msg("Menu edit failed")
	}

	b.answerCallback(callback.ID, "")
}

// buildChatStatsView fetches and renders the chat dashboard
func (b *Bot) buildChatStatsView(ctx context.Context, chatID int64, filter stats.TimeFilter) (string, error) {
	chatStats, err := b.stats.ChatStats(ctx, chatID, filter)
	if err != nil {
		return "", err
	}

	weekday, err := b.stats.MostActiveWeekdayForChat(ctx, chatID, filter)
	if err != nil {
		return "", err
	}

	return renderChatStats(chatStats, weekday, filter), nil
}

// buildUserStatsView fetches and renders personal stats
func (b *Bot) buildUserStatsView(ctx context.Context, chatID, userID int64, filter stats.TimeFilter) (string, error) {
	userStats, err := b.stats.UserStats(ctx, chatID, userID, filter)
	if err != nil {
		return "", err
	}

	weekday, err := b.stats.MostActiveWeekdayForUser(ctx, chatID, userID, filter)
	if err != nil {
		return "", err
	}

	return renderUserStats(userStats, weekday, filter), nil
}

// buildUsersPageView fetches and renders one page of the user listing.
// One extra row is requested to decide whether a next page exists.
func (b *Bot) buildUsersPageView(ctx context.Context, chatID int64, filter stats.TimeFilter, page int) (string, tgbotapi.InlineKeyboardMarkup, error) {
	pageSize := b.config.UsersPageSize

	rows, err := b.stats.UsersPage(ctx, chatID, filter, pageSize+1, page*pageSize)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}

	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}

	text := renderUsersPage(rows, filter, page, pageSize)
	return text, usersPageKeyboard(filter, page, hasNext), nil
}

// SendWeeklyDigest recomputes and posts the past week's top users.
// Called by the scheduler and by the admin /digest command; drops the
// cached dashboard first so the digest is fresh.
func (b *Bot) SendWeeklyDigest(ctx context.Context, chatID int64) error {
	if err := b.stats.InvalidateChatStats(ctx, chatID, stats.FilterWeek); err != nil {
		return err
	}

	chatStats, err := b.stats.ChatStats(ctx, chatID, stats.FilterWeek)
	if err != nil {
		return fmt.Errorf("failed to get weekly stats: %w", err)
	}

	return b.sendMessage(chatID, renderDigest(chatStats))
}
