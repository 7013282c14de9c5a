package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/telegram-stats-bot/internal/models"
	"github.com/telegram-stats-bot/internal/stats"
)

// actionKind enumerates the closed set of menu actions
type actionKind string

const (
	actionChatStats actionKind = "stats"
	actionUsersPage actionKind = "users"
	actionUserStats actionKind = "me"
)

// menuAction is a decoded callback payload. Callback data is parsed
// exactly once, here at the transport boundary; handlers receive the
// typed form.
type menuAction struct {
	Kind   actionKind
	Filter stats.TimeFilter
	Page   int
}

// encodeAction renders the callback data for an action
func encodeAction(a menuAction) string {
	switch a.Kind {
	case actionUsersPage:
		return fmt.Sprintf("%s:%s:%d", a.Kind, a.Filter, a.Page)
	default:
		return fmt.Sprintf("%s:%s", a.Kind, a.Filter)
	}
}

// decodeAction parses callback data into a typed action. Unknown
// kinds, filters or malformed page numbers are rejected.
func decodeAction(data string) (menuAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return menuAction{}, fmt.Errorf("malformed callback data: %q", data)
	}

	filter, err := stats.ParseTimeFilter(parts[1])
	if err != nil {
		return menuAction{}, fmt.Errorf("callback data %q: %w", data, err)
	}

	action := menuAction{Kind: actionKind(parts[0]), Filter: filter}

	switch action.Kind {
	case actionChatStats, actionUserStats:
		if len(parts) != 2 {
			return menuAction{}, fmt.Errorf("malformed callback data: %q", data)
		}
	case actionUsersPage:
		if len(parts) != 3 {
			return menuAction{}, fmt.Errorf("malformed callback data: %q", data)
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil || page < 0 {
			return menuAction{}, fmt.Errorf("malformed page in callback data: %q", data)
		}
		action.Page = page
	default:
		return menuAction{}, fmt.Errorf("unknown callback action: %q", data)
	}

	return action, nil
}

// filterLabels maps filters to their button captions
var filterLabels = map[stats.TimeFilter]string{
	stats.FilterToday: "Сегодня",
	stats.FilterWeek:  "Неделя",
	stats.FilterMonth: "Месяц",
	stats.FilterAll:   "Всё время",
}

var filterOrder = []stats.TimeFilter{stats.FilterToday, stats.FilterWeek, stats.FilterMonth, stats.FilterAll}

// weekdayNames is indexed by Postgres DOW, 0=Sunday
var weekdayNames = []string{
	"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота",
}

// filterRow builds one row of filter-switch buttons, marking the active one
func filterRow(kind actionKind, active stats.TimeFilter, page int) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range filterOrder {
		label := filterLabels[f]
		if f == active {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			label,
			encodeAction(menuAction{Kind: kind, Filter: f, Page: page}),
		))
	}
	return row
}

// chatStatsKeyboard is the dashboard menu: filter switches plus the
// paginated user listing entry
func chatStatsKeyboard(active stats.TimeFilter) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		filterRow(actionChatStats, active, 0),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"👥 Все участники",
				encodeAction(menuAction{Kind: actionUsersPage, Filter: active}),
			),
		),
	)
}

// userStatsKeyboard is the personal stats menu: filter switches only
func userStatsKeyboard(active stats.TimeFilter) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(filterRow(actionUserStats, active, 0))
}

// usersPageKeyboard navigates the paginated listing and links back to
// the dashboard
func usersPageKeyboard(filter stats.TimeFilter, page int, hasNext bool) tgbotapi.InlineKeyboardMarkup {
	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			"⬅️ Назад",
			encodeAction(menuAction{Kind: actionUsersPage, Filter: filter, Page: page - 1}),
		))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			"Вперёд ➡️",
			encodeAction(menuAction{Kind: actionUsersPage, Filter: filter, Page: page + 1}),
		))
	}

	backRow := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			"📊 К статистике",
			encodeAction(menuAction{Kind: actionChatStats, Filter: filter}),
		),
	)

	if len(nav) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(backRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(nav, backRow)
}

// displayName picks the best available handle for a user row
func displayName(username, firstName string, telegramID int64) string {
	if username != "" {
		return "@" + escapeMarkdown(username)
	}
	if firstName != "" {
		return escapeMarkdown(firstName)
	}
	return fmt.Sprintf("User%d", telegramID)
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	replacements := map[string]string{
		"_": "\\_",
		"*": "\\*",
		"[": "\\[",
		"`": "\\`",
	}

	result := text
	for old, new := range replacements {
		result = strings.ReplaceAll(result, old, new)
	}
	return result
}

// pluralizeMessages formats a message count with proper Russian pluralization
func pluralizeMessages(count int64) string {
	var word string
	if count%10 == 1 && count%100 != 11 {
		word = "сообщение"
	} else if (count%10 >= 2 && count%10 <= 4) && (count%100 < 10 || count%100 >= 20) {
		word = "сообщения"
	} else {
		word = "сообщений"
	}
	return fmt.Sprintf("%d %s", count, word)
}

// renderChatStats formats the chat dashboard text
func renderChatStats(chatStats *models.ChatStats, weekday *models.MostActiveWeekday, filter stats.TimeFilter) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 *Статистика чата* (%s)\n\n", filterLabels[filter]))

	if len(chatStats.TopUsers) == 0 {
		sb.WriteString("За этот период сообщений не было.\n")
		return sb.String()
	}

	sb.WriteString("*Самые активные:*\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, u := range chatStats.TopUsers {
		marker := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			marker = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s\n",
			marker,
			displayName(u.Username, u.FirstName, u.TelegramID),
			pluralizeMessages(u.MessageCount),
		))
	}

	sb.WriteString(fmt.Sprintf("\n✉️ Всего сообщений: *%d*\n", chatStats.TotalMessages))
	sb.WriteString(fmt.Sprintf("👥 Участников: *%d*\n", chatStats.TotalUsers))

	if weekday != nil {
		sb.WriteString(fmt.Sprintf("📅 Самый активный день: *%s* (%s)\n",
			weekdayNames[weekday.Dow], pluralizeMessages(weekday.MessageCount)))
	}

	return sb.String()
}

// renderUserStats formats the personal stats text
func renderUserStats(userStats *models.UserStats, weekday *models.MostActiveWeekday, filter stats.TimeFilter) string {
	var sb strings.Builder

	name := displayName(userStats.User.Username, userStats.User.FirstName, userStats.User.TelegramID)
	sb.WriteString(fmt.Sprintf("👤 *Статистика %s* (%s)\n\n", name, filterLabels[filter]))

	if userStats.MessageCount == 0 {
		sb.WriteString("За этот период сообщений не было.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("✉️ Сообщений: *%d*\n", userStats.MessageCount))
	sb.WriteString(fmt.Sprintf("🏆 Место в чате: *%d*\n", userStats.Rank))

	if weekday != nil {
		sb.WriteString(fmt.Sprintf("📅 Самый активный день: *%s* (%s)\n",
			weekdayNames[weekday.Dow], pluralizeMessages(weekday.MessageCount)))
	}

	return sb.String()
}

// renderUsersPage formats one page of the user listing
func renderUsersPage(page []models.TopUser, filter stats.TimeFilter, pageNum, pageSize int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("👥 *Участники* (%s), страница %d\n\n", filterLabels[filter], pageNum+1))

	if len(page) == 0 {
		sb.WriteString("На этой странице никого нет.\n")
		return sb.String()
	}

	for i, u := range page {
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n",
			pageNum*pageSize+i+1,
			displayName(u.Username, u.FirstName, u.TelegramID),
			pluralizeMessages(u.MessageCount),
		))
	}

	return sb.String()
}

// renderDigest formats the weekly digest posted by the scheduler
func renderDigest(chatStats *models.ChatStats) string {
	var sb strings.Builder

	sb.WriteString("📣 *Итоги недели*\n\n")

	if len(chatStats.TopUsers) == 0 {
		sb.WriteString("На этой неделе в чате было тихо.\n")
		return sb.String()
	}

	sb.WriteString("*Самые активные за неделю:*\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, u := range chatStats.TopUsers {
		if i >= len(medals) {
			break
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s\n",
			medals[i],
			displayName(u.Username, u.FirstName, u.TelegramID),
			pluralizeMessages(u.MessageCount),
		))
	}

	sb.WriteString(fmt.Sprintf("\n✉️ Всего сообщений за неделю: *%d*\n", chatStats.TotalMessages))

	return sb.String()
}
