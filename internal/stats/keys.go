package stats

import "fmt"

// Cache keys are deterministic functions of the full argument tuple:
// identical logical arguments always map to the same key, and any
// differing argument yields a different key.

func chatStatsKey(chatID int64, filter TimeFilter) string {
	return fmt.Sprintf("stats:%d:%s", chatID, filter)
}

func userStatsKey(chatID, userID int64, filter TimeFilter) string {
	return fmt.Sprintf("user_stats:%d:%d:%s", chatID, userID, filter)
}

func usersPageKey(chatID int64, filter TimeFilter, limit, offset int) string {
	return fmt.Sprintf("users_page:%d:%s:%d:%d", chatID, filter, limit, offset)
}

func activityChatKey(chatID int64, filter TimeFilter) string {
	return fmt.Sprintf("activity:chat:%d:%s", chatID, filter)
}

func activityUserKey(chatID, userID int64, filter TimeFilter) string {
	return fmt.Sprintf("activity:user:%d:%d:%s", chatID, userID, filter)
}
