package models

import "time"

// User represents a chat member as issued by Telegram.
// Created on the first observed message; username/first_name follow
// last-write-wins on subsequent messages.
type User struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
}

// Chat represents a group chat tracked by the bot
type Chat struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Title      string `json:"title,omitempty"`
}

// Message represents a stored chat message.
// Messages are immutable: there is no update or delete path.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserMessage is a (text, timestamp) pair consumed by the analyze flow
type UserMessage struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TopUser represents one row of a chat ranking
type TopUser struct {
	TelegramID   int64  `json:"telegram_id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	MessageCount int64  `json:"message_count"`
}

// ChatStats aggregates a chat's activity within a time filter
type ChatStats struct {
	TopUsers      []TopUser `json:"top_users"`
	TotalMessages int64     `json:"total_messages"`
	TotalUsers    int64     `json:"total_users"`
}

// UserStats aggregates one user's activity within a chat and time filter.
// Rank is 1-based; ties share a rank. Rank 0 means the user has no
// qualifying messages in scope.
type UserStats struct {
	User         User  `json:"user"`
	MessageCount int64 `json:"message_count"`
	Rank         int64 `json:"rank"`
}

// MostActiveWeekday is the busiest day of week within a scope.
// Dow follows Postgres EXTRACT(DOW): 0=Sunday..6=Saturday.
type MostActiveWeekday struct {
	Dow          int   `json:"dow"`
	MessageCount int64 `json:"message_count"`
}

// AnalyzeReport is the result of a communication style analysis
type AnalyzeReport struct {
	ReportID      string `json:"report_id"`
	Analysis      string `json:"analysis"`
	MessagesCount int    `json:"messages_count"`
}

// BotConfig represents application configuration
type BotConfig struct {
	// Telegram settings
	TelegramToken    string
	TelegramUsername string
	AllowedChatIDs   []int64 // List of allowed chat IDs (supports multiple chats)

	// Gemini API settings
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout int

	// Postgres settings
	DatabaseURL string
	DBTimeout   int

	// Redis cache settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      int // seconds

	// Stats settings
	TopUsersLimit int
	UsersPageSize int

	// Web report API
	WebListenAddr string

	// App settings
	Timezone    string
	LogLevel    string
	Environment string
}

// IsAllowedChat checks if the given chat ID is in the allowed list
func (c *BotConfig) IsAllowedChat(chatID int64) bool {
	for _, allowedID := range c.AllowedChatIDs {
		if allowedID == chatID {
			return true
		}
	}
	return false
}
