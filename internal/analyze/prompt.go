package analyze

import (
	"fmt"
	"strings"

	"github.com/telegram-stats-bot/internal/models"
)

// MinMessages is the minimum number of stored messages required before
// an analysis is attempted
const MinMessages = 5

// promptTemplate asks the model for a communication style report over a
// numbered, timestamped message list
const promptTemplate = `Ниже приведены сообщения пользователя из чата.
Каждое сообщение имеет формат:

[YYYY-MM-DD HH:MM] текст сообщения

Проанализируй:
1. Общий стиль общения
2. Эмоциональный тон
3. Темы, которые чаще всего обсуждает
4. Уровень токсичности / агрессии
5. Активность по времени суток:
   - в какие часы он наиболее активен
   - скорее "сова" или "жаворонок"
   - есть ли ночная активность
6. Сделай краткий психологический портрет.

Сообщения:
%s`

// buildPrompt renders the analysis prompt for a message history,
// most recent first as fetched from the store
func buildPrompt(messages []models.UserMessage) string {
	var lines []string
	for i, msg := range messages {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, msg.CreatedAt.Format("2006-01-02 15:04"), msg.Text))
	}

	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))
}
