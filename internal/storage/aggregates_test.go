package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telegram-stats-bot/internal/models"
)

func TestTopUsersScansRankingRows(t *testing.T) {
	db := &fakeDB{}
	db.queueRows([][]any{
		{int64(101), "alice", "Alice", int64(5)},
		{int64(102), "bob", "Bob", int64(5)},
		{int64(103), "", "Carol", int64(2)},
	})
	client := newTestClient(t, db)

	users, err := client.TopUsers(context.Background(), 1, nil, 10)
	require.NoError(t, err)

	assert.Equal(t, []models.TopUser{
		{TelegramID: 101, Username: "alice", FirstName: "Alice", MessageCount: 5},
		{TelegramID: 102, Username: "bob", FirstName: "Bob", MessageCount: 5},
		{TelegramID: 103, FirstName: "Carol", MessageCount: 2},
	}, users)

	require.Len(t, db.queries, 1)
	q := db.queries[0]
	assert.Contains(t, q.query, "ORDER BY message_count DESC, u.telegram_id ASC")
	assert.Equal(t, []any{int64(1), 10, 0}, q.args)
}

func TestUsersPageBindsScopeAndPagination(t *testing.T) {
	db := &fakeDB{}
	db.queueRows(nil)
	client := newTestClient(t, db)

	since := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	users, err := client.UsersPage(context.Background(), 7, &since, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.Len(t, db.queries, 1)
	q := db.queries[0]
	assert.Contains(t, q.query, "m.created_at >= $2")
	assert.Equal(t, []any{int64(7), since.UTC(), 10, 20}, q.args)
}

func TestUserRankNoQualifyingMessages(t *testing.T) {
	db := &fakeDB{}
	db.queueRows(nil)
	client := newTestClient(t, db)

	rank, err := client.UserRank(context.Background(), 1, 999, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rank)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].query, "RANK() OVER (ORDER BY COUNT(m.id) DESC)")
	assert.Equal(t, []any{int64(1), int64(999)}, db.queries[0].args)
}

func TestUserRankScansValue(t *testing.T) {
	db := &fakeDB{}
	db.queueRows([][]any{{int64(3)}})
	client := newTestClient(t, db)

	rank, err := client.UserRank(context.Background(), 1, 103, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rank)
}

func TestTotalMessageCount(t *testing.T) {
	db := &fakeDB{}
	db.queueRows([][]any{{int64(12)}})
	client := newTestClient(t, db)

	count, err := client.TotalMessageCount(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestUniqueUserCountUsesDistinct(t *testing.T) {
	db := &fakeDB{}
	db.queueRows([][]any{{int64(3)}})
	client := newTestClient(t, db)

	count, err := client.UniqueUserCount(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Contains(t, db.queries[0].query, "COUNT(DISTINCT m.user_id)")
}

func TestUserMessageCountBindsUser(t *testing.T) {
	db := &fakeDB{}
	db.queueRows([][]any{{int64(5)}})
	client := newTestClient(t, db)

	since := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	count, err := client.UserMessageCount(context.Background(), 1, 101, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.Equal(t, []any{int64(1), since.UTC(), int64(101)}, db.queries[0].args)
}

func TestMostActiveWeekdayEmptyScope(t *testing.T) {
	db := &fakeDB{}
	db.queueRows(nil)
	client := newTestClient(t, db)

	weekday, err := client.MostActiveWeekdayForChat(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Nil(t, weekday)

	assert.Contains(t, db.queries[0].query, "ORDER BY message_count DESC, dow ASC")
}

func TestMostActiveWeekdayScans(t *testing.T) {
	db := &fakeDB{}
	db.queueRows([][]any{{1, int64(7)}})
	client := newTestClient(t, db)

	weekday, err := client.MostActiveWeekdayForUser(context.Background(), 1, 101, nil)
	require.NoError(t, err)
	require.NotNil(t, weekday)
	assert.Equal(t, 1, weekday.Dow)
	assert.Equal(t, int64(7), weekday.MessageCount)
	assert.Equal(t, []any{int64(1), int64(101)}, db.queries[0].args)
}

func TestAggregateQueryErrorPropagates(t *testing.T) {
	db := &fakeDB{}
	db.queueQueryErr(errors.New("connection reset"))
	client := newTestClient(t, db)

	_, err := client.TopUsers(context.Background(), 1, nil, 10)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.Len(t, db.queries, 1, "read queries are not retried")
}

func TestScopeWhere(t *testing.T) {
	where, args, argIndex := scopeWhere(5, nil)
	assert.Equal(t, "c.telegram_id = $1", where)
	assert.Equal(t, []any{int64(5)}, args)
	assert.Equal(t, 2, argIndex)

	since := time.Date(2024, 6, 10, 12, 0, 0, 0, time.FixedZone("MSK", 3*60*60))
	where, args, argIndex = scopeWhere(5, &since)
	assert.Equal(t, "c.telegram_id = $1 AND m.created_at >= $2", where)
	assert.Equal(t, []any{int64(5), since.UTC()}, args)
	assert.Equal(t, 3, argIndex)
}
