package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeFilter(t *testing.T) {
	for _, raw := range []string{"today", "week", "month", "all"} {
		filter, err := ParseTimeFilter(raw)
		require.NoError(t, err)
		assert.Equal(t, TimeFilter(raw), filter)
		assert.True(t, filter.Valid())
	}

	for _, raw := range []string{"", "yesterday", "Today", "7d", "stats"} {
		_, err := ParseTimeFilter(raw)
		assert.ErrorIs(t, err, ErrUnknownFilter, "raw=%q", raw)
		assert.False(t, TimeFilter(raw).Valid())
	}
}

func TestLowerBound(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2024, 6, 15, 18, 30, 45, 0, loc)

	today := FilterToday.LowerBound(now)
	require.NotNil(t, today)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, loc), *today)
	assert.Equal(t, loc, today.Location(), "midnight is taken in now's location")

	week := FilterWeek.LowerBound(now)
	require.NotNil(t, week)
	assert.Equal(t, now.AddDate(0, 0, -7), *week)

	month := FilterMonth.LowerBound(now)
	require.NotNil(t, month)
	assert.Equal(t, now.AddDate(0, 0, -30), *month)

	assert.Nil(t, FilterAll.LowerBound(now))
}

func TestCacheKeysDiscriminateArguments(t *testing.T) {
	keys := []string{
		chatStatsKey(1, FilterToday),
		chatStatsKey(1, FilterAll),
		chatStatsKey(2, FilterToday),
		userStatsKey(1, 100, FilterToday),
		userStatsKey(1, 101, FilterToday),
		userStatsKey(2, 100, FilterToday),
		usersPageKey(1, FilterToday, 10, 0),
		usersPageKey(1, FilterToday, 10, 10),
		usersPageKey(1, FilterToday, 20, 0),
		activityChatKey(1, FilterToday),
		activityUserKey(1, 100, FilterToday),
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		_, dup := seen[key]
		assert.False(t, dup, "duplicate key %q", key)
		seen[key] = struct{}{}
	}
}

func TestCacheKeysAreDeterministic(t *testing.T) {
	assert.Equal(t, chatStatsKey(7, FilterWeek), chatStatsKey(7, FilterWeek))
	assert.Equal(t, "stats:7:week", chatStatsKey(7, FilterWeek))
	assert.Equal(t, "user_stats:7:42:month", userStatsKey(7, 42, FilterMonth))
	assert.Equal(t, "activity:chat:7:all", activityChatKey(7, FilterAll))
	assert.Equal(t, "activity:user:7:42:today", activityUserKey(7, 42, FilterToday))
}
