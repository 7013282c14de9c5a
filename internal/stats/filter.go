package stats

import "time"

// TimeFilter selects a creation-timestamp lower bound relative to now
type TimeFilter string

const (
	FilterToday TimeFilter = "today"
	FilterWeek  TimeFilter = "week"
	FilterMonth TimeFilter = "month"
	FilterAll   TimeFilter = "all"
)

// ParseTimeFilter validates a raw filter value
func ParseTimeFilter(value string) (TimeFilter, error) {
	switch f := TimeFilter(value); f {
	case FilterToday, FilterWeek, FilterMonth, FilterAll:
		return f, nil
	default:
		return "", ErrUnknownFilter
	}
}

// Valid reports whether the filter is one of the known values
func (f TimeFilter) Valid() bool {
	_, err := ParseTimeFilter(string(f))
	return err == nil
}

// LowerBound returns the inclusive creation-time lower bound the filter
// selects relative to now, or nil for no bound. "today" starts at
// midnight in now's location.
func (f TimeFilter) LowerBound(now time.Time) *time.Time {
	var bound time.Time

	switch f {
	case FilterToday:
		bound = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case FilterWeek:
		bound = now.AddDate(0, 0, -7)
	case FilterMonth:
		bound = now.AddDate(0, 0, -30)
	default:
		return nil
	}

	return &bound
}
