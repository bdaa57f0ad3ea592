package goals

import (
	"fmt"
	"strings"
	"time"
)

// periodEndSkew keeps the inclusive period end representable at millisecond precision.
const periodEndSkew = time.Millisecond

// ParseGoalType accepts the canonical names case-insensitively.
func ParseGoalType(s string) (GoalType, error) {
	for _, gt := range []GoalType{GoalTypeDaily, GoalTypeWeekly, GoalTypeMonthly, GoalTypeYearly} {
		if strings.EqualFold(string(gt), strings.TrimSpace(s)) {
			return gt, nil
		}
	}
	return "", fmt.Errorf("unknown goal type %q", s)
}

// PeriodFor returns the inclusive period of the given cadence containing t,
// computed in t's location. Weeks start on Monday.
func PeriodFor(goalType GoalType, t time.Time) (time.Time, time.Time, error) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	var start, next time.Time
	switch goalType {
	case GoalTypeDaily:
		start = day
		next = start.AddDate(0, 0, 1)
	case GoalTypeWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		next = start.AddDate(0, 0, 7)
	case GoalTypeMonthly:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		next = start.AddDate(0, 1, 0)
	case GoalTypeYearly:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
		next = start.AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown goal type %q", goalType)
	}

	return start, next.Add(-periodEndSkew), nil
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ValidUntil is the exclusive end of the goal's validity window: midnight
// after its last valid day.
func (g Goal) ValidUntil() time.Time {
	return StartOfDay(g.EndDate).AddDate(0, 0, 1)
}

// inLocation keeps t's wall clock but moves it into loc, so a date parsed
// in another zone names the same calendar day for the service clock.
func inLocation(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() || t.Location() == loc {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
