package goals

import "math"

// StatusFlags describes which goal-level buckets a goal falls into.
//
// Completed and Pending require every assignment to be in that state while
// InProgress and Overdue only need one. The asymmetry is kept on purpose: a
// goal with [completed, in-progress] counts as in progress only, and a goal
// can be both in progress and overdue at once. Goals without assignments fall
// into no bucket.
type StatusFlags struct {
	Completed  bool
	InProgress bool
	Overdue    bool
	Pending    bool
}

// GoalStatus computes the bucket flags for one aggregated goal.
func GoalStatus(g GoalWithDetails) StatusFlags {
	if len(g.Assignments) == 0 {
		return StatusFlags{}
	}

	flags := StatusFlags{Completed: true, Pending: true}
	for _, a := range g.Assignments {
		if a.Status != StatusCompleted {
			flags.Completed = false
		}
		if a.Status != StatusPending {
			flags.Pending = false
		}
		switch a.Status {
		case StatusInProgress:
			flags.InProgress = true
		case StatusOverdue:
			flags.Overdue = true
		}
	}
	return flags
}

// Has reports whether the flags include the given status bucket.
func (f StatusFlags) Has(s Status) bool {
	switch s {
	case StatusCompleted:
		return f.Completed
	case StatusInProgress:
		return f.InProgress
	case StatusOverdue:
		return f.Overdue
	case StatusPending:
		return f.Pending
	default:
		return false
	}
}

// Summarize counts goals per status bucket and derives the completion rate.
func Summarize(items []GoalWithDetails) GoalStatistics {
	stats := GoalStatistics{TotalGoals: len(items)}
	for _, item := range items {
		flags := GoalStatus(item)
		if flags.Completed {
			stats.CompletedGoals++
		}
		if flags.InProgress {
			stats.InProgressGoals++
		}
		if flags.Overdue {
			stats.OverdueGoals++
		}
		if flags.Pending {
			stats.PendingGoals++
		}
	}

	if stats.TotalGoals > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.CompletedGoals) / float64(stats.TotalGoals) * 100))
	}

	return stats
}
