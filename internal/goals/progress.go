package goals

import "math"

// Progress returns current/target as a whole percentage clamped to [0, 100].
// A non-positive target yields 0.
func Progress(current, target float64) int {
	if target <= 0 || math.IsNaN(current) || math.IsNaN(target) {
		return 0
	}

	percent := math.Round(current / target * 100)
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return int(percent)
	}
}

// DeriveStatus returns the status implied by recorded progress.
func DeriveStatus(current, target float64) Status {
	switch {
	case Progress(current, target) >= 100:
		return StatusCompleted
	case current > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// CanExtend reports whether the UI-level precondition of ExtendTarget holds.
// The service operation itself does not enforce it.
func CanExtend(a AssignedGoal) bool {
	return a.Status == StatusCompleted
}
