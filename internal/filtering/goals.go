package filtering

import "github.com/spigell/goal-tracker/internal/goals"

// Goals is the collection the pipeline narrows down.
type Goals struct {
	Items []goals.GoalWithDetails
}

func NewGoals(items []goals.GoalWithDetails) *Goals {
	return &Goals{Items: items}
}

func (g *Goals) Len() int {
	return len(g.Items)
}

// Exclude removes every goal for which drop returns true and returns the ids
// of removed goals.
func (g *Goals) Exclude(drop func(goals.GoalWithDetails) bool) []string {
	kept := g.Items[:0]
	var removed []string
	for _, item := range g.Items {
		if drop(item) {
			removed = append(removed, item.Goal.ID)
			continue
		}
		kept = append(kept, item)
	}
	g.Items = kept
	return removed
}
