package goals

import (
	"sort"
	"time"
)

// ClassifiedInstances partitions instances of an assignment relative to a point in time.
type ClassifiedInstances struct {
	Active   []GoalInstance `json:"active"`
	History  []GoalInstance `json:"history"`
	Upcoming []GoalInstance `json:"upcoming"`
}

// Len returns the number of classified instances.
func (c ClassifiedInstances) Len() int {
	return len(c.Active) + len(c.History) + len(c.Upcoming)
}

// ClassifyInstances splits instances into active (start <= now <= end),
// history (end < now) and upcoming (start > now). Each partition is ordered
// by period start, most recent first.
func ClassifyInstances(now time.Time, instances []GoalInstance) ClassifiedInstances {
	out := ClassifiedInstances{
		Active:   []GoalInstance{},
		History:  []GoalInstance{},
		Upcoming: []GoalInstance{},
	}

	for _, inst := range instances {
		switch {
		case inst.PeriodStart.After(now):
			out.Upcoming = append(out.Upcoming, inst)
		case inst.PeriodEnd.Before(now):
			out.History = append(out.History, inst)
		default:
			out.Active = append(out.Active, inst)
		}
	}

	for _, part := range [][]GoalInstance{out.Active, out.History, out.Upcoming} {
		sortByStartDesc(part)
	}

	return out
}

// LatestInstance returns the instance with the greatest period end.
func LatestInstance(instances []GoalInstance) (GoalInstance, bool) {
	if len(instances) == 0 {
		return GoalInstance{}, false
	}

	latest := instances[0]
	for _, inst := range instances[1:] {
		if inst.PeriodEnd.After(latest.PeriodEnd) {
			latest = inst
		}
	}
	return latest, true
}

func sortByStartDesc(instances []GoalInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].PeriodStart.After(instances[j].PeriodStart)
	})
}
