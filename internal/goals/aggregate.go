package goals

// Totals holds summed assignment values.
type Totals struct {
	Target  float64 `json:"target"`
	Current float64 `json:"current"`
}

// Add returns the combined totals of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{Target: t.Target + o.Target, Current: t.Current + o.Current}
}

// Progress derives the overall percentage from the summed values.
func (t Totals) Progress() int {
	return Progress(t.Current, t.Target)
}

// SumAssignments adds up target and current values of the assignments.
func SumAssignments(assignments []AssignedGoal) Totals {
	var totals Totals
	for _, a := range assignments {
		totals.Target += a.TargetValue
		totals.Current += a.CurrentValue
	}
	return totals
}

// Aggregate builds the goal-level view from the goal and its assignments.
// Assignments without an employee reference are left out of AssignedTo but
// still count towards the totals.
func Aggregate(goal Goal, assignments []AssignedGoal) GoalWithDetails {
	totals := SumAssignments(assignments)

	seen := make(map[string]struct{}, len(assignments))
	assignedTo := make([]Employee, 0, len(assignments))
	for _, a := range assignments {
		if a.Employee == nil || a.Employee.ID == "" {
			continue
		}
		if _, ok := seen[a.Employee.ID]; ok {
			continue
		}
		seen[a.Employee.ID] = struct{}{}
		assignedTo = append(assignedTo, *a.Employee)
	}

	if assignments == nil {
		assignments = []AssignedGoal{}
	}

	return GoalWithDetails{
		Goal:              goal,
		Assignments:       assignments,
		AssignedTo:        assignedTo,
		TotalTargetValue:  totals.Target,
		TotalCurrentValue: totals.Current,
		OverallProgress:   totals.Progress(),
	}
}
