package goals

import "time"

// Apply copies the set fields of p onto a and stamps UpdatedAt.
func (p AssignedGoalPatch) Apply(a *AssignedGoal, now time.Time) {
	if p.TargetValue != nil {
		a.TargetValue = *p.TargetValue
	}
	if p.CurrentValue != nil {
		a.CurrentValue = *p.CurrentValue
	}
	if p.Progress != nil {
		a.Progress = *p.Progress
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	a.UpdatedAt = now
}

// Empty reports whether the patch changes nothing.
func (p AssignedGoalPatch) Empty() bool {
	return p.TargetValue == nil && p.CurrentValue == nil && p.Progress == nil && p.Status == nil
}

// Apply copies the set fields of p onto inst and stamps UpdatedAt.
func (p InstancePatch) Apply(inst *GoalInstance, now time.Time) {
	if p.TargetValue != nil {
		inst.TargetValue = *p.TargetValue
	}
	if p.CurrentValue != nil {
		inst.CurrentValue = *p.CurrentValue
	}
	if p.Progress != nil {
		inst.Progress = *p.Progress
	}
	if p.Status != nil {
		inst.Status = *p.Status
	}
	if p.Notes != nil {
		inst.Notes = *p.Notes
	}
	inst.UpdatedAt = now
}

func (p InstancePatch) Empty() bool {
	return p.TargetValue == nil && p.CurrentValue == nil && p.Progress == nil && p.Status == nil && p.Notes == nil
}
