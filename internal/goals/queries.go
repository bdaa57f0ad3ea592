package goals

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/logger"
)

// GoalDetails returns the aggregated view of one goal with every assignment
// and its instances.
func (s *Service) GoalDetails(ctx context.Context, goalID string) (*GoalWithDetails, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Goal(goalID); ok {
			return cached, nil
		}
	}

	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, s.storeErr("get goal", "goal", goalID, err)
	}

	details, err := s.details(ctx, *goal)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.PutGoal(details)
	}
	return details, nil
}

// ListGoalDetails aggregates every goal matching the filter.
func (s *Service) ListGoalDetails(ctx context.Context, filter GoalFilter) ([]GoalWithDetails, error) {
	list, err := s.store.ListGoals(ctx, filter)
	if err != nil {
		return nil, s.storeErr("list goals", "goal", "", err)
	}

	out := make([]GoalWithDetails, 0, len(list))
	for _, goal := range list {
		if s.cache != nil {
			if cached, ok := s.cache.Goal(goal.ID); ok {
				out = append(out, *cached)
				continue
			}
		}

		details, err := s.details(ctx, goal)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.PutGoal(details)
		}
		out = append(out, *details)
	}

	s.logger.Debug("goal details listed", zap.String("sector", string(filter.Sector)), zap.Int("count", len(out)))
	return out, nil
}

// Statistics summarizes every goal matching the filter.
func (s *Service) Statistics(ctx context.Context, filter GoalFilter) (GoalStatistics, error) {
	items, err := s.ListGoalDetails(ctx, filter)
	if err != nil {
		return GoalStatistics{}, err
	}
	return Summarize(items), nil
}

// EmployeeGoals returns the assignments of one employee with their instances.
func (s *Service) EmployeeGoals(ctx context.Context, employeeID string) ([]AssignedGoal, error) {
	if s.cache != nil {
		if cached, ok := s.cache.EmployeeGoals(employeeID); ok {
			return cached, nil
		}
	}

	if _, err := s.store.GetEmployee(ctx, employeeID); err != nil {
		return nil, s.storeErr("get employee", "employee", employeeID, err)
	}

	assignments, err := s.store.ListAssignedGoals(ctx, AssignmentFilter{EmployeeID: employeeID})
	if err != nil {
		return nil, s.storeErr("list assignments", "employee", employeeID, err)
	}
	if err := s.attachInstances(ctx, assignments); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.PutEmployeeGoals(employeeID, assignments)
	}
	return assignments, nil
}

// Assignment returns one assignment without its instances.
func (s *Service) Assignment(ctx context.Context, assignedGoalID string) (*AssignedGoal, error) {
	a, err := s.store.GetAssignedGoal(ctx, assignedGoalID)
	if err != nil {
		return nil, s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}
	return a, nil
}

// Instances returns the instances of an assignment split into active,
// history and upcoming relative to now.
func (s *Service) Instances(ctx context.Context, assignedGoalID string) (ClassifiedInstances, error) {
	if _, err := s.store.GetAssignedGoal(ctx, assignedGoalID); err != nil {
		return ClassifiedInstances{}, s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}

	instances, err := s.store.ListInstances(ctx, InstanceFilter{AssignedGoalID: assignedGoalID})
	if err != nil {
		return ClassifiedInstances{}, s.storeErr("list instances", "assigned goal", assignedGoalID, err)
	}

	return ClassifyInstances(s.now(), instances), nil
}

// TrackingRecords returns the progress entries of an assignment.
func (s *Service) TrackingRecords(ctx context.Context, assignedGoalID string) ([]TrackingRecord, error) {
	if _, err := s.store.GetAssignedGoal(ctx, assignedGoalID); err != nil {
		return nil, s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}

	records, err := s.store.ListTrackingRecords(ctx, assignedGoalID)
	if err != nil {
		return nil, s.storeErr("list tracking records", "assigned goal", assignedGoalID, err)
	}
	return records, nil
}

func (s *Service) details(ctx context.Context, goal Goal) (*GoalWithDetails, error) {
	assignments, err := s.store.ListAssignedGoals(ctx, AssignmentFilter{GoalID: goal.ID})
	if err != nil {
		return nil, s.storeErr("list assignments", "goal", goal.ID, err)
	}
	if err := s.attachInstances(ctx, assignments); err != nil {
		return nil, err
	}

	details := Aggregate(goal, assignments)
	s.logger.Debug("goal aggregated",
		zap.String(logger.FieldGoalID, goal.ID),
		zap.Int("assignments", len(assignments)),
		zap.Int("overall_progress", details.OverallProgress),
	)
	return &details, nil
}

func (s *Service) attachInstances(ctx context.Context, assignments []AssignedGoal) error {
	for i := range assignments {
		instances, err := s.store.ListInstances(ctx, InstanceFilter{AssignedGoalID: assignments[i].ID})
		if err != nil {
			return s.storeErr("list instances", "assigned goal", assignments[i].ID, err)
		}
		assignments[i].Instances = instances
	}
	return nil
}
