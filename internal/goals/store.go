package goals

import "context"

// Store is the persistence contract consumed by the service. Reads of a
// missing record return an error wrapping ErrNotFound.
//
// ListAssignedGoals populates the nested Employee when the employee exists;
// Instances are fetched separately with ListInstances.
type Store interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id string) (*Employee, error)

	CreateGoal(ctx context.Context, g *Goal) error
	GetGoal(ctx context.Context, id string) (*Goal, error)
	ListGoals(ctx context.Context, filter GoalFilter) ([]Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	CreateAssignedGoal(ctx context.Context, a *AssignedGoal) error
	GetAssignedGoal(ctx context.Context, id string) (*AssignedGoal, error)
	ListAssignedGoals(ctx context.Context, filter AssignmentFilter) ([]AssignedGoal, error)
	UpdateAssignedGoal(ctx context.Context, id string, patch AssignedGoalPatch) (*AssignedGoal, error)
	// DeleteAssignedGoal also removes the tracking records of the assignment.
	DeleteAssignedGoal(ctx context.Context, id string) error

	CreateInstance(ctx context.Context, inst *GoalInstance) error
	GetInstance(ctx context.Context, id string) (*GoalInstance, error)
	// ListInstances orders by period end, latest first.
	ListInstances(ctx context.Context, filter InstanceFilter) ([]GoalInstance, error)
	UpdateInstance(ctx context.Context, id string, patch InstancePatch) (*GoalInstance, error)
	DeleteInstance(ctx context.Context, id string) error
	// DeleteInstances removes every instance matching the filter and returns the count.
	DeleteInstances(ctx context.Context, filter InstanceFilter) (int, error)

	CreateTrackingRecord(ctx context.Context, r *TrackingRecord) error
	ListTrackingRecords(ctx context.Context, assignedGoalID string) ([]TrackingRecord, error)
}

// Transactor is implemented by stores able to run several writes atomically.
// fn must use the Store it receives; returning an error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
