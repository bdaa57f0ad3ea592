package goals

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/logger"
)

const (
	OpCreateEmployee = "create_employee"
	OpCreateGoal     = "create_goal"
	OpAssignGoal     = "assign_goal"
	OpUpdateTarget   = "update_target"
	OpExtendTarget   = "extend_target"
	OpStopGoal       = "stop_goal"
	OpRemoveAssignee = "remove_assignee"
	OpDeleteGoal     = "delete_goal"
	OpRecordProgress = "record_progress"
	OpRollInstances  = "roll_instances"
)

// Cascade stages reported by PartialCascadeError.
const (
	StageListAssignments = "list_assignments"
	StageListInstances   = "list_instances"
	StageInstances       = "delete_instances"
	StageAssignments     = "delete_assignments"
	StageGoal            = "delete_goal"
)

// CascadeMode selects how multi-step deletes behave on failure.
type CascadeMode int

const (
	// CascadeFailStop stops at the first failure and keeps completed steps.
	CascadeFailStop CascadeMode = iota
	// CascadeTransactional runs the cascade inside a store transaction.
	CascadeTransactional
)

// Cache holds goal details and employee goal lists between mutations.
type Cache interface {
	Goal(id string) (*GoalWithDetails, bool)
	PutGoal(details *GoalWithDetails)
	EmployeeGoals(employeeID string) ([]AssignedGoal, bool)
	PutEmployeeGoals(employeeID string, assignments []AssignedGoal)
	InvalidateGoal(id string)
	InvalidateEmployee(id string)
}

// Observer receives the outcome of every mutation.
type Observer interface {
	ObserveMutation(op string, elapsed time.Duration, err error)
}

// Deps aggregates optional collaborators of the Service.
type Deps struct {
	Logger   *zap.Logger
	Cache    Cache
	Observer Observer
	Cascade  CascadeMode
	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Service implements goal mutations and aggregated reads over a Store.
type Service struct {
	store    Store
	logger   *zap.Logger
	cache    Cache
	observer Observer
	cascade  CascadeMode
	now      func() time.Time
	newID    func() string
}

func NewService(store Store, deps *Deps) *Service {
	if deps == nil {
		deps = &Deps{}
	}

	s := &Service{
		store:    store,
		logger:   logger.OrNop(deps.Logger),
		cache:    deps.Cache,
		observer: deps.Observer,
		cascade:  deps.Cascade,
		now:      deps.Now,
		newID:    deps.NewID,
	}

	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	if s.cascade == CascadeTransactional {
		if _, ok := store.(Transactor); !ok {
			s.logger.Warn("store does not support transactions, falling back to fail-stop cascades")
			s.cascade = CascadeFailStop
		}
	}

	return s
}

// AssignParams describes a new assignment of a goal to employees.
type AssignParams struct {
	EmployeeIDs []string
	// TargetValue overrides the goal's base target when set.
	TargetValue *float64
	GoalType    GoalType
	Notes       string
}

// RecordParams describes a progress entry.
type RecordParams struct {
	Value float64
	// Date defaults to now.
	Date  time.Time
	Notes string
}

// RollResult reports what RollInstances changed.
type RollResult struct {
	Created       int `json:"created"`
	MarkedOverdue int `json:"marked_overdue"`
}

func (s *Service) CreateEmployee(ctx context.Context, e Employee) (_ *Employee, err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Employee: e.ID})
	defer func() { err = s.finish(OpCreateEmployee, started, err, fields...) }()

	if e.ID == "" {
		e.ID = s.newID()
		fields = logger.GoalFields(logger.GoalRefs{Employee: e.ID})
	}
	if err := Validate(e); err != nil {
		return nil, err
	}

	if err := s.store.CreateEmployee(ctx, &e); err != nil {
		return nil, s.storeErr("create employee", "employee", e.ID, err)
	}

	return &e, nil
}

func (s *Service) CreateGoal(ctx context.Context, g Goal) (_ *Goal, err error) {
	started := time.Now()
	var fields []zap.Field
	defer func() { err = s.finish(OpCreateGoal, started, err, fields...) }()

	if g.ID == "" {
		g.ID = s.newID()
	}
	fields = logger.GoalFields(logger.GoalRefs{Goal: g.ID})

	now := s.now()
	g.CreatedAt, g.UpdatedAt = now, now
	g.StartDate = inLocation(g.StartDate, now.Location())
	g.EndDate = inLocation(g.EndDate, now.Location())
	if err := Validate(g); err != nil {
		return nil, err
	}

	if err := s.store.CreateGoal(ctx, &g); err != nil {
		return nil, s.storeErr("create goal", "goal", g.ID, err)
	}

	return &g, nil
}

// AssignGoal creates one assignment per employee together with the instance
// for the current period.
func (s *Service) AssignGoal(ctx context.Context, goalID string, params AssignParams) (_ []AssignedGoal, err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Goal: goalID})
	defer func() { err = s.finish(OpAssignGoal, started, err, fields...) }()

	if len(params.EmployeeIDs) == 0 {
		return nil, invalid("employees", "at least one employee is required")
	}
	if _, _, err := PeriodFor(params.GoalType, time.Time{}); err != nil {
		return nil, invalid("goal_type", err.Error())
	}
	if params.TargetValue != nil && !positive(*params.TargetValue) {
		return nil, invalid("target", "must be greater than zero")
	}

	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, s.storeErr("get goal", "goal", goalID, err)
	}

	var target float64
	switch {
	case params.TargetValue != nil:
		target = *params.TargetValue
	case goal.TargetValue != nil && positive(*goal.TargetValue):
		target = *goal.TargetValue
	default:
		return nil, invalid("target", "goal has no base target, an explicit target is required")
	}

	now := s.now()
	anchor := now
	if now.Before(goal.StartDate) {
		anchor = goal.StartDate
	}
	start, end, _ := PeriodFor(params.GoalType, anchor)

	seen := make(map[string]struct{}, len(params.EmployeeIDs))
	created := make([]AssignedGoal, 0, len(params.EmployeeIDs))
	for _, employeeID := range params.EmployeeIDs {
		if _, dup := seen[employeeID]; dup {
			continue
		}
		seen[employeeID] = struct{}{}

		employee, err := s.store.GetEmployee(ctx, employeeID)
		if err != nil {
			return created, s.storeErr("get employee", "employee", employeeID, err)
		}

		assignment := AssignedGoal{
			ID:          s.newID(),
			GoalID:      goal.ID,
			EmployeeID:  employee.ID,
			TargetValue: target,
			Status:      StatusPending,
			GoalType:    params.GoalType,
			Notes:       params.Notes,
			AssignedAt:  now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateAssignedGoal(ctx, &assignment); err != nil {
			return created, s.storeErr("create assignment", "assigned goal", assignment.ID, err)
		}

		instance := GoalInstance{
			ID:             s.newID(),
			AssignedGoalID: assignment.ID,
			PeriodStart:    start,
			PeriodEnd:      end,
			TargetValue:    target,
			Status:         StatusPending,
			UpdatedAt:      now,
		}
		if err := s.store.CreateInstance(ctx, &instance); err != nil {
			return created, s.storeErr("create instance", "goal instance", instance.ID, err)
		}

		assignment.Employee = employee
		assignment.Instances = []GoalInstance{instance}
		created = append(created, assignment)
		s.invalidate(employee.ID, "")
	}

	s.invalidate("", goal.ID)
	return created, nil
}

// UpdateTarget sets a new target on the assignment and on its instances
// starting today or later. Earlier instances keep their snapshot.
func (s *Service) UpdateTarget(ctx context.Context, assignedGoalID string, newTarget float64) (_ *AssignedGoal, err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Assignment: assignedGoalID})
	defer func() { err = s.finish(OpUpdateTarget, started, err, fields...) }()

	if !positive(newTarget) {
		return nil, invalid("target", "must be greater than zero")
	}

	current, err := s.store.GetAssignedGoal(ctx, assignedGoalID)
	if err != nil {
		return nil, s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}

	progress := Progress(current.CurrentValue, newTarget)
	updated, err := s.store.UpdateAssignedGoal(ctx, assignedGoalID, AssignedGoalPatch{
		TargetValue: &newTarget,
		Progress:    &progress,
	})
	if err != nil {
		return nil, s.storeErr("update assignment", "assigned goal", assignedGoalID, err)
	}

	instances, err := s.store.ListInstances(ctx, InstanceFilter{AssignedGoalID: assignedGoalID})
	if err != nil {
		return nil, s.storeErr("list instances", "assigned goal", assignedGoalID, err)
	}

	today := StartOfDay(s.now())
	for _, inst := range instances {
		if inst.PeriodStart.Before(today) {
			continue
		}
		instProgress := Progress(inst.CurrentValue, newTarget)
		if _, err := s.store.UpdateInstance(ctx, inst.ID, InstancePatch{
			TargetValue: &newTarget,
			Progress:    &instProgress,
		}); err != nil {
			return nil, s.storeErr("update instance", "goal instance", inst.ID, err)
		}
	}

	s.invalidate(updated.EmployeeID, updated.GoalID)
	return updated, nil
}

// ExtendTarget adds delta to the assignment target and to its latest
// instance, forcing both back to in-progress. The prior status is not
// checked; callers wanting the completed-only rule use CanExtend.
func (s *Service) ExtendTarget(ctx context.Context, assignedGoalID string, delta float64) (_ *AssignedGoal, err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Assignment: assignedGoalID})
	defer func() { err = s.finish(OpExtendTarget, started, err, fields...) }()

	if !positive(delta) {
		return nil, invalid("delta", "must be greater than zero")
	}

	current, err := s.store.GetAssignedGoal(ctx, assignedGoalID)
	if err != nil {
		return nil, s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}

	newTarget := current.TargetValue + delta
	progress := Progress(current.CurrentValue, newTarget)
	status := StatusInProgress
	updated, err := s.store.UpdateAssignedGoal(ctx, assignedGoalID, AssignedGoalPatch{
		TargetValue: &newTarget,
		Progress:    &progress,
		Status:      &status,
	})
	if err != nil {
		return nil, s.storeErr("update assignment", "assigned goal", assignedGoalID, err)
	}

	instances, err := s.store.ListInstances(ctx, InstanceFilter{AssignedGoalID: assignedGoalID})
	if err != nil {
		return nil, s.storeErr("list instances", "assigned goal", assignedGoalID, err)
	}

	if latest, ok := LatestInstance(instances); ok {
		instTarget := latest.TargetValue + delta
		instProgress := Progress(latest.CurrentValue, instTarget)
		if _, err := s.store.UpdateInstance(ctx, latest.ID, InstancePatch{
			TargetValue: &instTarget,
			Progress:    &instProgress,
			Status:      &status,
		}); err != nil {
			return nil, s.storeErr("update instance", "goal instance", latest.ID, err)
		}
	}

	s.invalidate(updated.EmployeeID, updated.GoalID)
	return updated, nil
}

// StopGoal moves the instance and its assignment to the terminal stopped state.
func (s *Service) StopGoal(ctx context.Context, instanceID string) (_ *GoalInstance, err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Instance: instanceID})
	defer func() { err = s.finish(OpStopGoal, started, err, fields...) }()

	stopped := StatusStopped
	instance, err := s.store.UpdateInstance(ctx, instanceID, InstancePatch{Status: &stopped})
	if err != nil {
		return nil, s.storeErr("update instance", "goal instance", instanceID, err)
	}

	assignment, err := s.store.UpdateAssignedGoal(ctx, instance.AssignedGoalID, AssignedGoalPatch{Status: &stopped})
	if err != nil {
		return nil, s.storeErr("update assignment", "assigned goal", instance.AssignedGoalID, err)
	}

	s.invalidate(assignment.EmployeeID, assignment.GoalID)
	return instance, nil
}

// RemoveAssignee deletes every instance of the assignment and then the
// assignment itself.
func (s *Service) RemoveAssignee(ctx context.Context, assignedGoalID string) (err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Assignment: assignedGoalID})
	defer func() { err = s.finish(OpRemoveAssignee, started, err, fields...) }()

	assignment, err := s.store.GetAssignedGoal(ctx, assignedGoalID)
	if err != nil {
		return s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}

	remove := func(ctx context.Context, st Store) error {
		deleted, err := st.DeleteInstances(ctx, InstanceFilter{AssignedGoalID: assignedGoalID})
		if err != nil {
			return s.storeErr("delete instances", "assigned goal", assignedGoalID, err)
		}
		s.logger.Debug("instances deleted", zap.String(logger.FieldAssignedGoalID, assignedGoalID), zap.Int("count", deleted))

		if err := st.DeleteAssignedGoal(ctx, assignedGoalID); err != nil {
			return s.storeErr("delete assignment", "assigned goal", assignedGoalID, err)
		}
		return nil
	}

	if err := s.runCascade(ctx, remove); err != nil {
		return err
	}

	s.invalidate(assignment.EmployeeID, assignment.GoalID)
	return nil
}

// DeleteGoal removes all instances of all assignments, then the assignments,
// then the goal. In fail-stop mode a failure leaves the completed steps in
// place and is reported as *PartialCascadeError; the goal itself is only
// deleted once everything below it is gone.
func (s *Service) DeleteGoal(ctx context.Context, goalID string) (err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Goal: goalID})
	defer func() { err = s.finish(OpDeleteGoal, started, err, fields...) }()

	if _, err := s.store.GetGoal(ctx, goalID); err != nil {
		return s.storeErr("get goal", "goal", goalID, err)
	}

	var touched []AssignedGoal
	cascade := func(ctx context.Context, st Store) error {
		var progress CascadeProgress
		fail := func(stage string, err error) error {
			return &PartialCascadeError{GoalID: goalID, Stage: stage, Deleted: progress, Err: err}
		}

		assignments, err := st.ListAssignedGoals(ctx, AssignmentFilter{GoalID: goalID})
		if err != nil {
			return fail(StageListAssignments, err)
		}
		touched = assignments

		for _, a := range assignments {
			instances, err := st.ListInstances(ctx, InstanceFilter{AssignedGoalID: a.ID})
			if err != nil {
				return fail(StageListInstances, err)
			}
			for _, inst := range instances {
				if err := st.DeleteInstance(ctx, inst.ID); err != nil {
					return fail(StageInstances, err)
				}
				progress.Instances++
			}
		}

		for _, a := range assignments {
			if err := st.DeleteAssignedGoal(ctx, a.ID); err != nil {
				return fail(StageAssignments, err)
			}
			progress.Assignments++
		}

		if err := st.DeleteGoal(ctx, goalID); err != nil {
			return fail(StageGoal, err)
		}

		s.logger.Debug("goal cascade finished",
			zap.String(logger.FieldGoalID, goalID),
			zap.Int("instances", progress.Instances),
			zap.Int("assignments", progress.Assignments),
		)
		return nil
	}

	err = s.runCascade(ctx, cascade)

	// Partial cascades may already have removed assignments, so caches are
	// dropped on failure as well.
	for _, a := range touched {
		s.invalidate(a.EmployeeID, "")
	}
	s.invalidate("", goalID)

	return err
}

// RecordProgress appends a tracking record and rolls its value into the
// instance whose period contains the record date, creating that instance
// when missing. The assignment mirrors its latest instance.
func (s *Service) RecordProgress(ctx context.Context, assignedGoalID string, params RecordParams) (_ *TrackingRecord, err error) {
	started := time.Now()
	fields := logger.GoalFields(logger.GoalRefs{Assignment: assignedGoalID})
	defer func() { err = s.finish(OpRecordProgress, started, err, fields...) }()

	if !positive(params.Value) {
		return nil, invalid("value", "must be greater than zero")
	}

	now := s.now()
	date := inLocation(params.Date, now.Location())
	if date.IsZero() {
		date = now
	}

	assignment, err := s.store.GetAssignedGoal(ctx, assignedGoalID)
	if err != nil {
		return nil, s.storeErr("get assignment", "assigned goal", assignedGoalID, err)
	}
	if assignment.Status == StatusStopped {
		return nil, invalid("assignment", "goal is stopped")
	}

	instances, err := s.store.ListInstances(ctx, InstanceFilter{AssignedGoalID: assignedGoalID})
	if err != nil {
		return nil, s.storeErr("list instances", "assigned goal", assignedGoalID, err)
	}

	var target *GoalInstance
	for i := range instances {
		if instances[i].Contains(date) {
			target = &instances[i]
			break
		}
	}

	if target == nil {
		start, end, err := PeriodFor(assignment.GoalType, date)
		if err != nil {
			return nil, &PersistenceError{Op: "resolve period", Err: err}
		}
		inst := GoalInstance{
			ID:             s.newID(),
			AssignedGoalID: assignedGoalID,
			PeriodStart:    start,
			PeriodEnd:      end,
			TargetValue:    assignment.TargetValue,
			Status:         StatusPending,
			UpdatedAt:      now,
		}
		if err := s.store.CreateInstance(ctx, &inst); err != nil {
			return nil, s.storeErr("create instance", "goal instance", inst.ID, err)
		}
		instances = append(instances, inst)
		target = &instances[len(instances)-1]
	}
	fields = append(fields, zap.String(logger.FieldInstanceID, target.ID))

	record := TrackingRecord{
		ID:             s.newID(),
		AssignedGoalID: assignedGoalID,
		Value:          params.Value,
		RecordDate:     date,
		Notes:          params.Notes,
		CreatedAt:      now,
	}
	if err := s.store.CreateTrackingRecord(ctx, &record); err != nil {
		return nil, s.storeErr("create tracking record", "assigned goal", assignedGoalID, err)
	}

	instCurrent := target.CurrentValue + params.Value
	instProgress := Progress(instCurrent, target.TargetValue)
	instStatus := rolledStatus(target.Status, instCurrent, target.TargetValue)
	if _, err := s.store.UpdateInstance(ctx, target.ID, InstancePatch{
		CurrentValue: &instCurrent,
		Progress:     &instProgress,
		Status:       &instStatus,
	}); err != nil {
		return nil, s.storeErr("update instance", "goal instance", target.ID, err)
	}

	if latest, _ := LatestInstance(instances); latest.ID == target.ID {
		progress := Progress(instCurrent, assignment.TargetValue)
		status := rolledStatus(assignment.Status, instCurrent, assignment.TargetValue)
		if _, err := s.store.UpdateAssignedGoal(ctx, assignedGoalID, AssignedGoalPatch{
			CurrentValue: &instCurrent,
			Progress:     &progress,
			Status:       &status,
		}); err != nil {
			return nil, s.storeErr("update assignment", "assigned goal", assignedGoalID, err)
		}
	}

	s.invalidate(assignment.EmployeeID, assignment.GoalID)
	return &record, nil
}

// RollInstances brings period bookkeeping up to date: ended instances that
// were not completed become overdue, assignments whose goal window has closed
// without completion become overdue, and active assignments get an instance
// for the current period. A new period resets the assignment's mirrored
// current value.
func (s *Service) RollInstances(ctx context.Context) (_ RollResult, err error) {
	started := time.Now()
	defer func() { err = s.finish(OpRollInstances, started, err) }()

	var result RollResult
	now := s.now()

	assignments, err := s.store.ListAssignedGoals(ctx, AssignmentFilter{})
	if err != nil {
		return result, s.storeErr("list assignments", "assigned goal", "", err)
	}

	goalsByID := make(map[string]*Goal)
	overdue := StatusOverdue
	for _, a := range assignments {
		if a.Status == StatusStopped {
			continue
		}

		goal, ok := goalsByID[a.GoalID]
		if !ok {
			goal, err = s.store.GetGoal(ctx, a.GoalID)
			if err != nil {
				return result, s.storeErr("get goal", "goal", a.GoalID, err)
			}
			goalsByID[a.GoalID] = goal
		}

		instances, err := s.store.ListInstances(ctx, InstanceFilter{AssignedGoalID: a.ID})
		if err != nil {
			return result, s.storeErr("list instances", "assigned goal", a.ID, err)
		}

		hasCurrent := false
		for _, inst := range instances {
			if inst.Contains(now) {
				hasCurrent = true
			}
			if !inst.PeriodEnd.Before(now) {
				continue
			}
			if inst.Status != StatusPending && inst.Status != StatusInProgress {
				continue
			}
			if _, err := s.store.UpdateInstance(ctx, inst.ID, InstancePatch{Status: &overdue}); err != nil {
				return result, s.storeErr("update instance", "goal instance", inst.ID, err)
			}
			result.MarkedOverdue++
		}

		switch {
		case !now.Before(goal.ValidUntil()):
			if a.Status == StatusCompleted || a.Status == StatusOverdue {
				continue
			}
			if _, err := s.store.UpdateAssignedGoal(ctx, a.ID, AssignedGoalPatch{Status: &overdue}); err != nil {
				return result, s.storeErr("update assignment", "assigned goal", a.ID, err)
			}
		case hasCurrent || now.Before(goal.StartDate):
			continue
		default:
			start, end, err := PeriodFor(a.GoalType, now)
			if err != nil {
				return result, &PersistenceError{Op: "resolve period", Err: err}
			}
			inst := GoalInstance{
				ID:             s.newID(),
				AssignedGoalID: a.ID,
				PeriodStart:    start,
				PeriodEnd:      end,
				TargetValue:    a.TargetValue,
				Status:         StatusPending,
				UpdatedAt:      now,
			}
			if err := s.store.CreateInstance(ctx, &inst); err != nil {
				return result, s.storeErr("create instance", "goal instance", inst.ID, err)
			}
			result.Created++

			zero, none, pending := 0.0, 0, StatusPending
			if _, err := s.store.UpdateAssignedGoal(ctx, a.ID, AssignedGoalPatch{
				CurrentValue: &zero,
				Progress:     &none,
				Status:       &pending,
			}); err != nil {
				return result, s.storeErr("update assignment", "assigned goal", a.ID, err)
			}
		}

		s.invalidate(a.EmployeeID, a.GoalID)
	}

	s.logger.Info("instances rolled",
		zap.Int("assignments", len(assignments)),
		zap.Int("created", result.Created),
		zap.Int("marked_overdue", result.MarkedOverdue),
	)

	return result, nil
}

func (s *Service) runCascade(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	if s.cascade != CascadeTransactional {
		return fn(ctx, s.store)
	}

	err := s.store.(Transactor).WithinTx(ctx, fn)
	if err == nil {
		return nil
	}

	// The transaction rolled back, so nothing is partially deleted.
	var partial *PartialCascadeError
	if errors.As(err, &partial) {
		return &PersistenceError{Op: "cascade rolled back at " + partial.Stage, Err: partial.Err}
	}
	return err
}

// finish logs and observes the outcome of a mutation. Expected failures are
// logged as warnings, store failures as errors.
func (s *Service) finish(op string, started time.Time, err error, fields ...zap.Field) error {
	elapsed := time.Since(started)
	if s.observer != nil {
		s.observer.ObserveMutation(op, elapsed, err)
	}

	fields = append(fields, zap.String(logger.FieldOperation, op), zap.Duration("elapsed", elapsed))
	switch kind := ErrorKind(err); kind {
	case KindOK:
		s.logger.Info("goal mutation applied", fields...)
	case KindValidation, KindNotFound:
		s.logger.Warn("goal mutation rejected", append(fields, zap.String("kind", kind), zap.Error(err))...)
	default:
		s.logger.Error("goal mutation failed", append(fields, zap.String("kind", kind), zap.Error(err))...)
	}

	return err
}

func (s *Service) storeErr(op, kind, id string, err error) error {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return notFound
	}
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}

	var persistence *PersistenceError
	if errors.As(err, &persistence) {
		return persistence
	}
	return &PersistenceError{Op: op, Err: err}
}

func (s *Service) invalidate(employeeID, goalID string) {
	if s.cache == nil {
		return
	}
	if employeeID != "" {
		s.cache.InvalidateEmployee(employeeID)
	}
	if goalID != "" {
		s.cache.InvalidateGoal(goalID)
	}
}

// rolledStatus is the status after progress was recorded. Stopped stays
// stopped and an overdue period only leaves overdue by completing.
func rolledStatus(prev Status, current, target float64) Status {
	next := DeriveStatus(current, target)
	switch {
	case prev == StatusStopped:
		return prev
	case prev == StatusOverdue && next != StatusCompleted:
		return prev
	default:
		return next
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}
