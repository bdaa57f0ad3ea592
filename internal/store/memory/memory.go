// Package memory keeps goal records in process memory. It backs tests and is
// the base of the file store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spigell/goal-tracker/internal/goals"
)

// Snapshot is the serializable state of a Store.
type Snapshot struct {
	Employees       []goals.Employee       `json:"employees"`
	Goals           []goals.Goal           `json:"goals"`
	AssignedGoals   []goals.AssignedGoal   `json:"assigned_goals"`
	Instances       []goals.GoalInstance   `json:"goal_instances"`
	TrackingRecords []goals.TrackingRecord `json:"tracking_records"`
}

// ChangeHook receives the state a write is about to commit. Returning an
// error discards the write.
type ChangeHook func(Snapshot) error

type Option func(*Store)

// WithChangeHook registers a hook called on every write.
func WithChangeHook(hook ChangeHook) Option {
	return func(s *Store) {
		s.onChange = hook
	}
}

// WithClock overrides the clock used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	mu       sync.RWMutex
	data     *tables
	onChange ChangeHook
	now      func() time.Time
}

var (
	_ goals.Store      = (*Store)(nil)
	_ goals.Transactor = (*Store)(nil)
)

func New(opts ...Option) *Store {
	s := &Store{data: newTables(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state with every table ordered by id.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.snapshot()
}

// Restore replaces the whole state. The change hook is not called.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = fromSnapshot(snap)
}

// WithinTx runs fn against a private copy of the state. On success only the
// rows fn created, changed or deleted are applied to the live tables, so
// writes made outside the transaction meanwhile survive. A row written on
// both sides keeps the transaction's version.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx goals.Store) error) error {
	s.mu.RLock()
	base := s.data.clone()
	s.mu.RUnlock()

	tx := &Store{data: base.clone(), now: s.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.clone()
	next.merge(base, tx.data)
	if s.onChange != nil {
		if err := s.onChange(next.snapshot()); err != nil {
			return err
		}
	}
	s.data = next
	return nil
}

func (s *Store) read(ctx context.Context, fn func(t *tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.onChange == nil {
		return fn(s.data)
	}

	next := s.data.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.onChange(next.snapshot()); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *Store) CreateEmployee(ctx context.Context, e *goals.Employee) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.employees[e.ID]; ok {
			return exists("employee", e.ID)
		}
		t.employees[e.ID] = *e
		return nil
	})
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*goals.Employee, error) {
	var out goals.Employee
	err := s.read(ctx, func(t *tables) error {
		e, ok := t.employees[id]
		if !ok {
			return missing("employee", id)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateGoal(ctx context.Context, g *goals.Goal) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.goals[g.ID]; ok {
			return exists("goal", g.ID)
		}
		t.goals[g.ID] = *g
		return nil
	})
}

func (s *Store) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	var out goals.Goal
	err := s.read(ctx, func(t *tables) error {
		g, ok := t.goals[id]
		if !ok {
			return missing("goal", id)
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListGoals(ctx context.Context, filter goals.GoalFilter) ([]goals.Goal, error) {
	var out []goals.Goal
	err := s.read(ctx, func(t *tables) error {
		for _, g := range t.goals {
			if filter.Sector != "" && g.Sector != filter.Sector {
				continue
			}
			out = append(out, g)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.goals[id]; !ok {
			return missing("goal", id)
		}
		delete(t.goals, id)
		return nil
	})
}

func (s *Store) CreateAssignedGoal(ctx context.Context, a *goals.AssignedGoal) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.assigned[a.ID]; ok {
			return exists("assigned goal", a.ID)
		}
		row := *a
		row.Employee, row.Instances = nil, nil
		t.assigned[a.ID] = row
		return nil
	})
}

func (s *Store) GetAssignedGoal(ctx context.Context, id string) (*goals.AssignedGoal, error) {
	var out goals.AssignedGoal
	err := s.read(ctx, func(t *tables) error {
		a, ok := t.assigned[id]
		if !ok {
			return missing("assigned goal", id)
		}
		out = t.withEmployee(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListAssignedGoals(ctx context.Context, filter goals.AssignmentFilter) ([]goals.AssignedGoal, error) {
	var out []goals.AssignedGoal
	err := s.read(ctx, func(t *tables) error {
		for _, a := range t.assigned {
			if filter.GoalID != "" && a.GoalID != filter.GoalID {
				continue
			}
			if filter.EmployeeID != "" && a.EmployeeID != filter.EmployeeID {
				continue
			}
			out = append(out, t.withEmployee(a))
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *Store) UpdateAssignedGoal(ctx context.Context, id string, patch goals.AssignedGoalPatch) (*goals.AssignedGoal, error) {
	var out goals.AssignedGoal
	err := s.write(ctx, func(t *tables) error {
		a, ok := t.assigned[id]
		if !ok {
			return missing("assigned goal", id)
		}
		patch.Apply(&a, s.now())
		t.assigned[id] = a
		out = t.withEmployee(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteAssignedGoal(ctx context.Context, id string) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.assigned[id]; !ok {
			return missing("assigned goal", id)
		}
		delete(t.assigned, id)
		for rid, r := range t.records {
			if r.AssignedGoalID == id {
				delete(t.records, rid)
			}
		}
		return nil
	})
}

func (s *Store) CreateInstance(ctx context.Context, inst *goals.GoalInstance) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.instances[inst.ID]; ok {
			return exists("goal instance", inst.ID)
		}
		t.instances[inst.ID] = *inst
		return nil
	})
}

func (s *Store) GetInstance(ctx context.Context, id string) (*goals.GoalInstance, error) {
	var out goals.GoalInstance
	err := s.read(ctx, func(t *tables) error {
		inst, ok := t.instances[id]
		if !ok {
			return missing("goal instance", id)
		}
		out = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListInstances(ctx context.Context, filter goals.InstanceFilter) ([]goals.GoalInstance, error) {
	var out []goals.GoalInstance
	err := s.read(ctx, func(t *tables) error {
		for _, inst := range t.instances {
			if filter.AssignedGoalID != "" && inst.AssignedGoalID != filter.AssignedGoalID {
				continue
			}
			out = append(out, inst)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodEnd.Equal(out[j].PeriodEnd) {
			return out[i].PeriodEnd.After(out[j].PeriodEnd)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *Store) UpdateInstance(ctx context.Context, id string, patch goals.InstancePatch) (*goals.GoalInstance, error) {
	var out goals.GoalInstance
	err := s.write(ctx, func(t *tables) error {
		inst, ok := t.instances[id]
		if !ok {
			return missing("goal instance", id)
		}
		patch.Apply(&inst, s.now())
		t.instances[id] = inst
		out = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.instances[id]; !ok {
			return missing("goal instance", id)
		}
		delete(t.instances, id)
		return nil
	})
}

func (s *Store) DeleteInstances(ctx context.Context, filter goals.InstanceFilter) (int, error) {
	deleted := 0
	err := s.write(ctx, func(t *tables) error {
		for id, inst := range t.instances {
			if filter.AssignedGoalID != "" && inst.AssignedGoalID != filter.AssignedGoalID {
				continue
			}
			delete(t.instances, id)
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Store) CreateTrackingRecord(ctx context.Context, r *goals.TrackingRecord) error {
	return s.write(ctx, func(t *tables) error {
		if _, ok := t.assigned[r.AssignedGoalID]; !ok {
			return missing("assigned goal", r.AssignedGoalID)
		}
		if _, ok := t.records[r.ID]; ok {
			return exists("tracking record", r.ID)
		}
		t.records[r.ID] = *r
		return nil
	})
}

func (s *Store) ListTrackingRecords(ctx context.Context, assignedGoalID string) ([]goals.TrackingRecord, error) {
	var out []goals.TrackingRecord
	err := s.read(ctx, func(t *tables) error {
		for _, r := range t.records {
			if r.AssignedGoalID == assignedGoalID {
				out = append(out, r)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordDate.Equal(out[j].RecordDate) {
			return out[i].RecordDate.After(out[j].RecordDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func missing(kind, id string) error {
	return &goals.NotFoundError{Kind: kind, ID: id}
}

func exists(kind, id string) error {
	return fmt.Errorf("%s %q already exists", kind, id)
}
