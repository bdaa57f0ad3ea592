// Package cache keeps aggregated goal reads between mutations.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/spigell/goal-tracker/internal/goals"
)

const (
	defaultSize = 256
	defaultTTL  = 5 * time.Minute
)

// Config configures the query cache. Zero values fall back to defaults.
type Config struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Queries caches goal details and employee goal lists. Entries older than
// the TTL are treated as missing.
type Queries struct {
	goals     *lru.Cache[string, entry[*goals.GoalWithDetails]]
	employees *lru.Cache[string, entry[[]goals.AssignedGoal]]
	ttl       time.Duration
	now       func() time.Time
}

var _ goals.Cache = (*Queries)(nil)

func New(cfg Config) (*Queries, error) {
	if cfg.Size <= 0 {
		cfg.Size = defaultSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	goalCache, err := lru.New[string, entry[*goals.GoalWithDetails]](cfg.Size)
	if err != nil {
		return nil, err
	}
	employeeCache, err := lru.New[string, entry[[]goals.AssignedGoal]](cfg.Size)
	if err != nil {
		return nil, err
	}

	return &Queries{goals: goalCache, employees: employeeCache, ttl: cfg.TTL, now: time.Now}, nil
}

func (q *Queries) Goal(id string) (*goals.GoalWithDetails, bool) {
	e, ok := q.goals.Get(id)
	if !ok {
		return nil, false
	}
	if q.expired(e.storedAt) {
		q.goals.Remove(id)
		return nil, false
	}
	return e.value, true
}

func (q *Queries) PutGoal(details *goals.GoalWithDetails) {
	if details == nil {
		return
	}
	q.goals.Add(details.Goal.ID, entry[*goals.GoalWithDetails]{value: details, storedAt: q.now()})
}

func (q *Queries) EmployeeGoals(employeeID string) ([]goals.AssignedGoal, bool) {
	e, ok := q.employees.Get(employeeID)
	if !ok {
		return nil, false
	}
	if q.expired(e.storedAt) {
		q.employees.Remove(employeeID)
		return nil, false
	}
	return e.value, true
}

func (q *Queries) PutEmployeeGoals(employeeID string, assignments []goals.AssignedGoal) {
	q.employees.Add(employeeID, entry[[]goals.AssignedGoal]{value: assignments, storedAt: q.now()})
}

func (q *Queries) InvalidateGoal(id string) {
	q.goals.Remove(id)
}

func (q *Queries) InvalidateEmployee(id string) {
	q.employees.Remove(id)
}

// Purge drops every cached entry.
func (q *Queries) Purge() {
	q.goals.Purge()
	q.employees.Purge()
}

// Len returns the number of cached goal and employee entries.
func (q *Queries) Len() (goalEntries, employeeEntries int) {
	return q.goals.Len(), q.employees.Len()
}

func (q *Queries) expired(storedAt time.Time) bool {
	return q.now().Sub(storedAt) > q.ttl
}
