package filtering

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/goals"
)

type sectorFilter struct {
	sectors []goals.Sector
}

// NewSector creates a filter that keeps goals of the configured sectors.
func NewSector() Filter {
	return &sectorFilter{}
}

func (f *sectorFilter) Name() string { return "sector" }

func (f *sectorFilter) Disable(string) {}

func (f *sectorFilter) IsEnabled() bool { return true }

func (f *sectorFilter) Validate(cfg *Config) error {
	f.sectors = nil
	if cfg != nil {
		f.sectors = append(f.sectors, cfg.Sectors...)
	}
	return nil
}

func (f *sectorFilter) Apply(_ context.Context, deps Deps, g *Goals) (*Goals, Step, error) {
	initial := g.Len()
	if len(f.sectors) == 0 {
		return g, Step{Initial: initial, Dropped: 0, Left: g.Len()}, nil
	}

	excluded := g.Exclude(func(item goals.GoalWithDetails) bool {
		return !slices.Contains(f.sectors, item.Goal.Sector)
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding goals of other sectors",
			zap.Strings("excluded_goals", excluded),
			zap.Int("goals_left", g.Len()),
		)
	}

	return g, Step{Initial: initial, Dropped: len(excluded), Left: g.Len()}, nil
}

func (f *sectorFilter) Status() Status {
	details := map[string]string{}
	if len(f.sectors) > 0 {
		names := make([]string, 0, len(f.sectors))
		for _, s := range f.sectors {
			names = append(names, string(s))
		}
		details["sectors"] = strings.Join(names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

// statusFilter keeps goals falling into any of the configured buckets. The
// buckets follow goals.GoalStatus, so a goal can match several of them.
type statusFilter struct {
	statuses []goals.Status
	disabled string
}

func NewStatus() Filter {
	return &statusFilter{}
}

func (f *statusFilter) Name() string { return "status" }

func (f *statusFilter) Disable(reason string) {
	if reason == "" {
		reason = "disabled"
	}
	f.disabled = reason
}

func (f *statusFilter) IsEnabled() bool { return f.disabled == "" }

func (f *statusFilter) Validate(cfg *Config) error {
	f.statuses = nil
	if cfg == nil {
		return nil
	}

	for _, s := range cfg.Statuses {
		switch s {
		case goals.StatusCompleted, goals.StatusInProgress, goals.StatusOverdue, goals.StatusPending:
			f.statuses = append(f.statuses, s)
		default:
			return fmt.Errorf("unsupported goal status %q", s)
		}
	}
	return nil
}

func (f *statusFilter) Apply(_ context.Context, deps Deps, g *Goals) (*Goals, Step, error) {
	initial := g.Len()
	if len(f.statuses) == 0 {
		return g, Step{Initial: initial, Dropped: 0, Left: g.Len()}, nil
	}

	excluded := g.Exclude(func(item goals.GoalWithDetails) bool {
		flags := goals.GoalStatus(item)
		for _, s := range f.statuses {
			if flags.Has(s) {
				return false
			}
		}
		return true
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding goals by status",
			zap.Strings("excluded_goals", excluded),
			zap.Int("goals_left", g.Len()),
		)
	}

	return g, Step{Initial: initial, Dropped: len(excluded), Left: g.Len()}, nil
}

func (f *statusFilter) Status() Status {
	details := map[string]string{}
	if len(f.statuses) > 0 {
		names := make([]string, 0, len(f.statuses))
		for _, s := range f.statuses {
			names = append(names, string(s))
		}
		details["statuses"] = strings.Join(names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.disabled, Details: details}
}

// timeframeFilter keeps goals whose validity window overlaps [from, to].
type timeframeFilter struct {
	from time.Time
	to   time.Time
}

func NewTimeframe() Filter {
	return &timeframeFilter{}
}

func (f *timeframeFilter) Name() string { return "timeframe" }

func (f *timeframeFilter) Disable(string) {}

func (f *timeframeFilter) IsEnabled() bool { return true }

func (f *timeframeFilter) Validate(cfg *Config) error {
	f.from, f.to = time.Time{}, time.Time{}
	if cfg == nil {
		return nil
	}
	if !cfg.From.IsZero() && !cfg.To.IsZero() && cfg.To.Before(cfg.From) {
		return fmt.Errorf("timeframe end %s is before its start %s", cfg.To.Format(time.DateOnly), cfg.From.Format(time.DateOnly))
	}
	f.from, f.to = cfg.From, cfg.To
	return nil
}

func (f *timeframeFilter) Apply(_ context.Context, deps Deps, g *Goals) (*Goals, Step, error) {
	initial := g.Len()
	if f.from.IsZero() && f.to.IsZero() {
		return g, Step{Initial: initial, Dropped: 0, Left: g.Len()}, nil
	}

	excluded := g.Exclude(func(item goals.GoalWithDetails) bool {
		if !f.from.IsZero() && !f.from.Before(item.Goal.ValidUntil()) {
			return true
		}
		return !f.to.IsZero() && item.Goal.StartDate.After(f.to)
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding goals outside the timeframe",
			zap.Strings("excluded_goals", excluded),
			zap.Int("goals_left", g.Len()),
		)
	}

	return g, Step{Initial: initial, Dropped: len(excluded), Left: g.Len()}, nil
}

func (f *timeframeFilter) Status() Status {
	details := map[string]string{}
	if !f.from.IsZero() {
		details["from"] = f.from.Format(time.DateOnly)
	}
	if !f.to.IsZero() {
		details["to"] = f.to.Format(time.DateOnly)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

// employeeFilter keeps goals assigned to one employee.
type employeeFilter struct {
	employeeID string
}

func NewEmployee() Filter {
	return &employeeFilter{}
}

func (f *employeeFilter) Name() string { return "employee" }

func (f *employeeFilter) Disable(string) {}

func (f *employeeFilter) IsEnabled() bool { return true }

func (f *employeeFilter) Validate(cfg *Config) error {
	f.employeeID = ""
	if cfg != nil {
		f.employeeID = strings.TrimSpace(cfg.EmployeeID)
	}
	return nil
}

func (f *employeeFilter) Apply(_ context.Context, deps Deps, g *Goals) (*Goals, Step, error) {
	initial := g.Len()
	if f.employeeID == "" {
		return g, Step{Initial: initial, Dropped: 0, Left: g.Len()}, nil
	}

	excluded := g.Exclude(func(item goals.GoalWithDetails) bool {
		return !slices.ContainsFunc(item.Assignments, func(a goals.AssignedGoal) bool {
			return a.EmployeeID == f.employeeID
		})
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding goals of other employees",
			zap.String("employee_id", f.employeeID),
			zap.Strings("excluded_goals", excluded),
			zap.Int("goals_left", g.Len()),
		)
	}

	return g, Step{Initial: initial, Dropped: len(excluded), Left: g.Len()}, nil
}

func (f *employeeFilter) Status() Status {
	details := map[string]string{}
	if f.employeeID != "" {
		details["employee_id"] = f.employeeID
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
