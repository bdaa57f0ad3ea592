package memory

import (
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/spigell/goal-tracker/internal/goals"
)

type tables struct {
	employees map[string]goals.Employee
	goals     map[string]goals.Goal
	assigned  map[string]goals.AssignedGoal
	instances map[string]goals.GoalInstance
	records   map[string]goals.TrackingRecord
}

func newTables() *tables {
	return &tables{
		employees: map[string]goals.Employee{},
		goals:     map[string]goals.Goal{},
		assigned:  map[string]goals.AssignedGoal{},
		instances: map[string]goals.GoalInstance{},
		records:   map[string]goals.TrackingRecord{},
	}
}

// Rows are stored by value without nested pointers, so a shallow map copy is
// a full copy.
func (t *tables) clone() *tables {
	return &tables{
		employees: maps.Clone(t.employees),
		goals:     maps.Clone(t.goals),
		assigned:  maps.Clone(t.assigned),
		instances: maps.Clone(t.instances),
		records:   maps.Clone(t.records),
	}
}

// merge applies to t the rows that differ between base and changed.
func (t *tables) merge(base, changed *tables) {
	mergeTable(t.employees, base.employees, changed.employees)
	mergeTable(t.goals, base.goals, changed.goals)
	mergeTable(t.assigned, base.assigned, changed.assigned)
	mergeTable(t.instances, base.instances, changed.instances)
	mergeTable(t.records, base.records, changed.records)
}

func mergeTable[T any](dst, base, changed map[string]T) {
	for id, row := range changed {
		if old, ok := base[id]; ok && reflect.DeepEqual(old, row) {
			continue
		}
		dst[id] = row
	}
	for id := range base {
		if _, ok := changed[id]; !ok {
			delete(dst, id)
		}
	}
}

func (t *tables) withEmployee(a goals.AssignedGoal) goals.AssignedGoal {
	if e, ok := t.employees[a.EmployeeID]; ok {
		a.Employee = &e
	}
	return a
}

func (t *tables) snapshot() Snapshot {
	return Snapshot{
		Employees:       sortedValues(t.employees, func(e goals.Employee) string { return e.ID }),
		Goals:           sortedValues(t.goals, func(g goals.Goal) string { return g.ID }),
		AssignedGoals:   sortedValues(t.assigned, func(a goals.AssignedGoal) string { return a.ID }),
		Instances:       sortedValues(t.instances, func(i goals.GoalInstance) string { return i.ID }),
		TrackingRecords: sortedValues(t.records, func(r goals.TrackingRecord) string { return r.ID }),
	}
}

func fromSnapshot(snap Snapshot) *tables {
	t := newTables()
	for _, e := range snap.Employees {
		t.employees[e.ID] = e
	}
	for _, g := range snap.Goals {
		t.goals[g.ID] = g
	}
	for _, a := range snap.AssignedGoals {
		a.Employee, a.Instances = nil, nil
		t.assigned[a.ID] = a
	}
	for _, i := range snap.Instances {
		t.instances[i.ID] = i
	}
	for _, r := range snap.TrackingRecords {
		t.records[r.ID] = r
	}
	return t
}

func sortedValues[T any](m map[string]T, id func(T) string) []T {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(a, b T) int {
		return strings.Compare(id(a), id(b))
	})
	if out == nil {
		out = []T{}
	}
	return out
}
