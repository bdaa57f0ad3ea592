package goals_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/store/memory"
)

// Wednesday; the weekly period runs from Monday the 10th to Sunday the 16th.
var now = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	mem     *memory.Store
	log     *callLog
	svc     *goals.Service
	clock   *time.Time
	cache   *recordingCache
	metrics *recordingObserver
	logs    *observer.ObservedLogs
	ids     int
}

func newFixture(t *testing.T, cascade goals.CascadeMode) *fixture {
	t.Helper()

	clock := now
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		mem:     memory.New(memory.WithClock(func() time.Time { return clock })),
		log:     &callLog{},
		clock:   &clock,
		cache:   &recordingCache{},
		metrics: &recordingObserver{},
		logs:    logs,
	}

	f.svc = goals.NewService(&recordingStore{Store: f.mem, log: f.log}, &goals.Deps{
		Logger:   zap.New(core),
		Cache:    f.cache,
		Observer: f.metrics,
		Cascade:  cascade,
		Now:      func() time.Time { return *f.clock },
		NewID: func() string {
			f.ids++
			return fmt.Sprintf("id-%d", f.ids)
		},
	})

	for _, id := range []string{"e-1", "e-2"} {
		if _, err := f.svc.CreateEmployee(f.ctx, goals.Employee{ID: id, Name: "Employee " + id}); err != nil {
			t.Fatalf("create employee: %v", err)
		}
	}

	return f
}

func (f *fixture) goal(target *float64) *goals.Goal {
	f.t.Helper()

	g, err := f.svc.CreateGoal(f.ctx, goals.Goal{
		Name:        "Closed deals",
		Sector:      goals.SectorSales,
		MetricType:  goals.MetricCount,
		TargetValue: target,
		StartDate:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		f.t.Fatalf("create goal: %v", err)
	}
	return g
}

func (f *fixture) assign(goalID, employeeID string, target float64) goals.AssignedGoal {
	f.t.Helper()

	created, err := f.svc.AssignGoal(f.ctx, goalID, goals.AssignParams{
		EmployeeIDs: []string{employeeID},
		TargetValue: &target,
		GoalType:    goals.GoalTypeWeekly,
	})
	if err != nil {
		f.t.Fatalf("assign goal: %v", err)
	}
	return created[0]
}

func (f *fixture) addInstance(assignedGoalID string, weekOffset int, target float64) goals.GoalInstance {
	f.t.Helper()

	start, end, _ := goals.PeriodFor(goals.GoalTypeWeekly, now.AddDate(0, 0, 7*weekOffset))
	inst := goals.GoalInstance{
		ID:             fmt.Sprintf("%s-w%d", assignedGoalID, weekOffset),
		AssignedGoalID: assignedGoalID,
		PeriodStart:    start,
		PeriodEnd:      end,
		TargetValue:    target,
		Status:         goals.StatusPending,
	}
	if err := f.mem.CreateInstance(f.ctx, &inst); err != nil {
		f.t.Fatalf("create instance: %v", err)
	}
	return inst
}

func (f *fixture) instance(id string) *goals.GoalInstance {
	f.t.Helper()
	inst, err := f.mem.GetInstance(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get instance %s: %v", id, err)
	}
	return inst
}

func (f *fixture) assignment(id string) *goals.AssignedGoal {
	f.t.Helper()
	a, err := f.mem.GetAssignedGoal(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get assignment %s: %v", id, err)
	}
	return a
}

func TestAssignGoalCreatesCurrentInstance(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	base := 30.0
	g := f.goal(&base)

	created, err := f.svc.AssignGoal(f.ctx, g.ID, goals.AssignParams{
		EmployeeIDs: []string{"e-1", "e-2", "e-1"},
		GoalType:    goals.GoalTypeWeekly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected duplicates to be skipped, got %d assignments", len(created))
	}

	for _, a := range created {
		if a.TargetValue != 30 || a.Status != goals.StatusPending {
			t.Fatalf("unexpected assignment %+v", a)
		}
		if len(a.Instances) != 1 || !a.Instances[0].Contains(now) {
			t.Fatalf("expected one instance for the current week, got %+v", a.Instances)
		}
	}
}

func TestAssignGoalRequiresTarget(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)

	_, err := f.svc.AssignGoal(f.ctx, g.ID, goals.AssignParams{EmployeeIDs: []string{"e-1"}, GoalType: goals.GoalTypeDaily})
	if goals.ErrorKind(err) != goals.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = f.svc.AssignGoal(f.ctx, g.ID, goals.AssignParams{EmployeeIDs: []string{"ghost"}, GoalType: goals.GoalTypeDaily, TargetValue: ptr(5)})
	if !errors.Is(err, goals.ErrNotFound) {
		t.Fatalf("expected not found for unknown employee, got %v", err)
	}
}

func TestGoalDetailsUnsetGoalTarget(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)

	a1 := f.assign(g.ID, "e-1", 100)
	a2 := f.assign(g.ID, "e-2", 50)
	if _, err := f.svc.RecordProgress(f.ctx, a1.ID, goals.RecordParams{Value: 40}); err != nil {
		t.Fatalf("record progress: %v", err)
	}
	if _, err := f.svc.RecordProgress(f.ctx, a2.ID, goals.RecordParams{Value: 50}); err != nil {
		t.Fatalf("record progress: %v", err)
	}

	details, err := f.svc.GoalDetails(f.ctx, g.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.TotalTargetValue != 150 || details.TotalCurrentValue != 90 || details.OverallProgress != 60 {
		t.Fatalf("unexpected totals: target %v current %v progress %d",
			details.TotalTargetValue, details.TotalCurrentValue, details.OverallProgress)
	}
	if len(details.AssignedTo) != 2 {
		t.Fatalf("expected 2 assignees, got %d", len(details.AssignedTo))
	}
	if len(details.Assignments[0].Instances) != 1 {
		t.Fatalf("expected nested instances, got %+v", details.Assignments[0].Instances)
	}
}

func TestUpdateTargetKeepsPastInstances(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)

	past := f.addInstance(a.ID, -1, 10)
	future := f.addInstance(a.ID, 1, 10)
	current := a.Instances[0]

	updated, err := f.svc.UpdateTarget(f.ctx, a.ID, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TargetValue != 25 {
		t.Fatalf("expected assignment target 25, got %v", updated.TargetValue)
	}

	if got := f.instance(past.ID); got.TargetValue != 10 || !got.UpdatedAt.IsZero() {
		t.Fatalf("past instance must stay untouched, got %+v", got)
	}
	// The current week started on Monday, before today.
	if got := f.instance(current.ID); got.TargetValue != 10 {
		t.Fatalf("current instance started before today, got target %v", got.TargetValue)
	}
	if got := f.instance(future.ID); got.TargetValue != 25 {
		t.Fatalf("expected future instance target 25, got %v", got.TargetValue)
	}
}

func TestUpdateTargetRecomputesProgress(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)

	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 5}); err != nil {
		t.Fatalf("record progress: %v", err)
	}

	updated, err := f.svc.UpdateTarget(f.ctx, a.ID, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Progress != 25 || updated.Status != goals.StatusInProgress {
		t.Fatalf("expected 25%% in-progress, got %d%% %s", updated.Progress, updated.Status)
	}
}

func TestExtendTargetCompletedAssignment(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 100)

	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 100}); err != nil {
		t.Fatalf("record progress: %v", err)
	}
	if got := f.assignment(a.ID); got.Status != goals.StatusCompleted || !goals.CanExtend(*got) {
		t.Fatalf("expected completed assignment, got %s", got.Status)
	}

	extended, err := f.svc.ExtendTarget(f.ctx, a.ID, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extended.TargetValue != 120 || extended.Status != goals.StatusInProgress || extended.Progress != 83 {
		t.Fatalf("unexpected extended assignment %+v", extended)
	}

	inst := f.instance(a.Instances[0].ID)
	if inst.TargetValue != 120 || inst.Status != goals.StatusInProgress || inst.Progress != 83 {
		t.Fatalf("unexpected latest instance %+v", inst)
	}
}

func TestExtendTargetIsMonotonicForAnyStatus(t *testing.T) {
	for _, status := range []goals.Status{goals.StatusPending, goals.StatusInProgress, goals.StatusOverdue, goals.StatusStopped} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, goals.CascadeFailStop)
			g := f.goal(nil)
			a := f.assign(g.ID, "e-1", 40)

			s := status
			if _, err := f.mem.UpdateAssignedGoal(f.ctx, a.ID, goals.AssignedGoalPatch{Status: &s}); err != nil {
				t.Fatalf("seed status: %v", err)
			}

			extended, err := f.svc.ExtendTarget(f.ctx, a.ID, 0.5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if extended.TargetValue < 40 || extended.Status != goals.StatusInProgress {
				t.Fatalf("unexpected extended assignment %+v", extended)
			}
		})
	}
}

func TestExtendTargetTouchesOnlyLatestInstance(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)
	next := f.addInstance(a.ID, 1, 12)

	if _, err := f.svc.ExtendTarget(f.ctx, a.ID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.instance(next.ID); got.TargetValue != 15 {
		t.Fatalf("expected latest instance target 15, got %v", got.TargetValue)
	}
	if got := f.instance(a.Instances[0].ID); got.TargetValue != 10 {
		t.Fatalf("expected older instance untouched, got %v", got.TargetValue)
	}
}

func TestInvalidArgumentsFailBeforeIO(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	f.log.reset()

	checks := map[string]error{}
	_, checks["update zero"] = f.svc.UpdateTarget(f.ctx, "a", 0)
	_, checks["update negative"] = f.svc.UpdateTarget(f.ctx, "a", -3)
	_, checks["extend zero"] = f.svc.ExtendTarget(f.ctx, "a", 0)
	_, checks["record zero"] = f.svc.RecordProgress(f.ctx, "a", goals.RecordParams{})

	for name, err := range checks {
		var validation *goals.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("%s: expected *ValidationError, got %v", name, err)
		}
	}
	if len(f.log.reads)+len(f.log.calls) != 0 {
		t.Fatalf("expected no store calls, got reads %v writes %v", f.log.reads, f.log.calls)
	}
}

func TestMissingRecordsReportNotFound(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)

	_, err := f.svc.ExtendTarget(f.ctx, "missing", 5)
	if !errors.Is(err, goals.ErrNotFound) || goals.ErrorKind(err) != goals.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := f.svc.StopGoal(f.ctx, "missing"); !errors.Is(err, goals.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.svc.DeleteGoal(f.ctx, "missing"); !errors.Is(err, goals.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStopGoal(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)

	stopped, err := f.svc.StopGoal(f.ctx, a.Instances[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stopped.Status != goals.StatusStopped || f.assignment(a.ID).Status != goals.StatusStopped {
		t.Fatalf("expected instance and assignment stopped")
	}

	_, err = f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 1})
	if goals.ErrorKind(err) != goals.KindValidation {
		t.Fatalf("expected stopped assignment to reject records, got %v", err)
	}
}

func TestRemoveAssignee(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a1 := f.assign(g.ID, "e-1", 10)
	a2 := f.assign(g.ID, "e-2", 10)
	f.addInstance(a1.ID, 1, 10)

	if err := f.svc.RemoveAssignee(f.ctx, a1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := f.mem.Snapshot()
	if len(snap.AssignedGoals) != 1 || snap.AssignedGoals[0].ID != a2.ID {
		t.Fatalf("expected only %s to remain, got %+v", a2.ID, snap.AssignedGoals)
	}
	if len(snap.Instances) != 1 || snap.Instances[0].AssignedGoalID != a2.ID {
		t.Fatalf("expected only the instance of %s to remain, got %+v", a2.ID, snap.Instances)
	}
	if !f.cache.invalidatedEmployee("e-1") || !f.cache.invalidatedGoal(g.ID) {
		t.Fatalf("expected employee and goal caches invalidated, got %+v", f.cache)
	}
}

func deleteFixture(t *testing.T, cascade goals.CascadeMode) (*fixture, *goals.Goal) {
	f := newFixture(t, cascade)
	g := f.goal(nil)
	for _, employeeID := range []string{"e-1", "e-2"} {
		a := f.assign(g.ID, employeeID, 10)
		f.addInstance(a.ID, -1, 10)
		f.addInstance(a.ID, 1, 10)
	}
	f.log.reset()
	return f, g
}

func TestDeleteGoalCascadeOrder(t *testing.T) {
	f, g := deleteFixture(t, goals.CascadeFailStop)

	if err := f.svc.DeleteGoal(f.ctx, g.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"delete_instance", "delete_instance", "delete_instance",
		"delete_instance", "delete_instance", "delete_instance",
		"delete_assigned_goal", "delete_assigned_goal",
		"delete_goal",
	}
	if fmt.Sprint(f.log.calls) != fmt.Sprint(want) {
		t.Fatalf("unexpected call order:\n got %v\nwant %v", f.log.calls, want)
	}

	snap := f.mem.Snapshot()
	if len(snap.Goals)+len(snap.AssignedGoals)+len(snap.Instances) != 0 {
		t.Fatalf("expected everything deleted, got %+v", snap)
	}
}

func TestDeleteGoalFailStopKeepsGoal(t *testing.T) {
	f, g := deleteFixture(t, goals.CascadeFailStop)
	f.log.failInstanceDeleteAt = 5

	err := f.svc.DeleteGoal(f.ctx, g.ID)

	var partial *goals.PartialCascadeError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialCascadeError, got %v", err)
	}
	if partial.Stage != goals.StageInstances || partial.Deleted.Instances != 4 || partial.Deleted.Assignments != 0 {
		t.Fatalf("unexpected partial state %+v", partial)
	}

	if _, err := f.mem.GetGoal(f.ctx, g.ID); err != nil {
		t.Fatalf("goal must still exist after a failed cascade: %v", err)
	}
	// Fail-stop: completed deletes are not rolled back.
	if n := len(f.mem.Snapshot().Instances); n != 2 {
		t.Fatalf("expected 2 instances left, got %d", n)
	}
	if last := f.metrics.last(); last.op != goals.OpDeleteGoal || goals.ErrorKind(last.err) != goals.KindPartialCascade {
		t.Fatalf("expected observed partial cascade, got %+v", last)
	}
}

func TestDeleteGoalTransactionalRollsBack(t *testing.T) {
	f, g := deleteFixture(t, goals.CascadeTransactional)
	f.log.failInstanceDeleteAt = 5

	err := f.svc.DeleteGoal(f.ctx, g.ID)

	var persistence *goals.PersistenceError
	if !errors.As(err, &persistence) || goals.ErrorKind(err) != goals.KindPersistence {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}

	snap := f.mem.Snapshot()
	if len(snap.Goals) != 1 || len(snap.AssignedGoals) != 2 || len(snap.Instances) != 6 {
		t.Fatalf("expected untouched state after rollback, got %d goals %d assignments %d instances",
			len(snap.Goals), len(snap.AssignedGoals), len(snap.Instances))
	}
}

func TestRecordProgressSyncsLatestInstance(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)

	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 4, Notes: "first calls"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inst := f.instance(a.Instances[0].ID)
	if inst.CurrentValue != 4 || inst.Progress != 40 || inst.Status != goals.StatusInProgress {
		t.Fatalf("unexpected instance %+v", inst)
	}

	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 6}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := f.assignment(a.ID)
	if got.CurrentValue != 10 || got.Progress != 100 || got.Status != goals.StatusCompleted {
		t.Fatalf("unexpected assignment %+v", got)
	}

	records, err := f.svc.TrackingRecords(f.ctx, a.ID)
	if err != nil || len(records) != 2 {
		t.Fatalf("expected 2 tracking records, got %d (%v)", len(records), err)
	}
}

func TestRecordProgressForPastPeriod(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)

	lastWeek := now.AddDate(0, 0, -7)
	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 3, Date: lastWeek}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	classified, err := f.svc.Instances(f.ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(classified.History) != 1 || classified.History[0].CurrentValue != 3 {
		t.Fatalf("expected a history instance with value 3, got %+v", classified.History)
	}
	// Only the latest instance is mirrored on the assignment.
	if got := f.assignment(a.ID); got.CurrentValue != 0 {
		t.Fatalf("expected assignment untouched, got current %v", got.CurrentValue)
	}
}

func TestRollInstancesStartsNewPeriod(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)
	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 3}); err != nil {
		t.Fatalf("record progress: %v", err)
	}

	*f.clock = now.AddDate(0, 0, 7)
	result, err := f.svc.RollInstances(f.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != (goals.RollResult{Created: 1, MarkedOverdue: 1}) {
		t.Fatalf("unexpected result %+v", result)
	}

	if got := f.instance(a.Instances[0].ID); got.Status != goals.StatusOverdue {
		t.Fatalf("expected ended instance overdue, got %s", got.Status)
	}
	got := f.assignment(a.ID)
	if got.CurrentValue != 0 || got.Progress != 0 || got.Status != goals.StatusPending {
		t.Fatalf("expected assignment reset for the new period, got %+v", got)
	}

	again, err := f.svc.RollInstances(f.ctx)
	if err != nil || again != (goals.RollResult{}) {
		t.Fatalf("expected second roll to be a no-op, got %+v (%v)", again, err)
	}
}

func TestRollInstancesAfterGoalEnd(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	a := f.assign(g.ID, "e-1", 10)

	*f.clock = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.RollInstances(f.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 0 {
		t.Fatalf("expected no new instance after the goal ended, got %+v", result)
	}
	if got := f.assignment(a.ID); got.Status != goals.StatusOverdue {
		t.Fatalf("expected assignment overdue, got %s", got.Status)
	}
}

func TestRollInstancesOnLastValidDay(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g, err := f.svc.CreateGoal(f.ctx, goals.Goal{
		Name:       "Daily calls",
		Sector:     goals.SectorSales,
		MetricType: goals.MetricCount,
		StartDate:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	target := 5.0
	created, err := f.svc.AssignGoal(f.ctx, g.ID, goals.AssignParams{
		EmployeeIDs: []string{"e-1"},
		TargetValue: &target,
		GoalType:    goals.GoalTypeDaily,
	})
	if err != nil {
		t.Fatalf("assign goal: %v", err)
	}
	a := created[0]

	// Drop the instance AssignGoal opened so the roll on the last day has to
	// create one.
	if err := f.mem.DeleteInstance(f.ctx, a.Instances[0].ID); err != nil {
		t.Fatalf("delete instance: %v", err)
	}

	result, err := f.svc.RollInstances(f.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected the last day to get an instance, got %+v", result)
	}
	if got := f.assignment(a.ID); got.Status != goals.StatusPending {
		t.Fatalf("expected assignment still open on its last day, got %s", got.Status)
	}

	*f.clock = time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RollInstances(f.ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.assignment(a.ID); got.Status != goals.StatusOverdue {
		t.Fatalf("expected assignment overdue the day after, got %s", got.Status)
	}
}

func TestRecordProgressDateFromOtherZone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	f := newFixture(t, goals.CascadeFailStop)
	*f.clock = time.Date(2025, time.March, 12, 10, 0, 0, 0, newYork)
	g := f.goal(nil)

	target := 5.0
	created, err := f.svc.AssignGoal(f.ctx, g.ID, goals.AssignParams{
		EmployeeIDs: []string{"e-1"},
		TargetValue: &target,
		GoalType:    goals.GoalTypeDaily,
	})
	if err != nil {
		t.Fatalf("assign goal: %v", err)
	}
	a := created[0]

	// A calendar date as parsed by the HTTP API.
	day := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 2, Date: day}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instances, err := f.mem.ListInstances(f.ctx, goals.InstanceFilter{AssignedGoalID: a.ID})
	if err != nil {
		t.Fatalf("list instances: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("expected the record to land in the existing instance, got %d instances", len(instances))
	}
	if instances[0].CurrentValue != 2 {
		t.Fatalf("expected current 2 on the day's instance, got %v", instances[0].CurrentValue)
	}
}

func TestEmployeeGoalsCached(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)
	g := f.goal(nil)
	f.assign(g.ID, "e-1", 10)

	list, err := f.svc.EmployeeGoals(f.ctx, "e-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 assignment, got %d (%v)", len(list), err)
	}
	if _, ok := f.cache.employees["e-1"]; !ok {
		t.Fatalf("expected employee goals cached")
	}

	if _, err := f.svc.EmployeeGoals(f.ctx, "ghost"); !errors.Is(err, goals.ErrNotFound) {
		t.Fatalf("expected not found for unknown employee, got %v", err)
	}
}

func TestStatisticsAcrossGoals(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)

	done := f.goal(nil)
	for _, employeeID := range []string{"e-1", "e-2"} {
		a := f.assign(done.ID, employeeID, 5)
		if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 5}); err != nil {
			t.Fatalf("record progress: %v", err)
		}
	}

	mixed := f.goal(nil)
	a := f.assign(mixed.ID, "e-1", 5)
	if _, err := f.svc.RecordProgress(f.ctx, a.ID, goals.RecordParams{Value: 5}); err != nil {
		t.Fatalf("record progress: %v", err)
	}
	b := f.assign(mixed.ID, "e-2", 5)
	if _, err := f.svc.RecordProgress(f.ctx, b.ID, goals.RecordParams{Value: 1}); err != nil {
		t.Fatalf("record progress: %v", err)
	}

	stats, err := f.svc.Statistics(f.ctx, goals.GoalFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalGoals != 2 || stats.CompletedGoals != 1 || stats.InProgressGoals != 1 || stats.CompletionRate != 50 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
}

func TestMutationLogging(t *testing.T) {
	f := newFixture(t, goals.CascadeFailStop)

	_, _ = f.svc.ExtendTarget(f.ctx, "missing", 1)

	entries := f.logs.FilterMessage("goal mutation rejected").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 rejected entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["operation"] != goals.OpExtendTarget || ctx["kind"] != goals.KindNotFound || ctx["assigned_goal_id"] != "missing" {
		t.Fatalf("unexpected log context %v", ctx)
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
}

func ptr(v float64) *float64 { return &v }

type callLog struct {
	reads                []string
	calls                []string
	instanceDeletes      int
	failInstanceDeleteAt int
}

func (l *callLog) reset() {
	*l = callLog{}
}

// recordingStore tracks reads and destructive calls and can fail the n-th
// instance delete.
type recordingStore struct {
	goals.Store
	log *callLog
}

func (r *recordingStore) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	r.log.reads = append(r.log.reads, "get_goal")
	return r.Store.GetGoal(ctx, id)
}

func (r *recordingStore) GetAssignedGoal(ctx context.Context, id string) (*goals.AssignedGoal, error) {
	r.log.reads = append(r.log.reads, "get_assigned_goal")
	return r.Store.GetAssignedGoal(ctx, id)
}

func (r *recordingStore) DeleteInstance(ctx context.Context, id string) error {
	r.log.calls = append(r.log.calls, "delete_instance")
	r.log.instanceDeletes++
	if r.log.instanceDeletes == r.log.failInstanceDeleteAt {
		return errors.New("connection reset by peer")
	}
	return r.Store.DeleteInstance(ctx, id)
}

func (r *recordingStore) DeleteAssignedGoal(ctx context.Context, id string) error {
	r.log.calls = append(r.log.calls, "delete_assigned_goal")
	return r.Store.DeleteAssignedGoal(ctx, id)
}

func (r *recordingStore) DeleteGoal(ctx context.Context, id string) error {
	r.log.calls = append(r.log.calls, "delete_goal")
	return r.Store.DeleteGoal(ctx, id)
}

func (r *recordingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx goals.Store) error) error {
	return r.Store.(goals.Transactor).WithinTx(ctx, func(ctx context.Context, tx goals.Store) error {
		return fn(ctx, &recordingStore{Store: tx, log: r.log})
	})
}

type recordingCache struct {
	goals       map[string]*goals.GoalWithDetails
	employees   map[string][]goals.AssignedGoal
	invalidated []string
}

func (c *recordingCache) Goal(id string) (*goals.GoalWithDetails, bool) {
	g, ok := c.goals[id]
	return g, ok
}

func (c *recordingCache) PutGoal(d *goals.GoalWithDetails) {
	if c.goals == nil {
		c.goals = map[string]*goals.GoalWithDetails{}
	}
	c.goals[d.Goal.ID] = d
}

func (c *recordingCache) EmployeeGoals(id string) ([]goals.AssignedGoal, bool) {
	list, ok := c.employees[id]
	return list, ok
}

func (c *recordingCache) PutEmployeeGoals(id string, list []goals.AssignedGoal) {
	if c.employees == nil {
		c.employees = map[string][]goals.AssignedGoal{}
	}
	c.employees[id] = list
}

func (c *recordingCache) InvalidateGoal(id string) {
	delete(c.goals, id)
	c.invalidated = append(c.invalidated, "goal:"+id)
}

func (c *recordingCache) InvalidateEmployee(id string) {
	delete(c.employees, id)
	c.invalidated = append(c.invalidated, "employee:"+id)
}

func (c *recordingCache) invalidatedGoal(id string) bool {
	return c.has("goal:" + id)
}

func (c *recordingCache) invalidatedEmployee(id string) bool {
	return c.has("employee:" + id)
}

func (c *recordingCache) has(key string) bool {
	for _, k := range c.invalidated {
		if k == key {
			return true
		}
	}
	return false
}

type observation struct {
	op  string
	err error
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) ObserveMutation(op string, _ time.Duration, err error) {
	o.seen = append(o.seen, observation{op: op, err: err})
}

func (o *recordingObserver) last() observation {
	if len(o.seen) == 0 {
		return observation{}
	}
	return o.seen[len(o.seen)-1]
}
