package postgres

import (
	"fmt"
	"time"

	"github.com/spigell/goal-tracker/internal/goals"
)

type employeeRow struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	Name       string `gorm:"not null"`
	Email      string
	Department string
	Position   string
}

func (employeeRow) TableName() string { return "employees" }

type goalRow struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	Name        string `gorm:"not null"`
	Description string
	Sector      string `gorm:"index;not null"`
	MetricType  string `gorm:"not null"`
	MetricUnit  string
	TargetValue *float64
	StartDate   time.Time `gorm:"not null"`
	EndDate     time.Time `gorm:"not null"`
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (goalRow) TableName() string { return "goals" }

type assignedGoalRow struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	GoalID       string `gorm:"index;not null;type:varchar(64)"`
	EmployeeID   string `gorm:"index;not null;type:varchar(64)"`
	TargetValue  float64
	CurrentValue float64
	Progress     int
	Status       string `gorm:"not null"`
	GoalType     string `gorm:"not null"`
	Notes        string
	AssignedAt   time.Time
	UpdatedAt    time.Time

	Employee *employeeRow `gorm:"foreignKey:EmployeeID"`
}

func (assignedGoalRow) TableName() string { return "assigned_goals" }

type instanceRow struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	AssignedGoalID string    `gorm:"index;not null;type:varchar(64)"`
	PeriodStart    time.Time `gorm:"not null"`
	PeriodEnd      time.Time `gorm:"index;not null"`
	TargetValue    float64
	CurrentValue   float64
	Progress       int
	Status         string `gorm:"not null"`
	Notes          string
	UpdatedAt      time.Time
}

func (instanceRow) TableName() string { return "goal_instances" }

type trackingRecordRow struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	AssignedGoalID string    `gorm:"index;not null;type:varchar(64)"`
	Value          float64   `gorm:"not null"`
	RecordDate     time.Time `gorm:"not null"`
	Notes          string
	CreatedAt      time.Time
}

func (trackingRecordRow) TableName() string { return "tracking_records" }

func employeeFromDomain(e *goals.Employee) employeeRow {
	return employeeRow{ID: e.ID, Name: e.Name, Email: e.Email, Department: e.Department, Position: e.Position}
}

func (r employeeRow) toDomain() (goals.Employee, error) {
	e := goals.Employee{ID: r.ID, Name: r.Name, Email: r.Email, Department: r.Department, Position: r.Position}
	return e, checked("employee", r.ID, e)
}

func goalFromDomain(g *goals.Goal) goalRow {
	return goalRow{
		ID: g.ID, Name: g.Name, Description: g.Description,
		Sector: string(g.Sector), MetricType: string(g.MetricType), MetricUnit: g.MetricUnit,
		TargetValue: g.TargetValue, StartDate: g.StartDate, EndDate: g.EndDate,
		CreatedBy: g.CreatedBy, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt,
	}
}

func (r goalRow) toDomain() (goals.Goal, error) {
	g := goals.Goal{
		ID: r.ID, Name: r.Name, Description: r.Description,
		Sector: goals.Sector(r.Sector), MetricType: goals.MetricType(r.MetricType), MetricUnit: r.MetricUnit,
		TargetValue: r.TargetValue, StartDate: r.StartDate, EndDate: r.EndDate,
		CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	return g, checked("goal", r.ID, g)
}

func assignedGoalFromDomain(a *goals.AssignedGoal) assignedGoalRow {
	return assignedGoalRow{
		ID: a.ID, GoalID: a.GoalID, EmployeeID: a.EmployeeID,
		TargetValue: a.TargetValue, CurrentValue: a.CurrentValue, Progress: a.Progress,
		Status: string(a.Status), GoalType: string(a.GoalType), Notes: a.Notes,
		AssignedAt: a.AssignedAt, UpdatedAt: a.UpdatedAt,
	}
}

func (r assignedGoalRow) toDomain() (goals.AssignedGoal, error) {
	a := goals.AssignedGoal{
		ID: r.ID, GoalID: r.GoalID, EmployeeID: r.EmployeeID,
		TargetValue: r.TargetValue, CurrentValue: r.CurrentValue, Progress: r.Progress,
		Status: goals.Status(r.Status), GoalType: goals.GoalType(r.GoalType), Notes: r.Notes,
		AssignedAt: r.AssignedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.Employee != nil {
		e, err := r.Employee.toDomain()
		if err != nil {
			return a, err
		}
		a.Employee = &e
	}
	return a, checked("assigned goal", r.ID, a)
}

func instanceFromDomain(i *goals.GoalInstance) instanceRow {
	return instanceRow{
		ID: i.ID, AssignedGoalID: i.AssignedGoalID, PeriodStart: i.PeriodStart, PeriodEnd: i.PeriodEnd,
		TargetValue: i.TargetValue, CurrentValue: i.CurrentValue, Progress: i.Progress,
		Status: string(i.Status), Notes: i.Notes, UpdatedAt: i.UpdatedAt,
	}
}

func (r instanceRow) toDomain() (goals.GoalInstance, error) {
	i := goals.GoalInstance{
		ID: r.ID, AssignedGoalID: r.AssignedGoalID, PeriodStart: r.PeriodStart, PeriodEnd: r.PeriodEnd,
		TargetValue: r.TargetValue, CurrentValue: r.CurrentValue, Progress: r.Progress,
		Status: goals.Status(r.Status), Notes: r.Notes, UpdatedAt: r.UpdatedAt,
	}
	return i, checked("goal instance", r.ID, i)
}

func trackingRecordFromDomain(t *goals.TrackingRecord) trackingRecordRow {
	return trackingRecordRow{
		ID: t.ID, AssignedGoalID: t.AssignedGoalID, Value: t.Value,
		RecordDate: t.RecordDate, Notes: t.Notes, CreatedAt: t.CreatedAt,
	}
}

func (r trackingRecordRow) toDomain() (goals.TrackingRecord, error) {
	t := goals.TrackingRecord{
		ID: r.ID, AssignedGoalID: r.AssignedGoalID, Value: r.Value,
		RecordDate: r.RecordDate, Notes: r.Notes, CreatedAt: r.CreatedAt,
	}
	return t, checked("tracking record", r.ID, t)
}

func assignedGoalColumns(p goals.AssignedGoalPatch, now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if p.TargetValue != nil {
		cols["target_value"] = *p.TargetValue
	}
	if p.CurrentValue != nil {
		cols["current_value"] = *p.CurrentValue
	}
	if p.Progress != nil {
		cols["progress"] = *p.Progress
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	return cols
}

func instanceColumns(p goals.InstancePatch, now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if p.TargetValue != nil {
		cols["target_value"] = *p.TargetValue
	}
	if p.CurrentValue != nil {
		cols["current_value"] = *p.CurrentValue
	}
	if p.Progress != nil {
		cols["progress"] = *p.Progress
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	return cols
}

func checked(kind, id string, record any) error {
	if err := goals.Validate(record); err != nil {
		return fmt.Errorf("malformed %s row %q: %w", kind, id, err)
	}
	return nil
}
