package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/spigell/goal-tracker/internal/goals"
)

const (
	collEmployees       = "employees"
	collGoals           = "goals"
	collAssignedGoals   = "assigned_goals"
	collInstances       = "goal_instances"
	collTrackingRecords = "tracking_records"
)

type employeeDoc struct {
	ID         string `bson:"_id"`
	Name       string `bson:"name"`
	Email      string `bson:"email,omitempty"`
	Department string `bson:"department,omitempty"`
	Position   string `bson:"position,omitempty"`
}

type goalDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	Sector      string    `bson:"sector"`
	MetricType  string    `bson:"metric_type"`
	MetricUnit  string    `bson:"metric_unit,omitempty"`
	TargetValue *float64  `bson:"target_value,omitempty"`
	StartDate   time.Time `bson:"start_date"`
	EndDate     time.Time `bson:"end_date"`
	CreatedBy   string    `bson:"created_by,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type assignedGoalDoc struct {
	ID           string    `bson:"_id"`
	GoalID       string    `bson:"goal_id"`
	EmployeeID   string    `bson:"employee_id"`
	TargetValue  float64   `bson:"target_value"`
	CurrentValue float64   `bson:"current_value"`
	Progress     int       `bson:"progress"`
	Status       string    `bson:"status"`
	GoalType     string    `bson:"goal_type"`
	Notes        string    `bson:"notes,omitempty"`
	AssignedAt   time.Time `bson:"assigned_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type instanceDoc struct {
	ID             string    `bson:"_id"`
	AssignedGoalID string    `bson:"assigned_goal_id"`
	PeriodStart    time.Time `bson:"period_start"`
	PeriodEnd      time.Time `bson:"period_end"`
	TargetValue    float64   `bson:"target_value"`
	CurrentValue   float64   `bson:"current_value"`
	Progress       int       `bson:"progress"`
	Status         string    `bson:"status"`
	Notes          string    `bson:"notes,omitempty"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

type trackingRecordDoc struct {
	ID             string    `bson:"_id"`
	AssignedGoalID string    `bson:"assigned_goal_id"`
	Value          float64   `bson:"value"`
	RecordDate     time.Time `bson:"record_date"`
	Notes          string    `bson:"notes,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (d employeeDoc) toDomain() (goals.Employee, error) {
	e := goals.Employee(d)
	return e, checked("employee", d.ID, e)
}

func (d goalDoc) toDomain() (goals.Goal, error) {
	g := goals.Goal{
		ID: d.ID, Name: d.Name, Description: d.Description,
		Sector: goals.Sector(d.Sector), MetricType: goals.MetricType(d.MetricType), MetricUnit: d.MetricUnit,
		TargetValue: d.TargetValue, StartDate: d.StartDate, EndDate: d.EndDate,
		CreatedBy: d.CreatedBy, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	return g, checked("goal", d.ID, g)
}

func (d assignedGoalDoc) toDomain() (goals.AssignedGoal, error) {
	a := goals.AssignedGoal{
		ID: d.ID, GoalID: d.GoalID, EmployeeID: d.EmployeeID,
		TargetValue: d.TargetValue, CurrentValue: d.CurrentValue, Progress: d.Progress,
		Status: goals.Status(d.Status), GoalType: goals.GoalType(d.GoalType), Notes: d.Notes,
		AssignedAt: d.AssignedAt, UpdatedAt: d.UpdatedAt,
	}
	return a, checked("assigned goal", d.ID, a)
}

func (d instanceDoc) toDomain() (goals.GoalInstance, error) {
	i := goals.GoalInstance{
		ID: d.ID, AssignedGoalID: d.AssignedGoalID, PeriodStart: d.PeriodStart, PeriodEnd: d.PeriodEnd,
		TargetValue: d.TargetValue, CurrentValue: d.CurrentValue, Progress: d.Progress,
		Status: goals.Status(d.Status), Notes: d.Notes, UpdatedAt: d.UpdatedAt,
	}
	return i, checked("goal instance", d.ID, i)
}

func (d trackingRecordDoc) toDomain() (goals.TrackingRecord, error) {
	r := goals.TrackingRecord(d)
	return r, checked("tracking record", d.ID, r)
}

func goalToDoc(g *goals.Goal) goalDoc {
	return goalDoc{
		ID: g.ID, Name: g.Name, Description: g.Description,
		Sector: string(g.Sector), MetricType: string(g.MetricType), MetricUnit: g.MetricUnit,
		TargetValue: g.TargetValue, StartDate: g.StartDate, EndDate: g.EndDate,
		CreatedBy: g.CreatedBy, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt,
	}
}

func assignedGoalToDoc(a *goals.AssignedGoal) assignedGoalDoc {
	return assignedGoalDoc{
		ID: a.ID, GoalID: a.GoalID, EmployeeID: a.EmployeeID,
		TargetValue: a.TargetValue, CurrentValue: a.CurrentValue, Progress: a.Progress,
		Status: string(a.Status), GoalType: string(a.GoalType), Notes: a.Notes,
		AssignedAt: a.AssignedAt, UpdatedAt: a.UpdatedAt,
	}
}

func instanceToDoc(i *goals.GoalInstance) instanceDoc {
	return instanceDoc{
		ID: i.ID, AssignedGoalID: i.AssignedGoalID, PeriodStart: i.PeriodStart, PeriodEnd: i.PeriodEnd,
		TargetValue: i.TargetValue, CurrentValue: i.CurrentValue, Progress: i.Progress,
		Status: string(i.Status), Notes: i.Notes, UpdatedAt: i.UpdatedAt,
	}
}

func assignedGoalSet(p goals.AssignedGoalPatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if p.TargetValue != nil {
		set["target_value"] = *p.TargetValue
	}
	if p.CurrentValue != nil {
		set["current_value"] = *p.CurrentValue
	}
	if p.Progress != nil {
		set["progress"] = *p.Progress
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	return bson.M{"$set": set}
}

func instanceSet(p goals.InstancePatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if p.TargetValue != nil {
		set["target_value"] = *p.TargetValue
	}
	if p.CurrentValue != nil {
		set["current_value"] = *p.CurrentValue
	}
	if p.Progress != nil {
		set["progress"] = *p.Progress
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}
	return bson.M{"$set": set}
}

func checked(kind, id string, record any) error {
	if err := goals.Validate(record); err != nil {
		return fmt.Errorf("malformed %s document %q: %w", kind, id, err)
	}
	return nil
}
