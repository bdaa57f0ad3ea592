package goals

import "time"

type Sector string

const (
	SectorHR         Sector = "HR"
	SectorSales      Sector = "Sales"
	SectorFinance    Sector = "Finance"
	SectorOperations Sector = "Operations"
	SectorMarketing  Sector = "Marketing"
)

type MetricType string

const (
	MetricPercentage MetricType = "percentage"
	MetricCurrency   MetricType = "currency"
	MetricCount      MetricType = "count"
	MetricHours      MetricType = "hours"
	MetricCustom     MetricType = "custom"
)

// Status is shared by assignments and instances.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
	// StatusStopped is terminal.
	StatusStopped Status = "stopped"
)

// GoalType determines the cadence of goal instances.
type GoalType string

const (
	GoalTypeDaily   GoalType = "Daily"
	GoalTypeWeekly  GoalType = "Weekly"
	GoalTypeMonthly GoalType = "Monthly"
	GoalTypeYearly  GoalType = "Yearly"
)

type Employee struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// Goal is a sector-scoped performance objective definition.
type Goal struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description,omitempty"`
	Sector      Sector     `json:"sector" validate:"required,oneof=HR Sales Finance Operations Marketing"`
	MetricType  MetricType `json:"metric_type" validate:"required,oneof=percentage currency count hours custom"`
	MetricUnit  string     `json:"metric_unit,omitempty"`
	// TargetValue is the base target; assignments may diverge from it.
	TargetValue *float64  `json:"target_value,omitempty" validate:"omitempty,gte=0"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssignedGoal binds one Goal to one Employee.
type AssignedGoal struct {
	ID           string    `json:"id" validate:"required"`
	GoalID       string    `json:"goal_id" validate:"required"`
	EmployeeID   string    `json:"employee_id" validate:"required"`
	TargetValue  float64   `json:"target_value" validate:"gte=0"`
	CurrentValue float64   `json:"current_value" validate:"gte=0"`
	Progress     int       `json:"progress" validate:"gte=0,lte=100"`
	Status       Status    `json:"status" validate:"required,oneof=pending in-progress completed overdue stopped"`
	GoalType     GoalType  `json:"goal_type" validate:"required,oneof=Daily Weekly Monthly Yearly"`
	Notes        string    `json:"notes,omitempty"`
	AssignedAt   time.Time `json:"assigned_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Employee and Instances are populated by nested fetches only.
	Employee  *Employee      `json:"employee,omitempty" validate:"omitempty"`
	Instances []GoalInstance `json:"instances,omitempty" validate:"omitempty,dive"`
}

// GoalInstance is one recurring tracking period of an AssignedGoal.
type GoalInstance struct {
	ID             string    `json:"id" validate:"required"`
	AssignedGoalID string    `json:"assigned_goal_id" validate:"required"`
	PeriodStart    time.Time `json:"period_start" validate:"required"`
	PeriodEnd      time.Time `json:"period_end" validate:"required,gtefield=PeriodStart"`
	TargetValue    float64   `json:"target_value" validate:"gte=0"`
	CurrentValue   float64   `json:"current_value" validate:"gte=0"`
	Progress       int       `json:"progress" validate:"gte=0,lte=100"`
	Status         Status    `json:"status" validate:"required,oneof=pending in-progress completed overdue stopped"`
	Notes          string    `json:"notes,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contains reports whether t falls inside the instance period, bounds included.
func (i GoalInstance) Contains(t time.Time) bool {
	return !t.Before(i.PeriodStart) && !t.After(i.PeriodEnd)
}

// TrackingRecord is an append-only progress entry.
type TrackingRecord struct {
	ID             string    `json:"id" validate:"required"`
	AssignedGoalID string    `json:"assigned_goal_id" validate:"required"`
	Value          float64   `json:"value" validate:"gt=0"`
	RecordDate     time.Time `json:"record_date" validate:"required"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GoalWithDetails is the aggregated view of a goal and its assignments.
type GoalWithDetails struct {
	Goal              Goal           `json:"goal"`
	Assignments       []AssignedGoal `json:"assignments"`
	AssignedTo        []Employee     `json:"assigned_to"`
	TotalTargetValue  float64        `json:"total_target_value"`
	TotalCurrentValue float64        `json:"total_current_value"`
	OverallProgress   int            `json:"overall_progress"`
}

type GoalStatistics struct {
	TotalGoals      int `json:"total_goals"`
	CompletedGoals  int `json:"completed_goals"`
	InProgressGoals int `json:"in_progress_goals"`
	OverdueGoals    int `json:"overdue_goals"`
	PendingGoals    int `json:"pending_goals"`
	CompletionRate  int `json:"completion_rate"`
}

// AssignedGoalPatch lists the assignment columns a mutation may change.
// Nil fields are left untouched.
type AssignedGoalPatch struct {
	TargetValue  *float64
	CurrentValue *float64
	Progress     *int
	Status       *Status
}

// InstancePatch lists the instance columns a mutation may change.
type InstancePatch struct {
	TargetValue  *float64
	CurrentValue *float64
	Progress     *int
	Status       *Status
	Notes        *string
}

// GoalFilter narrows ListGoals. Empty fields match everything.
type GoalFilter struct {
	Sector Sector
}

// AssignmentFilter narrows ListAssignedGoals. Empty fields match everything.
type AssignmentFilter struct {
	GoalID     string
	EmployeeID string
}

// InstanceFilter narrows instance reads and bulk deletes.
type InstanceFilter struct {
	AssignedGoalID string
}
