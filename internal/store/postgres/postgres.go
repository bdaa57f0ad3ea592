// Package postgres stores goal records in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/logger"
)

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

var (
	_ goals.Store      = (*Store)(nil)
	_ goals.Transactor = (*Store)(nil)
)

// Open connects to dsn. The simple protocol keeps the store usable behind
// PgBouncer in transaction pooling mode.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(time.Minute)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return New(db, log), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, logger: logger.OrNop(log), now: time.Now}
}

// Migrate creates or updates the goal tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&employeeRow{}, &goalRow{}, &assignedGoalRow{}, &instanceRow{}, &trackingRecordRow{},
	); err != nil {
		return fmt.Errorf("migrating goal tables: %w", err)
	}
	s.logger.Info("goal tables migrated")
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx goals.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, logger: s.logger, now: s.now})
	})
}

func (s *Store) CreateEmployee(ctx context.Context, e *goals.Employee) error {
	row := employeeFromDomain(e)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*goals.Employee, error) {
	var row employeeRow
	if err := s.first(ctx, &row, "employee", id); err != nil {
		return nil, err
	}
	e, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateGoal(ctx context.Context, g *goals.Goal) error {
	row := goalFromDomain(g)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	var row goalRow
	if err := s.first(ctx, &row, "goal", id); err != nil {
		return nil, err
	}
	g, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGoals(ctx context.Context, filter goals.GoalFilter) ([]goals.Goal, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if filter.Sector != "" {
		q = q.Where("sector = ?", string(filter.Sector))
	}

	var rows []goalRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, goalRow.toDomain)
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &goalRow{}, "goal", id)
}

func (s *Store) CreateAssignedGoal(ctx context.Context, a *goals.AssignedGoal) error {
	row := assignedGoalFromDomain(a)
	return s.db.WithContext(ctx).Omit("Employee").Create(&row).Error
}

func (s *Store) GetAssignedGoal(ctx context.Context, id string) (*goals.AssignedGoal, error) {
	var row assignedGoalRow
	err := s.db.WithContext(ctx).Preload("Employee").Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, s.notFound(err, "assigned goal", id)
	}
	a, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAssignedGoals(ctx context.Context, filter goals.AssignmentFilter) ([]goals.AssignedGoal, error) {
	q := s.db.WithContext(ctx).Preload("Employee").Order("assigned_at").Order("id")
	if filter.GoalID != "" {
		q = q.Where("goal_id = ?", filter.GoalID)
	}
	if filter.EmployeeID != "" {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}

	var rows []assignedGoalRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, assignedGoalRow.toDomain)
}

func (s *Store) UpdateAssignedGoal(ctx context.Context, id string, patch goals.AssignedGoalPatch) (*goals.AssignedGoal, error) {
	res := s.db.WithContext(ctx).Model(&assignedGoalRow{}).Where("id = ?", id).Updates(assignedGoalColumns(patch, s.now()))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &goals.NotFoundError{Kind: "assigned goal", ID: id}
	}
	return s.GetAssignedGoal(ctx, id)
}

func (s *Store) DeleteAssignedGoal(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("assigned_goal_id = ?", id).Delete(&trackingRecordRow{}).Error; err != nil {
		return err
	}
	return s.deleteByID(ctx, &assignedGoalRow{}, "assigned goal", id)
}

func (s *Store) CreateInstance(ctx context.Context, inst *goals.GoalInstance) error {
	row := instanceFromDomain(inst)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetInstance(ctx context.Context, id string) (*goals.GoalInstance, error) {
	var row instanceRow
	if err := s.first(ctx, &row, "goal instance", id); err != nil {
		return nil, err
	}
	inst, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *Store) ListInstances(ctx context.Context, filter goals.InstanceFilter) ([]goals.GoalInstance, error) {
	q := s.db.WithContext(ctx).Order("period_end DESC").Order("id")
	if filter.AssignedGoalID != "" {
		q = q.Where("assigned_goal_id = ?", filter.AssignedGoalID)
	}

	var rows []instanceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, instanceRow.toDomain)
}

func (s *Store) UpdateInstance(ctx context.Context, id string, patch goals.InstancePatch) (*goals.GoalInstance, error) {
	res := s.db.WithContext(ctx).Model(&instanceRow{}).Where("id = ?", id).Updates(instanceColumns(patch, s.now()))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &goals.NotFoundError{Kind: "goal instance", ID: id}
	}
	return s.GetInstance(ctx, id)
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &instanceRow{}, "goal instance", id)
}

func (s *Store) DeleteInstances(ctx context.Context, filter goals.InstanceFilter) (int, error) {
	q := s.db.WithContext(ctx)
	if filter.AssignedGoalID != "" {
		q = q.Where("assigned_goal_id = ?", filter.AssignedGoalID)
	} else {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}

	res := q.Delete(&instanceRow{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (s *Store) CreateTrackingRecord(ctx context.Context, r *goals.TrackingRecord) error {
	row := trackingRecordFromDomain(r)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) ListTrackingRecords(ctx context.Context, assignedGoalID string) ([]goals.TrackingRecord, error) {
	var rows []trackingRecordRow
	err := s.db.WithContext(ctx).
		Where("assigned_goal_id = ?", assignedGoalID).
		Order("record_date DESC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return mapRows(rows, trackingRecordRow.toDomain)
}

func (s *Store) first(ctx context.Context, dest any, kind, id string) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).First(dest).Error
	return s.notFound(err, kind, id)
}

func (s *Store) deleteByID(ctx context.Context, model any, kind, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &goals.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func (s *Store) notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &goals.NotFoundError{Kind: kind, ID: id}
	}
	return err
}

func mapRows[R any, D any](rows []R, convert func(R) (D, error)) ([]D, error) {
	out := make([]D, 0, len(rows))
	for _, row := range rows {
		d, err := convert(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
