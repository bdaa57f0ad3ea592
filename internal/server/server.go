package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/ai"
	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// GoalService is the part of goals.Service the API exposes.
type GoalService interface {
	CreateEmployee(ctx context.Context, e goals.Employee) (*goals.Employee, error)
	CreateGoal(ctx context.Context, g goals.Goal) (*goals.Goal, error)
	AssignGoal(ctx context.Context, goalID string, params goals.AssignParams) ([]goals.AssignedGoal, error)
	UpdateTarget(ctx context.Context, assignedGoalID string, newTarget float64) (*goals.AssignedGoal, error)
	ExtendTarget(ctx context.Context, assignedGoalID string, delta float64) (*goals.AssignedGoal, error)
	StopGoal(ctx context.Context, instanceID string) (*goals.GoalInstance, error)
	RemoveAssignee(ctx context.Context, assignedGoalID string) error
	DeleteGoal(ctx context.Context, goalID string) error
	RecordProgress(ctx context.Context, assignedGoalID string, params goals.RecordParams) (*goals.TrackingRecord, error)

	GoalDetails(ctx context.Context, goalID string) (*goals.GoalWithDetails, error)
	ListGoalDetails(ctx context.Context, filter goals.GoalFilter) ([]goals.GoalWithDetails, error)
	EmployeeGoals(ctx context.Context, employeeID string) ([]goals.AssignedGoal, error)
	Assignment(ctx context.Context, assignedGoalID string) (*goals.AssignedGoal, error)
	Instances(ctx context.Context, assignedGoalID string) (goals.ClassifiedInstances, error)
	TrackingRecords(ctx context.Context, assignedGoalID string) ([]goals.TrackingRecord, error)
}

// Config holds the HTTP listener settings.
type Config struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// Deps are optional collaborators of the API.
type Deps struct {
	Logger *zap.Logger
	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
	// Scorer backs /resume/score; nil makes the route answer 503.
	Scorer ai.Scorer
}

type Server struct {
	goals  GoalService
	scorer ai.Scorer
	logger *zap.Logger
	engine *gin.Engine
}

func New(svc GoalService, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		goals:  svc,
		scorer: deps.Scorer,
		logger: logger.OrNop(deps.Logger),
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes(deps.Gatherer)

	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.engine.POST("/employees", s.createEmployee)
	s.engine.GET("/employees/:id/goals", s.employeeGoals)

	s.engine.GET("/goals", s.listGoals)
	s.engine.POST("/goals", s.createGoal)
	s.engine.GET("/goals/:id", s.getGoal)
	s.engine.DELETE("/goals/:id", s.deleteGoal)
	s.engine.POST("/goals/:id/assignments", s.assignGoal)
	s.engine.GET("/stats", s.statistics)

	s.engine.GET("/assignments/:id/instances", s.instances)
	s.engine.GET("/assignments/:id/records", s.records)
	s.engine.POST("/assignments/:id/records", s.recordProgress)
	s.engine.POST("/assignments/:id/target", s.updateTarget)
	s.engine.POST("/assignments/:id/extend", s.extendTarget)
	s.engine.DELETE("/assignments/:id", s.removeAssignee)

	s.engine.POST("/instances/:id/stop", s.stopInstance)

	s.engine.POST("/resume/score", s.scoreResume)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	if cfg.Listen == "" {
		return errors.New("listen address is required")
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
}
