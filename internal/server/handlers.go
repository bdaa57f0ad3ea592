package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spigell/goal-tracker/internal/filtering"
	"github.com/spigell/goal-tracker/internal/goals"
)

type createEmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

type createGoalRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Sector      goals.Sector     `json:"sector" binding:"required"`
	MetricType  goals.MetricType `json:"metric_type" binding:"required"`
	MetricUnit  string           `json:"metric_unit"`
	TargetValue *float64         `json:"target_value"`
	StartDate   string           `json:"start_date" binding:"required"`
	EndDate     string           `json:"end_date" binding:"required"`
	CreatedBy   string           `json:"created_by"`
}

type assignRequest struct {
	EmployeeIDs []string `json:"employee_ids" binding:"required"`
	TargetValue *float64 `json:"target_value"`
	GoalType    string   `json:"goal_type" binding:"required"`
	Notes       string   `json:"notes"`
}

type targetRequest struct {
	TargetValue float64 `json:"target_value"`
}

type extendRequest struct {
	Delta float64 `json:"delta"`
	// Force skips the completed-only rule.
	Force bool `json:"force"`
}

type recordRequest struct {
	Value float64 `json:"value"`
	Date  string  `json:"date"`
	Notes string  `json:"notes"`
}

type scoreRequest struct {
	Resume         string `json:"resume" binding:"required"`
	JobDescription string `json:"job_description" binding:"required"`
}

func (s *Server) createEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	e, err := s.goals.CreateEmployee(c.Request.Context(), goals.Employee{
		ID:         strings.TrimSpace(req.ID),
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) employeeGoals(c *gin.Context) {
	list, err := s.goals.EmployeeGoals(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		s.fail(c, badRequest("start_date", err))
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		s.fail(c, badRequest("end_date", err))
		return
	}

	g, err := s.goals.CreateGoal(c.Request.Context(), goals.Goal{
		Name:        req.Name,
		Description: req.Description,
		Sector:      req.Sector,
		MetricType:  req.MetricType,
		MetricUnit:  req.MetricUnit,
		TargetValue: req.TargetValue,
		StartDate:   start,
		EndDate:     end,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) getGoal(c *gin.Context) {
	details, err := s.goals.GoalDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) listGoals(c *gin.Context) {
	items, err := s.filteredGoals(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) statistics(c *gin.Context) {
	items, err := s.filteredGoals(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goals.Summarize(items))
}

func (s *Server) deleteGoal(c *gin.Context) {
	if err := s.goals.DeleteGoal(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) assignGoal(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	goalType, err := goals.ParseGoalType(req.GoalType)
	if err != nil {
		s.fail(c, badRequest("goal_type", err))
		return
	}

	list, err := s.goals.AssignGoal(c.Request.Context(), c.Param("id"), goals.AssignParams{
		EmployeeIDs: req.EmployeeIDs,
		TargetValue: req.TargetValue,
		GoalType:    goalType,
		Notes:       req.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (s *Server) instances(c *gin.Context) {
	classified, err := s.goals.Instances(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, classified)
}

func (s *Server) records(c *gin.Context) {
	list, err := s.goals.TrackingRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) recordProgress(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			s.fail(c, badRequest("date", err))
			return
		}
		date = d
	}

	record, err := s.goals.RecordProgress(c.Request.Context(), c.Param("id"), goals.RecordParams{
		Value: req.Value,
		Date:  date,
		Notes: req.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) updateTarget(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	a, err := s.goals.UpdateTarget(c.Request.Context(), c.Param("id"), req.TargetValue)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) extendTarget(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	id := c.Param("id")
	if !req.Force {
		current, err := s.goals.Assignment(c.Request.Context(), id)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !goals.CanExtend(*current) {
			s.failKind(c, kindConflict, fmt.Errorf("assignment %q is %s; only completed assignments can be extended", id, current.Status))
			return
		}
	}

	a, err := s.goals.ExtendTarget(c.Request.Context(), id, req.Delta)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) removeAssignee(c *gin.Context) {
	if err := s.goals.RemoveAssignee(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) stopInstance(c *gin.Context) {
	inst, err := s.goals.StopGoal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) scoreResume(c *gin.Context) {
	if s.scorer == nil {
		s.failKind(c, kindUnavailable, errors.New("resume scoring is not configured"))
		return
	}

	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("body", err))
		return
	}

	score, err := s.scorer.Score(c.Request.Context(), req.Resume, req.JobDescription)
	if err != nil {
		s.failKind(c, kindUpstream, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// filteredGoals lists goal details narrowed by the query string through the
// filtering pipeline.
func (s *Server) filteredGoals(c *gin.Context) ([]goals.GoalWithDetails, error) {
	cfg, err := filterConfig(c)
	if err != nil {
		return nil, err
	}

	var base goals.GoalFilter
	if len(cfg.Sectors) == 1 {
		base.Sector = cfg.Sectors[0]
	}

	items, err := s.goals.ListGoalDetails(c.Request.Context(), base)
	if err != nil {
		return nil, err
	}

	left, err := filtering.Run(c.Request.Context(), cfg, filtering.Deps{Logger: s.logger}, filtering.Default(), filtering.NewGoals(items))
	if err != nil {
		return nil, badRequest("filter", err)
	}
	return left.Items, nil
}

func filterConfig(c *gin.Context) (*filtering.Config, error) {
	cfg := &filtering.Config{EmployeeID: c.Query("employee")}

	for _, v := range queryList(c, "sector") {
		cfg.Sectors = append(cfg.Sectors, goals.Sector(v))
	}
	for _, v := range queryList(c, "status") {
		cfg.Statuses = append(cfg.Statuses, goals.Status(v))
	}

	var err error
	if v := c.Query("from"); v != "" {
		if cfg.From, err = parseDate(v); err != nil {
			return nil, badRequest("from", err)
		}
	}
	if v := c.Query("to"); v != "" {
		if cfg.To, err = parseDate(v); err != nil {
			return nil, badRequest("to", err)
		}
	}
	return cfg, nil
}

// queryList accepts both repeated and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(v), time.UTC)
}
