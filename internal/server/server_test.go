package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/spigell/goal-tracker/internal/ai"
	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/metrics"
	"github.com/spigell/goal-tracker/internal/store/memory"
)

var now = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type stubScorer struct {
	score *ai.ResumeScore
	err   error
}

func (s stubScorer) Score(context.Context, string, string) (*ai.ResumeScore, error) {
	return s.score, s.err
}

func newTestServer(t *testing.T, deps Deps) (*Server, *prometheus.Registry) {
	t.Helper()

	registry := prometheus.NewRegistry()
	ids := 0
	svc := goals.NewService(memory.New(memory.WithClock(func() time.Time { return now })), &goals.Deps{
		Observer: metrics.MustNew(registry),
		Now:      func() time.Time { return now },
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	})

	if deps.Gatherer == nil {
		deps.Gatherer = registry
	}
	return New(svc, deps), registry
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seedAssignment creates one employee, one goal and a weekly assignment.
func seedAssignment(t *testing.T, h http.Handler) (goalID, assignmentID string) {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/employees", map[string]any{"id": "e-1", "name": "Ann"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/goals", map[string]any{
		"name":        "Closed deals",
		"sector":      "Sales",
		"metric_type": "count",
		"start_date":  "2025-01-01",
		"end_date":    "2025-12-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode[goals.Goal](t, rec)

	rec = do(t, h, http.MethodPost, "/goals/"+goal.ID+"/assignments", map[string]any{
		"employee_ids": []string{"e-1"},
		"target_value": 10,
		"goal_type":    "weekly",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assigned := decode[[]goals.AssignedGoal](t, rec)
	require.Len(t, assigned, 1)

	return goal.ID, assigned[0].ID
}

func TestGoalLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})
	h := srv.Handler()
	goalID, assignmentID := seedAssignment(t, h)

	rec := do(t, h, http.MethodPost, "/assignments/"+assignmentID+"/extend", map[string]any{"delta": 5})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, kindConflict, decode[errorResponse](t, rec).Kind)

	rec = do(t, h, http.MethodPost, "/assignments/"+assignmentID+"/records", map[string]any{"value": 10, "notes": "big week"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/employees/e-1/goals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]goals.AssignedGoal](t, rec)
	require.Len(t, mine, 1)
	require.Equal(t, goals.StatusCompleted, mine[0].Status)

	rec = do(t, h, http.MethodPost, "/assignments/"+assignmentID+"/extend", map[string]any{"delta": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	extended := decode[goals.AssignedGoal](t, rec)
	require.Equal(t, 15.0, extended.TargetValue)
	require.Equal(t, goals.StatusInProgress, extended.Status)

	rec = do(t, h, http.MethodGet, "/assignments/"+assignmentID+"/instances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	classified := decode[goals.ClassifiedInstances](t, rec)
	require.Len(t, classified.Active, 1)
	require.Equal(t, 15.0, classified.Active[0].TargetValue)

	rec = do(t, h, http.MethodGet, "/assignments/"+assignmentID+"/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]goals.TrackingRecord](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/stats?sector=Sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[goals.GoalStatistics](t, rec)
	require.Equal(t, 1, stats.TotalGoals)
	require.Equal(t, 1, stats.InProgressGoals)
	require.Equal(t, 0, stats.CompletionRate)

	rec = do(t, h, http.MethodGet, "/goals?sector=HR", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]goals.GoalWithDetails](t, rec))

	rec = do(t, h, http.MethodGet, "/goals/"+goalID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[goals.GoalWithDetails](t, rec)
	require.Equal(t, 15.0, details.TotalTargetValue)
	require.Equal(t, 67, details.OverallProgress)

	rec = do(t, h, http.MethodPost, "/instances/"+classified.Active[0].ID+"/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, goals.StatusStopped, decode[goals.GoalInstance](t, rec).Status)

	rec = do(t, h, http.MethodDelete, "/goals/"+goalID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/goals/"+goalID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/assignments/"+assignmentID+"/instances", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForcedExtensionAndRemoval(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})
	h := srv.Handler()
	_, assignmentID := seedAssignment(t, h)

	rec := do(t, h, http.MethodPost, "/assignments/"+assignmentID+"/extend", map[string]any{"delta": 2, "force": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 12.0, decode[goals.AssignedGoal](t, rec).TargetValue)

	rec = do(t, h, http.MethodPost, "/assignments/"+assignmentID+"/target", map[string]any{"target_value": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 20.0, decode[goals.AssignedGoal](t, rec).TargetValue)

	rec = do(t, h, http.MethodDelete, "/assignments/"+assignmentID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/employees/e-1/goals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]goals.AssignedGoal](t, rec))
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})
	h := srv.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
		field  string
	}{
		{name: "missing goal", method: http.MethodGet, path: "/goals/nope", status: http.StatusNotFound, kind: goals.KindNotFound},
		{name: "missing employee", method: http.MethodGet, path: "/employees/nope/goals", status: http.StatusNotFound, kind: goals.KindNotFound},
		{name: "non positive target", method: http.MethodPost, path: "/assignments/nope/target", body: map[string]any{"target_value": 0}, status: http.StatusBadRequest, kind: goals.KindValidation, field: "target"},
		{name: "forced non positive delta", method: http.MethodPost, path: "/assignments/nope/extend", body: map[string]any{"delta": -1, "force": true}, status: http.StatusBadRequest, kind: goals.KindValidation, field: "delta"},
		{name: "extend missing assignment", method: http.MethodPost, path: "/assignments/nope/extend", body: map[string]any{"delta": 1}, status: http.StatusNotFound, kind: goals.KindNotFound},
		{name: "bad goal date", method: http.MethodPost, path: "/goals", body: map[string]any{"name": "x", "sector": "HR", "metric_type": "count", "start_date": "01/02/2025", "end_date": "2025-12-31"}, status: http.StatusBadRequest, kind: goals.KindValidation, field: "start_date"},
		{name: "unknown sector", method: http.MethodPost, path: "/goals", body: map[string]any{"name": "x", "sector": "Legal", "metric_type": "count", "start_date": "2025-01-01", "end_date": "2025-12-31"}, status: http.StatusBadRequest, kind: goals.KindValidation},
		{name: "unsupported status filter", method: http.MethodGet, path: "/stats?status=stopped", status: http.StatusBadRequest, kind: goals.KindValidation, field: "filter"},
		{name: "bad timeframe", method: http.MethodGet, path: "/goals?from=yesterday", status: http.StatusBadRequest, kind: goals.KindValidation, field: "from"},
		{name: "stop missing instance", method: http.MethodPost, path: "/instances/nope/stop", status: http.StatusNotFound, kind: goals.KindNotFound},
		{name: "scoring disabled", method: http.MethodPost, path: "/resume/score", body: map[string]any{"resume": "r", "job_description": "j"}, status: http.StatusServiceUnavailable, kind: kindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[errorResponse](t, rec)
			require.Equal(t, tt.kind, resp.Kind)
			require.NotEmpty(t, resp.Error)
			if tt.field != "" {
				require.Equal(t, tt.field, resp.Field)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})
	h := srv.Handler()
	seedAssignment(t, h)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `goal_tracker_mutations_total{operation="assign_goal",result="ok"} 1`)
}

func TestScoreResume(t *testing.T) {
	score := &ai.ResumeScore{Overall: 81.5, Sections: ai.MergeRubric(nil)}
	srv, _ := newTestServer(t, Deps{Scorer: stubScorer{score: score}})

	rec := do(t, srv.Handler(), http.MethodPost, "/resume/score", map[string]any{"resume": "Go", "job_description": "Go dev"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[ai.ResumeScore](t, rec)
	require.Equal(t, 81.5, got.Overall)
	require.Len(t, got.Sections, len(ai.DefaultRubric))

	rec = do(t, srv.Handler(), http.MethodPost, "/resume/score", map[string]any{"resume": "Go"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	failing, _ := newTestServer(t, Deps{Scorer: stubScorer{err: errors.New("no json object in model response")}})
	rec = do(t, failing.Handler(), http.MethodPost, "/resume/score", map[string]any{"resume": "Go", "job_description": "Go dev"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, kindUpstream, decode[errorResponse](t, rec).Kind)
}
