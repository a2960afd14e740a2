package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/project"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDay = date.New(2024, time.January, 1)

func newTestServer() (*Server, *gin.Engine) {
	clock := func() date.Date { return testDay }
	p := project.New(project.WithLogger(logging.Discard()), project.WithClock(clock))
	s := New(p, WithLogger(logging.Discard()), WithClock(clock))
	return s, s.Router()
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	_, router := newTestServer()

	w := do(router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, router := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestSchedule_Empty(t *testing.T) {
	_, router := newTestServer()

	w := do(router, http.MethodGet, "/api/schedule", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ScheduleResponse](t, w)
	assert.NotEmpty(t, resp.SnapshotID)
	assert.Equal(t, "Timeline: 2024-01-01 → 2024-01-01 • Duration: 0.0 days (0.0 hours)", resp.Summary)
}

func TestSeedDemoAndSchedule(t *testing.T) {
	s, router := newTestServer()

	w := do(router, http.MethodPost, "/api/demo", `{"start":"2024-02-05"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ScheduleResponse](t, w)
	assert.Contains(t, resp.Summary, "Timeline: 2024-02-05 → 2024-03-01")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, resp.Result.CriticalPath)
	assert.Len(t, resp.Result.Tasks, 7)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ScheduleRuns.WithLabelValues("ok")))
}

func TestSeedDemo_DefaultsToToday(t *testing.T) {
	_, router := newTestServer()

	w := do(router, http.MethodPost, "/api/demo", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ScheduleResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.Summary, "Timeline: 2024-01-01 → 2024-01-26"))
}

func TestAddTask(t *testing.T) {
	_, router := newTestServer()

	w := do(router, http.MethodPost, "/api/tasks", `{"name":"Design","duration":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decode[AddTaskResponse](t, w)
	assert.Equal(t, 1, added.Task.ID)
	assert.False(t, added.DryRun)

	w = do(router, http.MethodPost, "/api/tasks", `{"name":"Build","duration":3,"dependencies":[1],"manual_start":"2024-01-10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/api/tasks", "")
	list := decode[TasksResponse](t, w)
	assert.Equal(t, 3, list.NextID)
	require.Len(t, list.Tasks, 2)
	assert.Equal(t, "2024-01-10", list.Tasks[1].ManualStart.String())
}

func TestAddTask_DryRunDoesNotCommit(t *testing.T) {
	_, router := newTestServer()

	w := do(router, http.MethodPost, "/api/tasks?dry_run=true", `{"name":"Maybe","duration":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[AddTaskResponse](t, w)
	assert.True(t, resp.DryRun)
	assert.Equal(t, 1, resp.Task.ID)

	list := decode[TasksResponse](t, do(router, http.MethodGet, "/api/tasks", ""))
	assert.Empty(t, list.Tasks)
	assert.Equal(t, 1, list.NextID)
}

func TestAddTask_Rejections(t *testing.T) {
	s, router := newTestServer()
	do(router, http.MethodPost, "/api/demo", `{"start":"2024-01-01"}`)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"self dependency", `{"name":"Loop","duration":1,"dependencies":[8]}`, http.StatusUnprocessableEntity, CodeDependencyCycle},
		{"missing dependency", `{"name":"Orphan","duration":1,"dependencies":[42]}`, http.StatusUnprocessableEntity, CodeDanglingDependency},
		{"zero dependency", `{"name":"Zero","duration":1,"dependencies":[0]}`, http.StatusUnprocessableEntity, CodeDanglingDependency},
		{"overlong duration", `{"name":"Forever","duration":120000}`, http.StatusBadRequest, CodeInvalidInput},
		{"blank name", `{"name":"  ","duration":1}`, http.StatusBadRequest, CodeInvalidInput},
		{"malformed", `{"name":`, http.StatusBadRequest, CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/tasks", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, decode[ErrorResponse](t, w).Code)
		})
	}

	list := decode[TasksResponse](t, do(router, http.MethodGet, "/api/tasks", ""))
	assert.Len(t, list.Tasks, 7)
	assert.Equal(t, 8, list.NextID)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.TaskRejections.WithLabelValues("dependency_cycle")))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.TaskRejections.WithLabelValues("invalid_input")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.TaskRejections.WithLabelValues("dangling_dependency")))
}

func TestAddTask_Concurrent(t *testing.T) {
	_, router := newTestServer()

	var wg sync.WaitGroup
	codes := make([]int, 10)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(router, http.MethodPost, "/api/tasks", `{"name":"Parallel","duration":1}`).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	list := decode[TasksResponse](t, do(router, http.MethodGet, "/api/tasks", ""))
	assert.Len(t, list.Tasks, 10)
	assert.Equal(t, 11, list.NextID)
}

func TestAddDependency(t *testing.T) {
	_, router := newTestServer()
	do(router, http.MethodPost, "/api/tasks", `{"name":"A","duration":1}`)
	do(router, http.MethodPost, "/api/tasks", `{"name":"B","duration":2}`)

	w := do(router, http.MethodPost, "/api/tasks/2/dependencies", `{"depends_on":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ScheduleResponse](t, w)
	assert.Equal(t, 3.0, resp.Result.TotalDays())

	w = do(router, http.MethodPost, "/api/tasks/1/dependencies", `{"depends_on":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(router, http.MethodPost, "/api/tasks/9/dependencies", `{"depends_on":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPost, "/api/tasks/x/dependencies", `{"depends_on":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSettings(t *testing.T) {
	_, router := newTestServer()
	do(router, http.MethodPost, "/api/tasks", `{"name":"A","duration":2}`)

	w := do(router, http.MethodPut, "/api/settings", `{"project_start":"2024-06-03","working_hours":6}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ScheduleResponse](t, w)
	assert.Equal(t, "Timeline: 2024-06-03 → 2024-06-05 • Duration: 2.0 days (12.0 hours)", resp.Summary)

	w = do(router, http.MethodPut, "/api/settings", `{"working_hours":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/settings", `{"project_start":"June"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReset(t *testing.T) {
	_, router := newTestServer()
	do(router, http.MethodPost, "/api/demo", "")

	w := do(router, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ScheduleResponse](t, w)
	assert.Empty(t, resp.Result.Tasks)

	list := decode[TasksResponse](t, do(router, http.MethodGet, "/api/tasks", ""))
	assert.Equal(t, 1, list.NextID)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestServer()
	do(router, http.MethodGet, "/api/schedule", "")

	w := do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `critpath_schedule_runs_total{result="ok"} 1`)
	assert.Contains(t, w.Body.String(), "critpath_schedule_duration_seconds")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&graph.DanglingDependencyError{TaskName: "x", MissingID: 3}, http.StatusUnprocessableEntity, CodeDanglingDependency},
		{fmt.Errorf("order tasks: %w", &graph.DependencyCycleError{Unsorted: 2}), http.StatusUnprocessableEntity, CodeDependencyCycle},
		{&graph.DuplicateTaskError{ID: 1}, http.StatusUnprocessableEntity, CodeDuplicateTask},
		{project.ErrStale, http.StatusConflict, CodeStaleCandidate},
		{project.ErrEmptyName, http.StatusBadRequest, CodeInvalidInput},
		{&graph.InvalidDurationError{TaskName: "x", Duration: math.NaN()}, http.StatusBadRequest, CodeInvalidInput},
		{fmt.Errorf("%w: too far", cpm.ErrSpanTooLong), http.StatusBadRequest, CodeInvalidInput},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
	assert.Equal(t, CodeStaleCandidate, NewErrorResponse(project.ErrStale).Code)
}
