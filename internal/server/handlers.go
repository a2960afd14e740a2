package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/project"
	"github.com/joshharrison/critpath/internal/reporter"
)

// ScheduleResponse is returned by every endpoint that recomputes.
type ScheduleResponse struct {
	SnapshotID string      `json:"snapshot_id"`
	Revision   uint64      `json:"revision"`
	Summary    string      `json:"summary"`
	Result     *cpm.Result `json:"result"`
}

// TasksResponse lists the raw task list.
type TasksResponse struct {
	Revision uint64       `json:"revision"`
	NextID   int          `json:"next_id"`
	Tasks    []graph.Task `json:"tasks"`
}

// AddTaskResponse is returned for a committed task or a dry run.
type AddTaskResponse struct {
	Task     graph.Task `json:"task"`
	Revision uint64     `json:"revision"`
	DryRun   bool       `json:"dry_run"`
}

// DemoRequest optionally pins the demo start date.
type DemoRequest struct {
	Start *date.Date `json:"start,omitempty"`
}

// DependencyRequest adds one dependency to an existing task.
type DependencyRequest struct {
	DependsOn int `json:"depends_on" binding:"required,gt=0"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	s.respondSchedule(c, http.StatusOK)
}

func (s *Server) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, TasksResponse{
		Revision: s.project.Revision(),
		NextID:   s.project.NextID(),
		Tasks:    s.project.Tasks(),
	})
}

func (s *Server) handleAddTask(c *gin.Context) {
	var draft project.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.badRequest(c, err)
		return
	}

	if dryRun, _ := strconv.ParseBool(c.Query("dry_run")); dryRun {
		candidate, err := s.project.Prepare(draft)
		if err != nil {
			s.reject(c, err)
			return
		}
		c.JSON(http.StatusOK, AddTaskResponse{Task: candidate.Task, Revision: candidate.Revision, DryRun: true})
		return
	}

	task, err := s.project.Add(draft)
	if err != nil {
		s.reject(c, err)
		return
	}
	c.JSON(http.StatusCreated, AddTaskResponse{Task: task, Revision: s.project.Revision()})
}

func (s *Server) handleAddDependency(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		s.badRequest(c, errors.New("task id must be a positive integer"))
		return
	}
	var req DependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.project.AddDependency(id, req.DependsOn); err != nil {
		s.reject(c, err)
		return
	}
	s.respondSchedule(c, http.StatusOK)
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var settings cpm.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		s.badRequest(c, err)
		return
	}
	if settings.WorkingHours < 0 || settings.DefaultDuration < 0 {
		s.badRequest(c, errors.New("working_hours and default_duration must not be negative"))
		return
	}
	s.project.UpdateSettings(settings)
	s.respondSchedule(c, http.StatusOK)
}

func (s *Server) handleSeedDemo(c *gin.Context) {
	var req DemoRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, err)
			return
		}
	}
	start := s.today()
	if req.Start != nil {
		start = *req.Start
	}
	s.project.SeedDemo(start)
	s.respondSchedule(c, http.StatusOK)
}

func (s *Server) handleReset(c *gin.Context) {
	s.project.Reset()
	s.respondSchedule(c, http.StatusOK)
}

// respondSchedule recomputes and writes the snapshot. A failed recompute is
// surfaced as an error and never as a partial result.
func (s *Server) respondSchedule(c *gin.Context, status int) {
	snap, err := s.project.Schedule()
	if err != nil {
		s.metrics.ScheduleRuns.WithLabelValues("error").Inc()
		code, body := s.errorBody(err)
		c.JSON(code, body)
		return
	}
	s.metrics.ScheduleRuns.WithLabelValues("ok").Inc()
	s.metrics.ScheduleDuration.Observe(snap.Elapsed.Seconds())

	c.JSON(status, ScheduleResponse{
		SnapshotID: snap.ID,
		Revision:   snap.Revision,
		Summary:    reporter.New(snap.Result, snap.Settings).Summary(),
		Result:     snap.Result,
	})
}

func (s *Server) reject(c *gin.Context, err error) {
	status, body := s.errorBody(err)
	s.metrics.TaskRejections.WithLabelValues(strings.ToLower(body.Code)).Inc()
	s.logger.Warn("mutation rejected", "code", body.Code, "error", err)
	c.JSON(status, body)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.metrics.TaskRejections.WithLabelValues(strings.ToLower(CodeInvalidInput)).Inc()
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidInput})
}

func (s *Server) errorBody(err error) (int, ErrorResponse) {
	status, code := Classify(err)
	return status, ErrorResponse{Error: err.Error(), Code: code}
}
