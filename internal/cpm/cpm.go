package cpm

import (
	"errors"
	"fmt"

	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
)

// ErrSpanTooLong is returned when the computed project span exceeds
// MaxSpanDays.
var ErrSpanTooLong = errors.New("schedule span too long")

// Schedule runs the full critical path pipeline, falling back to today's
// date when neither the settings nor any task supplies a start.
func Schedule(tasks []graph.Task, settings Settings) (*Result, error) {
	return ScheduleAt(tasks, settings, date.Today())
}

// ScheduleAt is Schedule with an explicit "today". The input slice is never
// modified; every derived field is recomputed from the raw task fields.
func ScheduleAt(tasks []graph.Task, settings Settings, today date.Date) (*Result, error) {
	g, err := graph.Build(tasks)
	if err != nil {
		return nil, fmt.Errorf("validate tasks: %w", err)
	}
	order, err := g.Sequence()
	if err != nil {
		return nil, fmt.Errorf("order tasks: %w", err)
	}

	start := ResolveProjectStart(tasks, settings, today)
	result := &Result{
		ProjectStart:  start.Time,
		ProjectFinish: start.Time,
		Tasks:         make([]*TaskSchedule, 0, len(order)),
		byID:          make(map[int]*TaskSchedule, len(order)),
	}
	if len(order) == 0 {
		return result, nil
	}

	for _, t := range order {
		ts := &TaskSchedule{Task: t.Clone()}
		result.Tasks = append(result.Tasks, ts)
		result.byID[t.ID] = ts
	}

	forwardPass(result)

	for _, ts := range result.Tasks {
		if ts.EarliestFinish.After(result.ProjectFinish) {
			result.ProjectFinish = ts.EarliestFinish
		}
	}

	if result.ProjectFinish.Sub(result.ProjectStart) > MaxSpanDays*date.Day {
		return nil, fmt.Errorf("%w: project would finish on %s, more than %d days after %s",
			ErrSpanTooLong, date.FormatTime(result.ProjectFinish), MaxSpanDays, date.FormatTime(result.ProjectStart))
	}

	backwardPass(result, g)
	markCritical(result)

	for _, ts := range result.Tasks {
		if ts.IsCritical {
			result.CriticalPath = append(result.CriticalPath, ts.ID)
		}
	}

	result.Waves = computeWaves(result)

	return result, nil
}

// ResolveProjectStart picks the caller-supplied start, else the earliest
// manual start among tasks, else today.
func ResolveProjectStart(tasks []graph.Task, settings Settings, today date.Date) date.Date {
	if settings.ProjectStart != nil {
		return date.Of(settings.ProjectStart.Time)
	}
	var earliest *date.Date
	for i := range tasks {
		ms := tasks[i].ManualStart
		if ms == nil {
			continue
		}
		if earliest == nil || ms.Before(earliest.Time) {
			earliest = ms
		}
	}
	if earliest != nil {
		return date.Of(earliest.Time)
	}
	return today
}

// Task returns the schedule for id, or nil.
func (r *Result) Task(id int) *TaskSchedule {
	if r.byID == nil {
		r.byID = make(map[int]*TaskSchedule, len(r.Tasks))
		for _, ts := range r.Tasks {
			r.byID[ts.ID] = ts
		}
	}
	return r.byID[id]
}

// TotalDays is the project span in days.
func (r *Result) TotalDays() float64 {
	return date.DaysBetween(r.ProjectStart, r.ProjectFinish)
}

// TotalHours converts the project span using the given working hours per day.
func (r *Result) TotalHours(workingHours float64) float64 {
	if workingHours <= 0 {
		workingHours = DefaultWorkingHours
	}
	return r.TotalDays() * workingHours
}
