package cpm

import (
	"time"

	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
)

const (
	DefaultWorkingHours    = 8.0
	DefaultDurationInDays  = 1.0
	longestPathTolerance   = 1e-6 // days
	criticalSlackThreshold = 0.01 // days

	// MaxSpanDays bounds ProjectFinish - ProjectStart so day arithmetic
	// stays inside time.Duration.
	MaxSpanDays = 100000
)

// Settings is the small settings object supplied alongside the task list.
// Only ProjectStart influences the schedule; the other fields are carried for
// callers that derive hours or default durations from the same object.
type Settings struct {
	ProjectStart    *date.Date `json:"project_start,omitempty" yaml:"project_start,omitempty"`
	WorkingHours    float64    `json:"working_hours,omitempty" yaml:"working_hours,omitempty"`
	DefaultDuration float64    `json:"default_duration,omitempty" yaml:"default_duration,omitempty"`
}

// WithDefaults fills unset numeric settings.
func (s Settings) WithDefaults() Settings {
	if s.WorkingHours <= 0 {
		s.WorkingHours = DefaultWorkingHours
	}
	if s.DefaultDuration <= 0 {
		s.DefaultDuration = DefaultDurationInDays
	}
	return s
}

// Result is the output of one scheduling run.
type Result struct {
	ProjectStart     time.Time       `json:"project_start"`
	ProjectFinish    time.Time       `json:"project_finish"`
	Tasks            []*TaskSchedule `json:"tasks"` // topological order
	CriticalDuration float64         `json:"critical_duration"`
	CriticalPath     []int           `json:"critical_path"` // critical task ids, topological order
	Waves            []Wave          `json:"waves"`

	byID map[int]*TaskSchedule
}

// TaskSchedule is a task annotated with the fields derived by a run.
type TaskSchedule struct {
	graph.Task

	EarliestStart       time.Time `json:"earliest_start"`
	EarliestFinish      time.Time `json:"earliest_finish"`
	LatestStart         time.Time `json:"latest_start"`
	LatestFinish        time.Time `json:"latest_finish"`
	Slack               float64   `json:"slack"`
	LongestPathDuration float64   `json:"longest_path_duration"`
	IsCritical          bool      `json:"is_critical"`

	// The two criteria IsCritical is the union of.
	OnLongestChain bool `json:"on_longest_chain"`
	ZeroSlack      bool `json:"zero_slack"`

	Wave int `json:"wave"`

	latestSet bool
}

// Wave represents a group of tasks that share an earliest start.
type Wave struct {
	Index      int       `json:"index"`
	Start      time.Time `json:"start"`
	TaskIDs    []int     `json:"task_ids"`
	IsCritical bool      `json:"is_critical"` // true if wave contains critical path tasks
}
