// Package project holds the mutable task list the scheduler is run against.
// Every mutation is serialized by one mutex and bumps the revision; every
// schedule is computed from a fresh copy of the raw tasks.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
)

var (
	// ErrStale is returned when a candidate was prepared against a task list
	// that has since changed.
	ErrStale = errors.New("candidate was prepared against an older revision")
	// ErrEmptyName is returned for drafts whose name is blank after trimming.
	ErrEmptyName = errors.New("task name is required")
	// ErrUnknownTask is returned when an operation names a task that is not
	// in the list.
	ErrUnknownTask = errors.New("unknown task")
)

var validate = validator.New()

// Draft is a task as entered by a user, before it has an id.
type Draft struct {
	Name         string     `json:"name" yaml:"name" validate:"required"`
	Duration     float64    `json:"duration" yaml:"duration"`
	Dependencies []int      `json:"dependencies" yaml:"dependencies"`
	ManualStart  *date.Date `json:"manual_start,omitempty" yaml:"manual_start,omitempty"`
}

// Candidate is a validated task waiting to be committed.
type Candidate struct {
	Task     graph.Task `json:"task"`
	Revision uint64     `json:"revision"`
}

// Snapshot is the result of one recompute. Revision identifies the task list
// it was computed from; ID distinguishes recomputes of the same revision.
type Snapshot struct {
	ID         string        `json:"id"`
	Revision   uint64        `json:"revision"`
	ComputedAt time.Time     `json:"computed_at"`
	Settings   cpm.Settings  `json:"settings"`
	Result     *cpm.Result   `json:"result"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Supersedes reports whether s should replace other under last-writer-wins.
func (s *Snapshot) Supersedes(other *Snapshot) bool {
	if other == nil {
		return true
	}
	if s.Revision != other.Revision {
		return s.Revision > other.Revision
	}
	return s.ComputedAt.After(other.ComputedAt)
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) { p.logger = logger }
}

// WithClock overrides how "today" is determined.
func WithClock(today func() date.Date) Option {
	return func(p *Project) { p.today = today }
}

// Project is the task list plus settings, safe for concurrent use.
type Project struct {
	mu       sync.Mutex
	tasks    []graph.Task
	nextID   int
	settings cpm.Settings
	revision uint64

	logger *slog.Logger
	today  func() date.Date
}

// New creates an empty project.
func New(opts ...Option) *Project {
	p := &Project{
		nextID: 1,
		logger: slog.Default(),
		today:  date.Today,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tasks returns a copy of the task list in insertion order.
func (p *Project) Tasks() []graph.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneTasks(p.tasks)
}

// NextID returns the id the next committed task will receive.
func (p *Project) NextID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextID
}

// Revision returns the current revision.
func (p *Project) Revision() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}

// Settings returns the current settings.
func (p *Project) Settings() cpm.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// UpdateSettings replaces the settings.
func (p *Project) UpdateSettings(s cpm.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
	p.revision++
	p.logger.Info("settings updated", "revision", p.revision, "project_start", startString(s.ProjectStart))
}

// Prepare turns a draft into a candidate and dry-runs the sequencer against
// the existing tasks plus the candidate. Nothing is modified.
func (p *Project) Prepare(d Draft) (*Candidate, error) {
	d, err := cleanDraft(d)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prepareLocked(d)
}

// Commit appends a prepared candidate. It refuses candidates prepared
// against an older revision, since their dry run no longer holds.
func (p *Project) Commit(c *Candidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Revision != p.revision || c.Task.ID != p.nextID {
		return ErrStale
	}
	p.commitLocked(c.Task)
	return nil
}

// Add prepares and commits under one lock, so concurrent adds never see
// each other's candidates go stale.
func (p *Project) Add(d Draft) (graph.Task, error) {
	d, err := cleanDraft(d)
	if err != nil {
		return graph.Task{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.prepareLocked(d)
	if err != nil {
		return graph.Task{}, err
	}
	p.commitLocked(c.Task)
	return c.Task, nil
}

func cleanDraft(d Draft) (Draft, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, ErrEmptyName
	}
	if err := validate.Struct(d); err != nil {
		return d, fmt.Errorf("invalid task: %w", err)
	}
	return d, nil
}

// prepareLocked requires p.mu.
func (p *Project) prepareLocked(d Draft) (*Candidate, error) {
	// Zero and negative mean "use the default"; NaN and infinities are left
	// for the sequencer to reject.
	duration := d.Duration
	if duration <= 0 && !math.IsInf(duration, -1) {
		duration = p.settings.WithDefaults().DefaultDuration
	}
	task := graph.Task{
		ID:           p.nextID,
		Name:         d.Name,
		Duration:     duration,
		Dependencies: append([]int(nil), d.Dependencies...),
		ManualStart:  d.ManualStart,
	}

	extended := append(cloneTasks(p.tasks), task)
	if _, err := graph.Sequence(extended); err != nil {
		p.logger.Warn("task rejected", "name", task.Name, "error", err)
		return nil, err
	}
	return &Candidate{Task: task, Revision: p.revision}, nil
}

// commitLocked requires p.mu.
func (p *Project) commitLocked(task graph.Task) {
	p.tasks = append(p.tasks, task.Clone())
	p.nextID++
	p.revision++
	p.logger.Info("task added", "id", task.ID, "name", task.Name, "revision", p.revision)
}

// AddDependency makes taskID depend on dependsOn, after checking that the
// resulting list can still be sequenced.
func (p *Project) AddDependency(taskID, dependsOn int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := -1
	for i := range p.tasks {
		if p.tasks[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownTask, taskID)
	}
	for _, dep := range p.tasks[idx].Dependencies {
		if dep == dependsOn {
			return nil
		}
	}

	extended := cloneTasks(p.tasks)
	extended[idx].Dependencies = append(extended[idx].Dependencies, dependsOn)
	if _, err := graph.Sequence(extended); err != nil {
		return err
	}
	p.tasks = extended
	p.revision++
	p.logger.Info("dependency added", "task", taskID, "depends_on", dependsOn, "revision", p.revision)
	return nil
}

// Reset clears the task list, restarts ids at 1 and forgets the project start.
func (p *Project) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = nil
	p.nextID = 1
	p.settings.ProjectStart = nil
	p.revision++
	p.logger.Info("project reset", "revision", p.revision)
}

// Load replaces the task list and settings after validating them. Ids are
// kept; the next id continues after the highest one.
func (p *Project) Load(tasks []graph.Task, settings cpm.Settings) error {
	if _, err := graph.Sequence(tasks); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = cloneTasks(tasks)
	p.nextID = 1
	for _, t := range p.tasks {
		if t.ID >= p.nextID {
			p.nextID = t.ID + 1
		}
	}
	p.settings = settings
	p.revision++
	p.logger.Info("project loaded", "tasks", len(p.tasks), "revision", p.revision)
	return nil
}

// SeedDemo replaces the project with the sample software project starting
// on the given day.
func (p *Project) SeedDemo(start date.Date) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = DemoTasks(start)
	p.nextID = len(p.tasks) + 1
	p.settings.ProjectStart = start.Ptr()
	p.revision++
	p.logger.Info("demo seeded", "start", start.String(), "revision", p.revision)
}

// Schedule recomputes the schedule from the current tasks and settings.
func (p *Project) Schedule() (*Snapshot, error) {
	p.mu.Lock()
	tasks := cloneTasks(p.tasks)
	settings := p.settings
	revision := p.revision
	p.mu.Unlock()

	began := time.Now()
	result, err := cpm.ScheduleAt(tasks, settings, p.today())
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ID:         uuid.NewString(),
		Revision:   revision,
		ComputedAt: time.Now().UTC(),
		Settings:   settings,
		Result:     result,
		Elapsed:    time.Since(began),
	}
	p.logger.Debug("schedule computed",
		"snapshot", snap.ID,
		"revision", revision,
		"tasks", len(result.Tasks),
		"critical", len(result.CriticalPath),
		"elapsed", snap.Elapsed,
	)
	return snap, nil
}

// DemoTasks returns the seven-task sample project. The first task is pinned
// to start.
func DemoTasks(start date.Date) []graph.Task {
	return []graph.Task{
		{ID: 1, Name: "Kick-off workshop", Duration: 1, ManualStart: start.Ptr()},
		{ID: 2, Name: "Requirement analysis", Duration: 4, Dependencies: []int{1}},
		{ID: 3, Name: "Architecture design", Duration: 3, Dependencies: []int{2}},
		{ID: 4, Name: "Implementation phase 1", Duration: 10, Dependencies: []int{3}},
		{ID: 5, Name: "QA & validation", Duration: 5, Dependencies: []int{4}},
		{ID: 6, Name: "Deployment", Duration: 2, Dependencies: []int{5}},
		{ID: 7, Name: "Stakeholder sign-off", Duration: 1, Dependencies: []int{5}},
	}
}

func cloneTasks(tasks []graph.Task) []graph.Task {
	out := make([]graph.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

func startString(d *date.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
