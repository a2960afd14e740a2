// Package config reads and writes project files. YAML is the native format;
// JSON exports from the browser planner are imported leniently.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
)

// EnvProject names the project file used when no path is given.
const EnvProject = "CRITPATH_PROJECT"

// DefaultPath is the project file looked up in the working directory.
const DefaultPath = "critpath.yaml"

// File is the on-disk representation of a project.
type File struct {
	Settings cpm.Settings `yaml:"settings" json:"settings"`
	Tasks    []graph.Task `yaml:"tasks" json:"tasks"`
}

// ResolvePath picks the explicit path, then $CRITPATH_PROJECT, then
// critpath.yaml.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvProject); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads a project file. Files ending in .json go through the lenient
// importer; everything else is parsed as YAML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// Save writes f as YAML.
func Save(path string, f *File) error {
	data, err := Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders f as YAML.
func Marshal(f *File) ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	return data, nil
}

// ParseYAML decodes a YAML project file.
func ParseYAML(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseJSON imports a JSON project. Both camelCase and snake_case keys are
// accepted, numbers may be quoted, and a bare task array is allowed.
func ParseJSON(data []byte) (*File, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse project: invalid JSON")
	}
	root := gjson.ParseBytes(data)

	var f File
	tasks := root
	if root.IsObject() {
		tasks = root.Get("tasks")
		settings, err := parseSettings(root.Get("settings"))
		if err != nil {
			return nil, err
		}
		f.Settings = settings
	}
	if !tasks.IsArray() {
		return nil, fmt.Errorf("parse project: no task list found")
	}

	var parseErr error
	tasks.ForEach(func(_, item gjson.Result) bool {
		t, err := parseTask(item)
		if err != nil {
			parseErr = err
			return false
		}
		f.Tasks = append(f.Tasks, t)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

func parseSettings(node gjson.Result) (cpm.Settings, error) {
	var s cpm.Settings
	if !node.Exists() {
		return s, nil
	}
	start, err := parseDate(field(node, "projectStart", "project_start"))
	if err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}
	s.ProjectStart = start
	s.WorkingHours = field(node, "workingHours", "working_hours").Float()
	s.DefaultDuration = field(node, "defaultDuration", "default_duration").Float()
	return s, nil
}

func parseTask(item gjson.Result) (graph.Task, error) {
	t := graph.Task{
		ID:       int(item.Get("id").Int()),
		Name:     strings.TrimSpace(item.Get("name").String()),
		Duration: item.Get("duration").Float(),
	}
	if t.ID <= 0 {
		return t, fmt.Errorf("parse task %q: missing or invalid id", t.Name)
	}
	item.Get("dependencies").ForEach(func(_, dep gjson.Result) bool {
		t.Dependencies = append(t.Dependencies, int(dep.Int()))
		return true
	})
	start, err := parseDate(field(item, "manualStart", "manual_start"))
	if err != nil {
		return t, fmt.Errorf("parse task %d: %w", t.ID, err)
	}
	t.ManualStart = start
	return t, nil
}

// field returns the first of keys present on node.
func field(node gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := node.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func parseDate(r gjson.Result) (*date.Date, error) {
	s := strings.TrimSpace(r.String())
	if r.Type == gjson.Null || s == "" {
		return nil, nil
	}
	d, err := date.Parse(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// normalize applies the default duration and rejects blank names and
// durations that are not finite.
func (f *File) normalize() error {
	fallback := f.Settings.WithDefaults().DefaultDuration
	if !graph.ValidDuration(fallback) {
		return fmt.Errorf("settings: invalid default duration %v", fallback)
	}
	for i := range f.Tasks {
		t := &f.Tasks[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return fmt.Errorf("task %d: name is required", t.ID)
		}
		if t.Duration <= 0 && !math.IsInf(t.Duration, -1) {
			t.Duration = fallback
		}
		if !graph.ValidDuration(t.Duration) {
			return &graph.InvalidDurationError{TaskID: t.ID, TaskName: t.Name, Duration: t.Duration}
		}
	}
	return nil
}
