package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/ui"
)

// Reporter renders a computed schedule.
type Reporter struct {
	Result   *cpm.Result
	Settings cpm.Settings
}

// New creates a new Reporter.
func New(result *cpm.Result, settings cpm.Settings) *Reporter {
	return &Reporter{
		Result:   result,
		Settings: settings.WithDefaults(),
	}
}

// Summary returns the one-line timeline summary.
func (r *Reporter) Summary() string {
	days := r.Result.TotalDays()
	hours := r.Result.TotalHours(r.Settings.WorkingHours)
	return fmt.Sprintf("Timeline: %s → %s • Duration: %s days (%s hours)",
		date.FormatTime(r.Result.ProjectStart),
		date.FormatTime(r.Result.ProjectFinish),
		oneDecimal(days), oneDecimal(hours))
}

// DependencyLabels returns "id · name" for each dependency of the task.
func (r *Reporter) DependencyLabels(ts *cpm.TaskSchedule) []string {
	labels := make([]string, 0, len(ts.Dependencies))
	for _, id := range ts.Dependencies {
		name := "?"
		if dep := r.Result.Task(id); dep != nil {
			name = dep.Name
		}
		labels = append(labels, fmt.Sprintf("%d · %s", id, name))
	}
	return labels
}

// PrintTable writes the schedule as a terminal table in topological order.
func (r *Reporter) PrintTable(w io.Writer) {
	fmt.Fprintf(w, "📅 %s\n", ui.BoldCyan("Project Schedule"))
	fmt.Fprintln(w, ui.Cyan("══════════════════"))
	fmt.Fprintln(w, r.Summary())
	fmt.Fprintln(w)

	if len(r.Result.Tasks) == 0 {
		fmt.Fprintln(w, ui.Dim("  no tasks"))
		return
	}

	fmt.Fprintf(w, "  %-4s %-30s %8s  %-10s %-10s %-10s %-10s %6s  %s\n",
		"", "Task", "Days", "ES", "EF", "LS", "LF", "Slack", "Depends on")
	for _, ts := range r.Result.Tasks {
		name := truncate(ts.Name, 30)
		deps := ui.Dim("—")
		if len(ts.Dependencies) > 0 {
			deps = strings.Join(r.DependencyLabels(ts), ", ")
		}
		fmt.Fprintf(w, "%s %s %-30s %8s  %-10s %-10s %-10s %-10s %6s  %s\n",
			ui.CriticalMarker(ts.IsCritical),
			ui.TaskID(ts.ID),
			name,
			oneDecimal(ts.Duration),
			date.FormatTime(ts.EarliestStart),
			date.FormatTime(ts.EarliestFinish),
			date.FormatTime(ts.LatestStart),
			date.FormatTime(ts.LatestFinish),
			ui.Slack(ts.Slack),
			deps)
	}

	if len(r.Result.CriticalPath) > 0 {
		ids := make([]string, len(r.Result.CriticalPath))
		for i, id := range r.Result.CriticalPath {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(w, "\nCritical:  %s (%s days)\n",
			ui.BoldYellow("⚡ "+strings.Join(ids, " → ")), oneDecimal(r.Result.CriticalDuration))
	}
}

// PrintWaves writes tasks grouped by shared earliest start, with the edges
// leaving each task.
func (r *Reporter) PrintWaves(w io.Writer) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	dependents := r.dependents()
	for _, wave := range r.Result.Waves {
		fmt.Fprintf(w, "%s %s %s %s\n", ui.Cyan("──"), ui.WaveHeader(wave.Index, wave.IsCritical),
			ui.Dim(date.FormatTime(wave.Start)), ui.Cyan("──────────────────────────────"))
		for _, id := range wave.TaskIDs {
			ts := r.Result.Task(id)
			fmt.Fprintf(w, "  %s [%s] %s\n", ui.CriticalMarker(ts.IsCritical), ui.TaskID(id), ts.Name)
			for _, next := range dependents[id] {
				fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), ui.Magenta(fmt.Sprintf("#%d", next)))
			}
		}
		fmt.Fprintln(w)
	}
}

// WriteDOT writes the schedule as a Graphviz digraph. Critical tasks and
// edges between them are drawn in red.
func (r *Reporter) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph critpath {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, ts := range r.Result.Tasks {
		label := fmt.Sprintf("%d\\n%s\\n%s d, slack %s", ts.ID, escapeDOT(ts.Name), oneDecimal(ts.Duration), oneDecimal(ts.Slack))
		attrs := fmt.Sprintf(`label="%s"`, label)
		if ts.IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(&b, "  t%d [%s];\n", ts.ID, attrs)
	}

	b.WriteString("\n")

	for _, ts := range r.Result.Tasks {
		for _, dep := range ts.Dependencies {
			style := ""
			if from := r.Result.Task(dep); from != nil && from.IsCritical && ts.IsCritical {
				style = " [color=red, penwidth=2]"
			}
			fmt.Fprintf(&b, "  t%d -> t%d%s;\n", dep, ts.ID, style)
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// JSON returns the machine-readable schedule.
func (r *Reporter) JSON() ([]byte, error) {
	type taskRow struct {
		ID             int      `json:"id"`
		Name           string   `json:"name"`
		Duration       float64  `json:"duration"`
		Dependencies   []string `json:"dependencies"`
		EarliestStart  string   `json:"earliest_start"`
		EarliestFinish string   `json:"earliest_finish"`
		LatestStart    string   `json:"latest_start"`
		LatestFinish   string   `json:"latest_finish"`
		Slack          float64  `json:"slack"`
		IsCritical     bool     `json:"is_critical"`
		Wave           int      `json:"wave"`
	}

	type output struct {
		ProjectStart     string    `json:"project_start"`
		ProjectFinish    string    `json:"project_finish"`
		TotalDays        float64   `json:"total_days"`
		TotalHours       float64   `json:"total_hours"`
		CriticalDuration float64   `json:"critical_duration"`
		CriticalPath     []int     `json:"critical_path"`
		Summary          string    `json:"summary"`
		Tasks            []taskRow `json:"tasks"`
	}

	o := output{
		ProjectStart:     date.FormatTime(r.Result.ProjectStart),
		ProjectFinish:    date.FormatTime(r.Result.ProjectFinish),
		TotalDays:        r.Result.TotalDays(),
		TotalHours:       r.Result.TotalHours(r.Settings.WorkingHours),
		CriticalDuration: r.Result.CriticalDuration,
		CriticalPath:     r.Result.CriticalPath,
		Summary:          r.Summary(),
		Tasks:            []taskRow{},
	}

	for _, ts := range r.Result.Tasks {
		o.Tasks = append(o.Tasks, taskRow{
			ID:             ts.ID,
			Name:           ts.Name,
			Duration:       ts.Duration,
			Dependencies:   r.DependencyLabels(ts),
			EarliestStart:  date.FormatTime(ts.EarliestStart),
			EarliestFinish: date.FormatTime(ts.EarliestFinish),
			LatestStart:    date.FormatTime(ts.LatestStart),
			LatestFinish:   date.FormatTime(ts.LatestFinish),
			Slack:          RoundSlack(ts.Slack),
			IsCritical:     ts.IsCritical,
			Wave:           ts.Wave,
		})
	}

	return json.MarshalIndent(o, "", "  ")
}

func (r *Reporter) dependents() map[int][]int {
	out := make(map[int][]int)
	for _, ts := range r.Result.Tasks {
		for _, dep := range ts.Dependencies {
			out[dep] = append(out[dep], ts.ID)
		}
	}
	return out
}

// RoundSlack rounds slack to one decimal place for display.
func RoundSlack(days float64) float64 {
	return math.Round(days*10) / 10
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// truncate shortens s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
