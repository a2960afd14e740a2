package reporter

import (
	"bytes"
	"os"
	"strings"
	"text/template"

	"github.com/joshharrison/critpath/internal/date"
)

const defaultBriefTemplate = `Project schedule
{{.Summary}}
Tasks: {{.TaskCount}} ({{.CriticalCount}} critical)
{{- range .Tasks}}
- {{.ID}} {{.Name}}: {{.Start}} → {{.Finish}}, slack {{.Slack}}{{if .Critical}} [critical]{{end}}
{{- end}}
`

// BriefTask is one task row exposed to brief templates.
type BriefTask struct {
	ID       int
	Name     string
	Start    string
	Finish   string
	Slack    string
	Critical bool
}

// BriefData holds the data used to render a brief template.
type BriefData struct {
	Summary       string
	TaskCount     int
	CriticalCount int
	Tasks         []BriefTask
}

// Brief renders a plain-text status brief using either a custom template file
// or the default.
func (r *Reporter) Brief(templatePath string) (string, error) {
	tmplStr := defaultBriefTemplate
	if templatePath != "" {
		content, err := os.ReadFile(templatePath)
		if err != nil {
			return "", err
		}
		tmplStr = string(content)
	}

	tmpl, err := template.New("brief").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	data := BriefData{
		Summary:       r.Summary(),
		TaskCount:     len(r.Result.Tasks),
		CriticalCount: len(r.Result.CriticalPath),
	}
	for _, ts := range r.Result.Tasks {
		data.Tasks = append(data.Tasks, BriefTask{
			ID:       ts.ID,
			Name:     ts.Name,
			Start:    date.FormatTime(ts.EarliestStart),
			Finish:   date.FormatTime(ts.EarliestFinish),
			Slack:    oneDecimal(ts.Slack),
			Critical: ts.IsCritical,
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}
