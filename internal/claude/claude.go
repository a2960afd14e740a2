package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joshharrison/critpath/internal/graph"
)

// DefaultModel is used when no model is given.
const DefaultModel = "claude-sonnet-4-5"

// TaskSummary is the minimal task info sent to Claude for dependency inference.
type TaskSummary struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}

// DepEdge is a single inferred dependency.
type DepEdge struct {
	TaskID    int    `json:"task_id"`    // task that waits
	DependsOn int    `json:"depends_on"` // task that must finish first
	Reason    string `json:"reason"`
}

// InferDepsResult holds the full response from Claude.
type InferDepsResult struct {
	Edges   []DepEdge `json:"edges"`
	Summary string    `json:"summary"`
}

// SkippedEdge is an inferred edge that could not be applied.
type SkippedEdge struct {
	Edge  DepEdge `json:"edge"`
	Cause string  `json:"cause"`
}

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to Claude Sonnet.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := anthropic.Model(DefaultModel)
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Client{inner: inner, model: m}, nil
}

// Summaries converts tasks into the payload sent for inference.
func Summaries(tasks []graph.Task) []TaskSummary {
	out := make([]TaskSummary, len(tasks))
	for i, t := range tasks {
		out[i] = TaskSummary{ID: t.ID, Name: t.Name, Duration: t.Duration}
	}
	return out
}

const inferDepsPrompt = `You are an expert project manager. Given a list of tasks from a project plan, infer finish-to-start dependencies between them.

Rules:
- Only add a dependency when there is a strong causal reason (task B cannot start until task A is complete).
- Prefer fewer edges — do not add transitive or speculative dependencies.
- Do not create cycles.
- Only use task IDs from the provided list.
- A task cannot depend on itself.

Return your answer as JSON with this exact structure:
{
  "edges": [
    {"task_id": <task that waits>, "depends_on": <task that must finish first>, "reason": "<short explanation>"}
  ],
  "summary": "<one paragraph summary of the dependency structure>"
}

Return ONLY the JSON object. No markdown fences, no commentary outside the JSON.

Here are the tasks (durations in days):
`

// buildPrompt constructs the full prompt for dependency inference.
func buildPrompt(tasks []TaskSummary) (string, error) {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tasks: %w", err)
	}
	return inferDepsPrompt + string(data), nil
}

// InferDeps calls the Claude API to infer task dependencies.
func (c *Client) InferDeps(ctx context.Context, tasks []TaskSummary) (*InferDepsResult, error) {
	prompt, err := buildPrompt(tasks)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}
	return parseInferDeps(text)
}

func parseInferDeps(text string) (*InferDepsResult, error) {
	text = stripJSONFences(text)

	var result InferDepsResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse claude response: %w\nraw: %s", err, text)
	}
	return &result, nil
}

const summariseSchedulePrompt = `You are a project manager explaining a critical path schedule to stakeholders.

You will receive a plain-text brief listing every task with its earliest start, earliest finish, slack and whether it is critical.

Produce a concise narrative covering:
- Which chain of tasks drives the finish date.
- Where there is room to slip and by how much.
- Any obvious risks (long critical tasks, very little slack overall).

Keep it to two short paragraphs. Do not repeat the brief verbatim.
`

// SummariseSchedule sends a schedule brief to Claude and returns a
// stakeholder-friendly narrative.
func (c *Client) SummariseSchedule(ctx context.Context, brief string) (string, error) {
	return c.complete(ctx, summariseSchedulePrompt, brief)
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(4096),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return strings.TrimSpace(text), nil
}

// FilterEdges greedily accepts edges in order. An edge is skipped when it
// names an unknown task, points at itself, duplicates an accepted edge, or
// would make the task list impossible to sequence.
func FilterEdges(tasks []graph.Task, edges []DepEdge) ([]DepEdge, []SkippedEdge) {
	working := make([]graph.Task, len(tasks))
	index := make(map[int]int, len(tasks))
	for i, t := range tasks {
		working[i] = t.Clone()
		index[t.ID] = i
	}

	var accepted []DepEdge
	var skipped []SkippedEdge
	for _, e := range edges {
		i, ok := index[e.TaskID]
		if !ok {
			skipped = append(skipped, SkippedEdge{Edge: e, Cause: fmt.Sprintf("unknown task_id %d", e.TaskID)})
			continue
		}
		if _, ok := index[e.DependsOn]; !ok {
			skipped = append(skipped, SkippedEdge{Edge: e, Cause: fmt.Sprintf("unknown depends_on %d", e.DependsOn)})
			continue
		}
		if e.TaskID == e.DependsOn {
			skipped = append(skipped, SkippedEdge{Edge: e, Cause: "self dependency"})
			continue
		}
		if containsInt(working[i].Dependencies, e.DependsOn) {
			skipped = append(skipped, SkippedEdge{Edge: e, Cause: "already present"})
			continue
		}

		before := working[i].Dependencies
		working[i].Dependencies = append(append([]int(nil), before...), e.DependsOn)
		if _, err := graph.Sequence(working); err != nil {
			working[i].Dependencies = before
			cause := err.Error()
			if errors.Is(err, graph.ErrDependencyCycle) {
				cause = "would create a cycle"
			}
			skipped = append(skipped, SkippedEdge{Edge: e, Cause: cause})
			continue
		}
		accepted = append(accepted, e)
	}
	return accepted, skipped
}

// stripJSONFences removes markdown code fences that Claude sometimes adds.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	// Remove ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		// Strip opening fence line
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		// Strip closing fence
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
