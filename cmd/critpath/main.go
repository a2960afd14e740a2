package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joshharrison/critpath/internal/claude"
	"github.com/joshharrison/critpath/internal/config"
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/project"
	"github.com/joshharrison/critpath/internal/reporter"
	"github.com/joshharrison/critpath/internal/server"
	"github.com/joshharrison/critpath/internal/ui"
)

var (
	flagProject   string
	flagJSON      bool
	flagLogLevel  string
	flagLogFormat string
	flagStart     string
	flagFormat    string
	flagOutput    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "critpath",
		Short: "Critical path scheduling for dependency-linked tasks",
		Long: `Critpath reads a project file of tasks with finish-to-start dependencies,
computes earliest and latest start and finish dates, slack and the critical
path, and renders the schedule as a table, JSON, Graphviz or over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(os.Stderr, flagLogLevel, flagLogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "Project file (default $"+config.EnvProject+" or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(inferDepsCmd())

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// loadProject reads the project file. With allowMissing an absent file
// yields an empty project.
func loadProject(allowMissing bool) (*config.File, string, error) {
	path := config.ResolvePath(flagProject)
	f, err := config.Load(path)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return &config.File{}, path, nil
		}
		return nil, path, err
	}
	return f, path, nil
}

// buildSchedule is shared logic for schedule and viz commands.
func buildSchedule() (*cpm.Result, cpm.Settings, error) {
	f, _, err := loadProject(false)
	if err != nil {
		return nil, cpm.Settings{}, err
	}

	settings := f.Settings
	if flagStart != "" {
		start, err := date.Parse(flagStart)
		if err != nil {
			return nil, settings, fmt.Errorf("--start: %w", err)
		}
		settings.ProjectStart = &start
	}

	result, err := cpm.Schedule(f.Tasks, settings)
	if err != nil {
		return nil, settings, err
	}
	slog.Debug("schedule computed", "tasks", len(result.Tasks), "critical", len(result.CriticalPath))
	return result, settings, nil
}

func scheduleCmd() *cobra.Command {
	var (
		flagBriefTemplate string
		flagBrief         bool
		flagNarrate       bool
		flagModel         string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute and print the project schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, settings, err := buildSchedule()
			if err != nil {
				return err
			}
			rpt := reporter.New(result, settings)

			if flagJSON {
				data, err := rpt.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if !flagBrief && !flagNarrate {
				rpt.PrintTable(os.Stdout)
				return nil
			}

			brief, err := rpt.Brief(flagBriefTemplate)
			if err != nil {
				return fmt.Errorf("render brief: %w", err)
			}
			if !flagNarrate {
				fmt.Print(brief)
				return nil
			}

			client, err := claude.NewClient("", flagModel)
			if err != nil {
				return err
			}
			narrative, err := client.SummariseSchedule(cmd.Context(), brief)
			if err != nil {
				return fmt.Errorf("summarise schedule: %w", err)
			}
			fmt.Printf("💡 %s\n\n%s\n", ui.BoldWhite("Schedule narrative"), narrative)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagStart, "start", "", "Override the project start date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flagBrief, "brief", false, "Print a plain-text brief instead of the table")
	cmd.Flags().StringVar(&flagBriefTemplate, "brief-template", "", "Custom text/template for --brief")
	cmd.Flags().BoolVar(&flagNarrate, "narrate", false, "Ask Claude to narrate the brief")
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use with --narrate (default: Sonnet)")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the project for missing dependencies and cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, path, err := loadProject(false)
			if err != nil {
				return err
			}
			order, err := graph.Sequence(f.Tasks)
			if err != nil {
				return err
			}

			ids := make([]int, len(order))
			for i, t := range order {
				ids[i] = t.ID
			}
			if flagJSON {
				return outputJSON(map[string]interface{}{"valid": true, "order": ids})
			}
			fmt.Printf("%s %s: %d tasks, no missing dependencies or cycles\n", ui.Green("✓"), path, len(order))
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	var (
		flagName        string
		flagDuration    float64
		flagDeps        string
		flagManualStart string
		flagDryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to the project file",
		Long: `Validates the new task against the existing ones before writing it, so a
task that would reference a missing dependency or close a cycle is rejected
and the project file is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, path, err := loadProject(true)
			if err != nil {
				return err
			}

			p := project.New(project.WithLogger(slog.Default()))
			if err := p.Load(f.Tasks, f.Settings); err != nil {
				return err
			}

			draft := project.Draft{Name: flagName, Duration: flagDuration}
			if draft.Dependencies, err = parseIDs(flagDeps); err != nil {
				return err
			}
			if flagManualStart != "" {
				ms, err := date.Parse(flagManualStart)
				if err != nil {
					return fmt.Errorf("--manual-start: %w", err)
				}
				draft.ManualStart = &ms
			}

			candidate, err := p.Prepare(draft)
			if err != nil {
				return err
			}
			if flagDryRun {
				if flagJSON {
					return outputJSON(candidate)
				}
				fmt.Printf("%s task %s %q can be added\n", ui.Green("✓"), ui.TaskID(candidate.Task.ID), candidate.Task.Name)
				return nil
			}
			if err := p.Commit(candidate); err != nil {
				return err
			}

			f.Tasks = p.Tasks()
			if err := config.Save(path, f); err != nil {
				return fmt.Errorf("save project: %w", err)
			}
			if flagJSON {
				return outputJSON(candidate.Task)
			}
			fmt.Printf("%s added %s %q to %s\n", ui.Green("✓"), ui.TaskID(candidate.Task.ID), candidate.Task.Name, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagName, "name", "", "Task name")
	cmd.Flags().Float64Var(&flagDuration, "duration", 0, "Duration in days (default: the project's default duration)")
	cmd.Flags().StringVar(&flagDeps, "deps", "", "Comma-separated ids this task depends on")
	cmd.Flags().StringVar(&flagManualStart, "manual-start", "", "Preferred earliest start (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Validate only, do not write the project file")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Print the sample software project as a project file",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := date.Today()
			if flagStart != "" {
				var err error
				if start, err = date.Parse(flagStart); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}

			p := project.New(project.WithLogger(slog.Default()))
			p.SeedDemo(start)
			f := &config.File{Settings: p.Settings(), Tasks: p.Tasks()}

			if flagOutput != "" {
				if err := config.Save(flagOutput, f); err != nil {
					return err
				}
				fmt.Printf("Wrote %d tasks to %s\n", len(f.Tasks), flagOutput)
				return nil
			}
			if flagJSON {
				return outputJSON(f)
			}
			data, err := config.Marshal(f)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagStart, "start", "", "Demo start date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the project file instead of printing it")

	return cmd
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the dependency graph grouped by start date",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, settings, err := buildSchedule()
			if err != nil {
				return err
			}
			rpt := reporter.New(result, settings)

			if flagFormat == "dot" {
				return rpt.WriteDOT(os.Stdout)
			}

			rpt.PrintWaves(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot)")
	cmd.Flags().StringVar(&flagStart, "start", "", "Override the project start date (YYYY-MM-DD)")

	return cmd
}

func serveCmd() *cobra.Command {
	var (
		flagAddr string
		flagDemo bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			p := project.New(project.WithLogger(logger))

			if flagDemo {
				p.SeedDemo(date.Today())
			} else {
				f, _, err := loadProject(true)
				if err != nil {
					return err
				}
				if err := p.Load(f.Tasks, f.Settings); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.PrintBanner(os.Stderr)
			fmt.Fprintf(os.Stderr, "   Listening on %s\n\n", ui.BoldCyan(flagAddr))
			return server.New(p, server.WithLogger(logger)).Run(ctx, flagAddr)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&flagDemo, "demo", false, "Start with the sample project instead of the project file")

	return cmd
}

func inferDepsCmd() *cobra.Command {
	var (
		flagApply    bool
		flagModel    string
		flagFromFile string
	)

	cmd := &cobra.Command{
		Use:   "infer-deps",
		Short: "Use Claude to infer task dependencies from names",
		Long: `Sends task names and durations to Claude and infers dependency edges.
By default runs in dry-run mode — use --apply to write deps to the project file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, path, err := loadProject(false)
			if err != nil {
				return err
			}
			if len(f.Tasks) == 0 {
				return fmt.Errorf("no tasks found in %s", path)
			}

			var result *claude.InferDepsResult
			if flagFromFile != "" {
				data, err := os.ReadFile(flagFromFile)
				if err != nil {
					return fmt.Errorf("read from-file: %w", err)
				}
				result = &claude.InferDepsResult{}
				if err := json.Unmarshal(data, result); err != nil {
					return fmt.Errorf("parse from-file: %w", err)
				}
				fmt.Fprintf(os.Stderr, "📂 Loaded %s edges from %s\n", ui.Bold(len(result.Edges)), ui.Dim(flagFromFile))
			} else {
				summaries := claude.Summaries(f.Tasks)
				fmt.Fprintf(os.Stderr, "🔍 Sending %s tasks to Claude for dependency inference...\n", ui.Bold(len(summaries)))

				client, err := claude.NewClient("", flagModel)
				if err != nil {
					return err
				}
				result, err = client.InferDeps(cmd.Context(), summaries)
				if err != nil {
					return fmt.Errorf("infer deps: %w", err)
				}
			}

			accepted, skipped := claude.FilterEdges(f.Tasks, result.Edges)

			if flagJSON {
				out := struct {
					Edges   []claude.DepEdge     `json:"edges"`
					Skipped []claude.SkippedEdge `json:"skipped"`
					Summary string               `json:"summary"`
				}{
					Edges:   accepted,
					Skipped: skipped,
					Summary: result.Summary,
				}
				if flagOutput != "" {
					data, err := json.MarshalIndent(out, "", "  ")
					if err != nil {
						return err
					}
					if err := os.WriteFile(flagOutput, data, 0644); err != nil {
						return err
					}
					fmt.Printf("Wrote %d edges to %s\n", len(accepted), flagOutput)
					return nil
				}
				if !flagApply {
					return outputJSON(out)
				}
			}

			if !flagJSON {
				for _, s := range skipped {
					fmt.Printf("  %s %d depends on %d: %s\n", ui.Yellow("⏭️  SKIP:"), s.Edge.TaskID, s.Edge.DependsOn, s.Cause)
				}
				fmt.Printf("\n🔗 Inferred %s dependencies (%d from Claude, %d after validation):\n\n",
					ui.Bold(len(accepted)), len(result.Edges), len(accepted))
				for _, e := range accepted {
					fmt.Printf("  %s %s depends on %s  — %s\n", ui.Cyan("→"), ui.TaskID(e.TaskID), ui.TaskID(e.DependsOn), ui.Dim(e.Reason))
				}
				if result.Summary != "" {
					fmt.Printf("\n💡 %s %s\n", ui.BoldWhite("Summary:"), result.Summary)
				}
			}

			if !flagApply {
				fmt.Printf("\n🎯 %s\n", ui.Yellow("Dry run — use --apply to write these dependencies to "+path+"."))
				return nil
			}

			p := project.New(project.WithLogger(slog.Default()))
			if err := p.Load(f.Tasks, f.Settings); err != nil {
				return err
			}
			applied := 0
			for _, e := range accepted {
				if err := p.AddDependency(e.TaskID, e.DependsOn); err != nil {
					fmt.Printf("  %s %d depends on %d: %v\n", ui.Red("❌ ERROR:"), e.TaskID, e.DependsOn, err)
					continue
				}
				applied++
			}
			f.Tasks = p.Tasks()
			if err := config.Save(path, f); err != nil {
				return fmt.Errorf("save project: %w", err)
			}
			fmt.Printf("\n🏁 Applied %s/%d dependencies to %s.\n", ui.BoldGreen(applied), len(accepted), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagApply, "apply", false, "Write inferred deps to the project file (default: dry-run)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use (default: Sonnet)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Save JSON output to file (use with --json)")
	cmd.Flags().StringVar(&flagFromFile, "from-file", "", "Load inferred deps from a JSON file instead of calling Claude")

	return cmd
}

// --- Output helpers ---

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printError reports err on stderr, or as a coded JSON body with --json.
func printError(err error) {
	if flagJSON {
		_ = outputJSON(server.NewErrorResponse(err))
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.Red("✗"), err)
}

// parseIDs parses a comma-separated id list such as "1, 2,5".
func parseIDs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid dependency id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
