package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codebeauty/paratest/internal/output"
	"github.com/codebeauty/paratest/internal/tui"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "View persisted run reports",
	}

	cmd.AddCommand(newSummaryLatestCmd())
	cmd.AddCommand(newSummaryListCmd())

	return cmd
}

// historyTable renders one row per run.
func historyTable(runs []output.Run) tui.Table {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		if r.Manifest == nil {
			rows = append(rows, []string{r.Started().Format("2006-01-02 15:04"), "unreadable", "-", "-", "-", "-", r.Name})
			continue
		}
		s := r.Manifest.Summary
		rows = append(rows, []string{
			r.Started().Format("2006-01-02 15:04"),
			r.Manifest.State,
			fmt.Sprintf("%d/%d", r.Passed(), len(r.Manifest.Results)),
			strconv.Itoa(len(s.Failed)),
			strconv.Itoa(len(s.Unfinished)),
			r.Manifest.Duration,
			r.Name,
		})
	}
	return tui.Table{
		Headers: []string{"STARTED", "STATE", "PASSED", "FAILED", "UNFINISHED", "DURATION", "RUN"},
		Rows:    rows,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRunReport renders a persisted manifest: a header line and one row
// per project in input order.
func printRunReport(w io.Writer, m *output.Manifest) {
	fmt.Fprintf(w, "Run %s  %s  %s\n", m.RunID, m.State, m.Duration)
	if m.AbortReason != "" {
		fmt.Fprintf(w, "Aborted: %s\n", m.AbortReason)
	}
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(m.Results))
	for _, r := range m.Results {
		port := ""
		if r.Port > 0 {
			port = strconv.Itoa(r.Port)
		}
		rows = append(rows, []string{
			tui.StatusIcon(r.Status) + " " + r.Project,
			r.Status,
			r.Total,
			port,
			r.Duration,
			r.LogFile,
		})
	}
	fmt.Fprint(w, tui.Table{
		Headers: []string{"PROJECT", "STATUS", "TOTAL", "PORT", "DURATION", "LOG"},
		Rows:    rows,
	}.Render())
}

// failedLogs lists log paths of projects that failed or never finished.
func failedLogs(runDir string, m *output.Manifest) []string {
	var paths []string
	for _, r := range m.Results {
		if r.LogFile == "" || (r.Status != "failure" && r.Status != output.StatusUnfinished) {
			continue
		}
		paths = append(paths, filepath.Join(runDir, r.LogFile))
	}
	return paths
}

func newSummaryLatestCmd() *cobra.Command {
	var (
		outputDir string
		showPath  bool
		jsonOut   bool
		markdown  bool
		failed    bool
	)

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent run report",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			baseDir, err := resolveOutputDir(outputDir)
			if err != nil {
				return err
			}
			runs, err := output.LoadRuns(baseDir)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return fmt.Errorf("no runs found in %s", baseDir)
			}
			latest := runs[0]

			switch {
			case showPath:
				fmt.Fprintln(stdout, latest.Path)
				return nil
			case markdown:
				data, err := os.ReadFile(filepath.Join(latest.Path, "summary.md"))
				if err != nil {
					return fmt.Errorf("reading summary: %w", err)
				}
				fmt.Fprint(stdout, string(data))
				return nil
			}

			if latest.Manifest == nil {
				return fmt.Errorf("run.json in %s is unreadable", latest.Path)
			}
			switch {
			case jsonOut:
				return writeJSON(stdout, latest.Manifest)
			case failed:
				for _, p := range failedLogs(latest.Path, latest.Manifest) {
					fmt.Fprintln(stdout, p)
				}
			default:
				printRunReport(stdout, latest.Manifest)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Report directory (default: from config)")
	cmd.Flags().BoolVar(&showPath, "path", false, "Print the run directory path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run manifest (run.json)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print summary.md")
	cmd.Flags().BoolVar(&failed, "failed", false, "Print log paths of failed and unfinished projects")
	cmd.MarkFlagsMutuallyExclusive("path", "json", "markdown", "failed")

	return cmd
}

func newSummaryListCmd() *cobra.Command {
	var (
		outputDir string
		limit     int
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := resolveOutputDir(outputDir)
			if err != nil {
				return err
			}
			runs, err := output.LoadRuns(baseDir)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
				return nil
			}
			if limit > 0 && limit < len(runs) {
				runs = runs[:limit]
			}

			if jsonOut {
				manifests := make([]*output.Manifest, 0, len(runs))
				for _, r := range runs {
					if r.Manifest != nil {
						manifests = append(manifests, r.Manifest)
					}
				}
				return writeJSON(cmd.OutOrStdout(), manifests)
			}

			fmt.Fprint(cmd.OutOrStdout(), historyTable(runs).Render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Report directory (default: from config)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON array of manifests")

	return cmd
}
