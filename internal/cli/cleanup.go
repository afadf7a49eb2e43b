package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/codebeauty/paratest/internal/output"
)

// prunedRun is the JSON form of a cleanup decision.
type prunedRun struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	RunID     string    `json:"runId,omitempty"`
	State     string    `json:"state,omitempty"`
	ExitCode  int       `json:"exitCode"`
	StartedAt time.Time `json:"startedAt"`
	Removed   bool      `json:"removed"`
}

func newPrunedRun(r output.Run) prunedRun {
	p := prunedRun{Name: r.Name, Path: r.Path, StartedAt: r.Started()}
	if r.Manifest != nil {
		p.RunID = r.Manifest.RunID
		p.State = r.Manifest.State
		p.ExitCode = r.Manifest.ExitCode
	}
	return p
}

type cleanupOptions struct {
	olderThan  string
	keepLast   int
	keepFailed bool
	outputDir  string
	dryRun     bool
	yes        bool
	jsonOut    bool
}

func newCleanupCmd() *cobra.Command {
	var opts cleanupOptions

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old run reports",
		Long: `Remove run directories under the report dir. Only directories holding a
run.json are considered. Age is taken from the recorded start time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.olderThan, "older-than", "1d", "Age threshold (e.g., 1d, 2w, 30m)")
	cmd.Flags().IntVar(&opts.keepLast, "keep-last", 0, "Always keep the newest N runs")
	cmd.Flags().BoolVar(&opts.keepFailed, "keep-failed", false, "Keep runs that failed or were aborted")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Report directory (default: from config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be removed without deleting")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")

	return cmd
}

func runCleanup(cmd *cobra.Command, opts cleanupOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	age, err := output.ParseDuration(opts.olderThan)
	if err != nil {
		return fmt.Errorf("invalid --older-than: %w", err)
	}
	if opts.keepLast < 0 {
		return fmt.Errorf("invalid --keep-last %d: must be >= 0", opts.keepLast)
	}
	baseDir, err := resolveOutputDir(opts.outputDir)
	if err != nil {
		return err
	}

	runs, err := output.LoadRuns(baseDir)
	if err != nil {
		return err
	}
	prune := output.SelectPrunable(runs, output.PruneOptions{
		Before:     time.Now().Add(-age),
		KeepLast:   opts.keepLast,
		KeepFailed: opts.keepFailed,
	})

	decisions := make([]prunedRun, len(prune))
	for i, r := range prune {
		decisions[i] = newPrunedRun(r)
	}

	if len(prune) == 0 {
		if opts.jsonOut {
			return writeJSON(stdout, decisions)
		}
		fmt.Fprintln(stderr, "No runs to clean up.")
		return nil
	}

	if opts.dryRun {
		if opts.jsonOut {
			return writeJSON(stdout, decisions)
		}
		fmt.Fprintf(stderr, "Would remove %d run(s):\n", len(prune))
		fmt.Fprint(stderr, historyTable(prune).Render())
		return nil
	}

	if !opts.yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to delete without --yes in non-interactive mode")
		}
		fmt.Fprintf(stderr, "Will remove %d run(s):\n", len(prune))
		fmt.Fprint(stderr, historyTable(prune).Render())
		if !confirm(cmd.InOrStdin(), stderr) {
			fmt.Fprintln(stderr, "Cancelled.")
			return nil
		}
	}

	removed := 0
	for i, r := range prune {
		if err := os.RemoveAll(r.Path); err != nil {
			fmt.Fprintf(stderr, "  error removing %s: %v\n", r.Name, err)
			continue
		}
		decisions[i].Removed = true
		removed++
		if !opts.jsonOut {
			fmt.Fprintf(stderr, "  removed: %s\n", r.Name)
		}
	}
	fmt.Fprintf(stderr, "Removed %d run(s)\n", removed)

	if opts.jsonOut {
		return writeJSON(stdout, decisions)
	}
	return nil
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "\nProceed? [y/N] ")
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
