package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codebeauty/paratest/internal/adapter"
	"github.com/codebeauty/paratest/internal/affected"
	"github.com/codebeauty/paratest/internal/config"
	"github.com/codebeauty/paratest/internal/controller"
	"github.com/codebeauty/paratest/internal/logging"
	"github.com/codebeauty/paratest/internal/metrics"
	"github.com/codebeauty/paratest/internal/output"
	"github.com/codebeauty/paratest/internal/runner"
	"github.com/codebeauty/paratest/internal/tui"
	"github.com/codebeauty/paratest/internal/ui"
	"github.com/codebeauty/paratest/internal/workspace"
)

type runOptions struct {
	concurrency       string
	continueOnFailure bool
	timeout           int
	workspace         string
	outputDir         string
	jsonOutput        bool
	dryRun            bool
	metricsFile       string
	logLevel          string
	affected          bool
	base              string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [project...]",
		Short: "Run the test suites of workspace projects in parallel",
		Long: "Runs one test invocation per project with a bounded number in flight, " +
			"stops on the first failure unless --continue-on-failure is set, and prints a consolidated summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.concurrency, "concurrency", "c", "", "Maximum parallel test runs (default: from config)")
	cmd.Flags().BoolVar(&opts.continueOnFailure, "continue-on-failure", false, "Keep going after a project fails")
	cmd.Flags().IntVar(&opts.timeout, "timeout", 0, "Per-project timeout in seconds (0 = none)")
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "Workspace manifest (default: angular.json)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Report directory override")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run manifest as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show invocations without executing")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&opts.affected, "affected", false, "Only run projects with uncommitted git changes")
	cmd.Flags().StringVar(&opts.base, "base", "", "With --affected, also include changes since this git ref")

	return cmd
}

func runTests(cmd *cobra.Command, args []string, opts runOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	wd := mustGetwd()

	cfg, err := config.LoadMerged(wd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := applyRunFlags(cmd, cfg, opts); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	projects, err := resolveProjects(args, cfg.Defaults.Workspace, opts, wd)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		if opts.affected {
			fmt.Fprintln(stderr, "No affected projects.")
			return nil
		}
		return fmt.Errorf("no projects found in %s", cfg.Defaults.Workspace)
	}

	params := adapter.RunParams{
		WorkDir: wd,
		Timeout: time.Duration(cfg.Defaults.Timeout) * time.Second,
	}

	if opts.dryRun {
		a, err := buildAdapter(cfg, cfg.Command.Binary)
		if err != nil {
			return err
		}
		for _, p := range projects {
			inv := a.BuildInvocation(p, params)
			fmt.Fprintf(stdout, "%s:\n  %s %s\n", p, inv.Binary, strings.Join(inv.Args, " "))
		}
		return nil
	}

	binary, err := resolveBinary(cfg.Command.Binary, wd)
	if err != nil {
		return err
	}
	a, err := buildAdapter(cfg, binary)
	if err != nil {
		return err
	}

	log, err := logging.New(opts.logLevel, stderr)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(controller.Config{
		Concurrency:       cfg.Defaults.Concurrency,
		ContinueOnFailure: cfg.Defaults.ContinueOnFailure,
	}, a, log)
	if err != nil {
		return err
	}

	runID := output.NewRunID()
	runDir, err := output.RunDir(cfg.Defaults.OutputDir, runID, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Output: %s\n", runDir)

	prog := ui.NewProgress(projects)
	ctrl.Runner().SetProgressFunc(func(project, event string, result *runner.Result) {
		switch event {
		case "started":
			prog.MarkRunning(project)
		case "completed":
			if result != nil && !result.Canceled {
				prog.MarkDone(project, string(result.Outcome.Kind))
			}
		}
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prog.Start(cfg.Defaults.Concurrency)
	report, err := ctrl.Run(ctx, projects, params)
	prog.Stop()
	if err != nil {
		return err
	}

	manifest := output.BuildManifest(runID, cfg.Defaults.Workspace, report, output.ManifestConfig{
		Concurrency:       cfg.Defaults.Concurrency,
		ContinueOnFailure: cfg.Defaults.ContinueOnFailure,
		Timeout:           cfg.Defaults.Timeout,
		Command:           a.Binary(),
	})
	persistRun(runDir, report, manifest, log)

	if opts.metricsFile != "" {
		rec := metrics.NewRecorder()
		rec.Observe(report)
		if err := rec.WriteFile(opts.metricsFile); err != nil {
			log.WithError(err).Warn("failed to write metrics file")
		}
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(manifest); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, report, isTerminal(stdout))
	}

	if code := report.ExitCode(); code != ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

// applyRunFlags lays explicitly set flags over the merged config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts runOptions) error {
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		n, err := config.ParseConcurrency(opts.concurrency)
		if err != nil {
			return err
		}
		cfg.Defaults.Concurrency = n
	}
	if flags.Changed("continue-on-failure") {
		cfg.Defaults.ContinueOnFailure = opts.continueOnFailure
	}
	if flags.Changed("timeout") {
		cfg.Defaults.Timeout = opts.timeout
	}
	if opts.workspace != "" {
		cfg.Defaults.Workspace = opts.workspace
	}
	if opts.outputDir != "" {
		cfg.Defaults.OutputDir = opts.outputDir
	}
	return nil
}

func buildAdapter(cfg *config.Config, binary string) (adapter.Adapter, error) {
	return adapter.Build(cfg.Command.Adapter, binary, cfg.Command.Args, cfg.Command.Browsers)
}

// resolveProjects returns the positional projects, or the workspace list
// optionally narrowed to those touched by git changes.
func resolveProjects(args []string, manifest string, opts runOptions, wd string) ([]string, error) {
	if len(args) > 0 {
		return uniqueProjects(args), nil
	}
	if !opts.affected {
		return workspace.Load(manifest)
	}
	projects, err := workspace.LoadProjects(manifest)
	if err != nil {
		return nil, err
	}
	changed, err := affected.ChangedFiles(filepath.Dir(absPath(manifest, wd)), opts.base)
	if err != nil {
		return nil, fmt.Errorf("finding affected projects: %w", err)
	}
	return affected.Select(projects, changed), nil
}

// uniqueProjects drops repeated names, keeping first-seen order.
func uniqueProjects(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func absPath(p, wd string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(wd, p)
}

func persistRun(runDir string, report *controller.Report, manifest *output.Manifest, log logrus.FieldLogger) {
	if err := output.WriteLogs(runDir, report.Results); err != nil {
		log.WithError(err).Warn("failed to write project logs")
	}
	if err := output.WriteManifest(runDir, manifest); err != nil {
		log.WithError(err).Warn("failed to write manifest")
	}
	if err := output.WriteSummary(runDir, output.BuildSummary(manifest)); err != nil {
		log.WithError(err).Warn("failed to write summary")
	}
}

// resolveBinary finds the test command on PATH or in the workspace's
// node_modules/.bin.
func resolveBinary(name, workDir string) (string, error) {
	if name == "" {
		name = "ng"
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	if !strings.ContainsRune(name, filepath.Separator) {
		local := filepath.Join(workDir, "node_modules", ".bin", name)
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			return local, nil
		}
	}
	return "", fmt.Errorf("test command %q not found on PATH or in node_modules/.bin", name)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && tui.IsTTY()
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// resolveOutputDir returns the flag value if non-empty, otherwise the
// configured report directory.
func resolveOutputDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.LoadMerged(mustGetwd())
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return cfg.Defaults.OutputDir, nil
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
