package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebeauty/paratest/internal/config"
	"github.com/codebeauty/paratest/internal/tui"
	"github.com/codebeauty/paratest/internal/workspace"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, workspace and test command availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newChecker(cmd.ErrOrStderr(), tui.IsTTY())

			cfgPath := config.GlobalConfigPath()
			if _, err := os.Stat(cfgPath); err != nil {
				c.warn(fmt.Sprintf("Config file not found: %s (using defaults)", cfgPath))
			} else {
				c.pass(fmt.Sprintf("Config file: %s", cfgPath))
			}

			wd := mustGetwd()
			if p := config.ProjectConfigPath(wd); p != "" {
				c.pass(fmt.Sprintf("Project config: %s", p))
			}

			cfg, err := config.LoadMerged(wd)
			if err != nil {
				c.fail(fmt.Sprintf("Config invalid: %s", err))
				return fmt.Errorf("config validation failed")
			}
			if err := cfg.Validate(); err != nil {
				c.fail(fmt.Sprintf("Config invalid: %s", err))
				return fmt.Errorf("config validation failed")
			}
			c.pass(fmt.Sprintf("Config loaded (concurrency %d)", cfg.Defaults.Concurrency))

			projects, err := workspace.Load(cfg.Defaults.Workspace)
			switch {
			case err != nil:
				c.fail(fmt.Sprintf("Workspace: %s", err))
			case len(projects) == 0:
				c.warn(fmt.Sprintf("Workspace %s lists no projects", cfg.Defaults.Workspace))
			default:
				c.pass(fmt.Sprintf("Workspace %s: %d project(s)", cfg.Defaults.Workspace, len(projects)))
			}

			binPath, err := resolveBinary(cfg.Command.Binary, wd)
			if err != nil {
				c.fail(err.Error())
			} else {
				c.pass(fmt.Sprintf("Test command: %s", binPath))
				if v := commandVersion(binPath); v != "" {
					c.pass(fmt.Sprintf("Version: %s", v))
				} else {
					c.warn("Could not determine test command version")
				}
			}

			if c.failed {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}

type checker struct {
	w      io.Writer
	rich   bool
	failed bool
}

func newChecker(w io.Writer, rich bool) *checker {
	return &checker{w: w, rich: rich}
}

func (c *checker) line(icon, plain, msg string) {
	if c.rich {
		fmt.Fprintf(c.w, "  %s %s\n", icon, msg)
	} else {
		fmt.Fprintf(c.w, "%s %s\n", plain, msg)
	}
}

func (c *checker) pass(msg string) { c.line(tui.IconSuccess, "✓", msg) }
func (c *checker) warn(msg string) { c.line(tui.IconWarning, "⚠", msg) }

func (c *checker) fail(msg string) {
	c.failed = true
	c.line(tui.IconError, "✗", msg)
}

func commandVersion(binPath string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binPath, "--version").CombinedOutput()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
