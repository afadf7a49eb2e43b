package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codebeauty/paratest/internal/adapter"
	"github.com/codebeauty/paratest/internal/config"
	"github.com/codebeauty/paratest/internal/workspace"
)

// knownCommands are tried in order; the first one found wins.
var knownCommands = []struct {
	binary  string
	adapter string
	args    []string
}{
	{"ng", "ng", nil},
	{"nx", "custom", []string{"test", adapter.ProjectPlaceholder, "--watch=false"}},
	{"npx", "ng", nil},
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Detect the workspace test command and write .paratest.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			wd := mustGetwd()
			stderr := cmd.ErrOrStderr()

			if existing := config.ProjectConfigPath(wd); existing != "" && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", existing)
			}

			var command *config.CommandConfig
			for _, known := range knownCommands {
				binPath := findBinary(known.binary, wd)
				if binPath == "" {
					continue
				}
				command = &config.CommandConfig{Adapter: known.adapter, Binary: binPath, Args: known.args}
				fmt.Fprintf(stderr, "  discovered: %s -> %s\n", known.binary, binPath)
				break
			}
			if command == nil {
				return fmt.Errorf("no test command found: install @angular/cli or nx in this workspace")
			}

			pc := &config.ProjectConfig{Command: command}
			if _, err := os.Stat(filepath.Join(wd, workspace.DefaultManifest)); err != nil {
				fmt.Fprintf(stderr, "  warning: %s not found in %s\n", workspace.DefaultManifest, wd)
			} else if projects, err := workspace.Load(filepath.Join(wd, workspace.DefaultManifest)); err == nil {
				fmt.Fprintf(stderr, "  %d project(s) in %s\n", len(projects), workspace.DefaultManifest)
			}

			path, err := config.SaveProjectConfig(wd, pc)
			if err != nil {
				return fmt.Errorf("saving project config: %w", err)
			}
			fmt.Fprintf(stderr, "\nConfig written to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing project config")
	return cmd
}

// findBinary prefers the workspace-local install over PATH.
func findBinary(name, workDir string) string {
	local := filepath.Join(workDir, "node_modules", ".bin", name)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return filepath.Join("node_modules", ".bin", name)
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}
