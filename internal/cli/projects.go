package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebeauty/paratest/internal/config"
	"github.com/codebeauty/paratest/internal/workspace"
)

func newProjectsCmd() *cobra.Command {
	var (
		manifest string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List workspace projects in run order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifest == "" {
				cfg, err := config.LoadMerged(mustGetwd())
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				manifest = cfg.Defaults.Workspace
			}

			projects, err := workspace.Load(manifest)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(projects)
			}
			for _, p := range projects {
				fmt.Fprintln(w, p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifest, "workspace", "w", "", "Workspace manifest (default: from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON array")

	return cmd
}
