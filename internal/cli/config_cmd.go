package cli

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codebeauty/paratest/internal/config"
	"github.com/codebeauty/paratest/internal/tui"
)

var jsonKeyRe = regexp.MustCompile(`^(\s*)"([^"]+)":`)

func colorizeJSON(line string) string {
	if m := jsonKeyRe.FindStringSubmatchIndex(line); m != nil {
		indent := line[:m[3]]
		key := line[m[4]:m[5]]
		return indent + tui.StylePrimary.Render(`"`+key+`":`) + line[m[1]:]
	}
	return line
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			rich := tui.IsTTY()
			wd := mustGetwd()

			label := func(s string) string {
				if rich {
					return tui.StyleBold.Render(s)
				}
				return s
			}
			fmt.Fprintf(stderr, "%s %s\n", label("Config file:"), config.GlobalConfigPath())
			if p := config.ProjectConfigPath(wd); p != "" {
				fmt.Fprintf(stderr, "%s %s\n", label("Project config:"), p)
			}
			fmt.Fprintln(stderr)

			cfg, err := config.LoadMerged(wd)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}

			if !rich {
				fmt.Fprintln(stdout, string(data))
				return nil
			}
			for _, line := range strings.Split(string(data), "\n") {
				fmt.Fprintln(stdout, colorizeJSON(line))
			}
			return nil
		},
	}
}
