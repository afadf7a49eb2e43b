package cli

import "github.com/spf13/cobra"

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paratest",
		Short:         "Run the tests of every workspace project in parallel",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newProjectsCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCleanupCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newConfigCmd())

	return root
}

func Execute() error {
	return newRootCmd().Execute()
}
