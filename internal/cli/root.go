package cli

import (
	"github.com/spf13/cobra"
)

var envFile string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "exam-service",
		Short:         "Exam attempt and scoring service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a dotenv file, ignored when missing")
	cmd.AddCommand(newServeCmd(&envFile))
	cmd.AddCommand(newMigrateCmd(&envFile))
	cmd.AddCommand(newSweepCmd(&envFile))
	cmd.AddCommand(newTokenCmd(&envFile))
	return cmd
}
