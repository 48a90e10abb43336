package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark in-progress attempts past their duration as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			expired, err := a.services.Attempt().ExpireStale(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("Expired stale attempts", "count", expired)
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d attempts\n", expired)
			return nil
		},
	}
}
