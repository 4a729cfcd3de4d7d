package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Index.Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Index:     %s\n", stats.Name)
		fmt.Fprintf(out, "Backend:   %s\n", stats.Backend)
		fmt.Fprintf(out, "Dimension: %d\n", stats.Dimension)
		fmt.Fprintf(out, "Metric:    %s\n", stats.Metric)
		fmt.Fprintf(out, "Records:   %d\n", stats.RecordCount)
		return nil
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every record in the vector index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Index.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index %s cleared\n", a.Config.Index.Name)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "confirm the reset")
	rootCmd.AddCommand(statusCmd, resetCmd)
}
