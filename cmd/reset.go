package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <email>",
	Short: "Reset a learner's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		u, err := d.accounts.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := d.progress.Reset(ctx, u.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Progress reset for %s\n", u.Email)
		return nil
	},
}
