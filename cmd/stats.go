package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/progress"
)

var statsCmd = &cobra.Command{
	Use:   "stats <email>",
	Short: "Show a learner's progress per topic",
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
		p, err := d.progress.Load(ctx, u.ID)
		if err != nil {
			return err
		}
		s := progress.Summarize(p, d.catalog)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-24s  %9s  %10s  %10s  %8s\n", "Topic", "Completed", "Last batch", "Lifetime", "Attempts")
		fmt.Fprintln(out, strings.Repeat("─", 70))
		for _, ts := range s.Topics {
			fmt.Fprintf(out, "%-24s  %4d/%-4d  %9.0f%%  %9.0f%%  %8d\n",
				ts.Topic.DisplayName(), ts.Completed, ts.Total,
				ts.Accuracy*100, ts.LifetimeAccuracy*100, ts.Attempts)
		}
		fmt.Fprintln(out, strings.Repeat("─", 70))
		fmt.Fprintf(out, "%-24s  %4d/%-4d  %10s  %9.0f%%  %8d\n",
			"Overall", s.Overall.Completed, s.Overall.Total, "",
			s.Overall.LifetimeAccuracy*100, s.Overall.Attempts)
		return nil
	},
}
