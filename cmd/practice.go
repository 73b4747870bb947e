package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/catalog"
	"github.com/finprep/finprep/internal/selection"
)

var practiceCmd = &cobra.Command{
	Use:   "practice <email>",
	Short: "Select a practice set for a learner",
	Long: `Select a practice set for one topic. About 70% of the set comes from
problems the learner has not completed yet and the rest is review.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topicFlag, _ := cmd.Flags().GetString("topic")
		count, _ := cmd.Flags().GetInt("count")
		if count <= 0 {
			return fmt.Errorf("--count must be positive, got %d", count)
		}
		topic, err := parseTopic(topicFlag)
		if err != nil {
			return err
		}

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

		plan := newSelector(cmd, d.catalog).SelectPlan(topic, p.CompletedSet(topic), count)

		out := cmd.OutOrStdout()
		if len(plan.Slots) == 0 {
			fmt.Fprintf(out, "No problems available for %s.\n", topic.DisplayName())
			return nil
		}

		fmt.Fprintf(out, "%s: %d problems (%d new, %d review)\n\n", topic.DisplayName(),
			len(plan.Slots), plan.Count(selection.CategoryUnseen), plan.Count(selection.CategoryReview))
		fmt.Fprintf(out, "%-3s  %-10s  %-7s  %-12s  %s\n", "#", "ID", "Kind", "Difficulty", "Question")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for i, s := range plan.Slots {
			fmt.Fprintf(out, "%-3d  %-10s  %-7s  %-12s  %s\n",
				i+1, s.Problem.ID, s.Category, s.Problem.Difficulty.Label(), truncate(s.Problem.Question, 60))
		}
		return nil
	},
}

var diagnosticCmd = &cobra.Command{
	Use:   "diagnostic",
	Short: "Assemble a diagnostic test across all topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		// The diagnostic only needs the catalog, so no store is opened.
		problems := newSelector(cmd, catalog.Default()).CreateDiagnosticTest()

		out := cmd.OutOrStdout()
		for i, p := range problems {
			if full {
				fmt.Fprintf(out, "%d. [%s] %s\n   %s\n\n", i+1, p.ID, p.Topic.DisplayName(), p.Question)
				continue
			}
			fmt.Fprintf(out, "%-3d  %-10s  %-24s  %s\n", i+1, p.ID, p.Topic.DisplayName(), truncate(p.Question, 56))
		}
		fmt.Fprintf(out, "\n%d problems\n", len(problems))
		return nil
	},
}

func init() {
	practiceCmd.Flags().String("topic", "", "Topic to practice (required)")
	practiceCmd.Flags().Int("count", selection.DefaultCount, "Number of problems")
	practiceCmd.Flags().Uint64("seed", 0, "Seed the selection for a reproducible set")
	_ = practiceCmd.MarkFlagRequired("topic")

	diagnosticCmd.Flags().Uint64("seed", 0, "Seed the shuffle for a reproducible test")
	diagnosticCmd.Flags().Bool("full", false, "Print full question text")
}
