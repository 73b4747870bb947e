package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/answer"
	"github.com/finprep/finprep/internal/catalog"
	"github.com/finprep/finprep/internal/progress"
)

var checkCmd = &cobra.Command{
	Use:   "check <problem-id> <answer>",
	Short: "Check one answer against the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		explain, _ := cmd.Flags().GetBool("explain")

		p, ok := catalog.Default().Get(args[0])
		if !ok {
			return fmt.Errorf("unknown problem %q", args[0])
		}

		out := cmd.OutOrStdout()
		if answer.Check(args[1], p) {
			fmt.Fprintln(out, "correct")
		} else {
			fmt.Fprintf(out, "incorrect (expected %s)\n", p.Answer)
		}
		if explain {
			fmt.Fprintf(out, "\n%s\n", p.Solution)
		}
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <email>",
	Short: "Record a batch of practice results for a topic",
	Long: `Record a batch of practice results. The results file holds a JSON array of
{"problemId", "correct", "userAnswer", "timeSpent", "hintsUsed"} objects; use "-"
to read it from stdin. With --grade, each result's correctness is recomputed
from its userAnswer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topicFlag, _ := cmd.Flags().GetString("topic")
		resultsPath, _ := cmd.Flags().GetString("results")
		grade, _ := cmd.Flags().GetBool("grade")

		topic, err := parseTopic(topicFlag)
		if err != nil {
			return err
		}
		results, err := readResults(cmd.InOrStdin(), resultsPath)
		if err != nil {
			return err
		}

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if grade {
			gradeResults(d.catalog, results)
		}

		ctx := cmd.Context()
		u, err := d.accounts.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		tp, err := d.progress.UpdateTopicProgress(ctx, u.ID, topic, results)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No results submitted; progress unchanged.")
			return nil
		}
		fmt.Fprintf(out, "%s: batch accuracy %.0f%%, %d/%d completed\n",
			topic.DisplayName(), tp.Accuracy*100, len(tp.Completed), d.catalog.Count(topic))
		return nil
	},
}

func readResults(stdin io.Reader, path string) ([]progress.PracticeResult, error) {
	var r io.Reader
	switch path {
	case "":
		return nil, fmt.Errorf("--results is required")
	case "-":
		r = stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var results []progress.PracticeResult
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}

// gradeResults sets Correct from each result's UserAnswer. Results for
// problems outside the catalog are marked incorrect.
func gradeResults(c *catalog.Catalog, results []progress.PracticeResult) {
	for i := range results {
		p, ok := c.Get(results[i].ProblemID)
		results[i].Correct = ok && answer.Check(results[i].UserAnswer, p)
	}
}

func init() {
	checkCmd.Flags().Bool("explain", false, "Print the worked solution")

	submitCmd.Flags().String("topic", "", "Topic the batch belongs to (required)")
	submitCmd.Flags().String("results", "", "Path to the results JSON file, or - for stdin")
	submitCmd.Flags().Bool("grade", false, "Recompute correctness from userAnswer")
	_ = submitCmd.MarkFlagRequired("topic")
}
