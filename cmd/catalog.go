package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse and validate problem catalogs",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all problems (optionally filtered by topic)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := catalog.Default()
		out := cmd.OutOrStdout()

		problems := c.All()
		if s, _ := cmd.Flags().GetString("topic"); s != "" {
			t, err := parseTopic(s)
			if err != nil {
				return err
			}
			problems = c.ByTopic(t)
		}

		// Header.
		fmt.Fprintf(out, "%-10s  %-24s  %-12s  %s\n", "ID", "Topic", "Difficulty", "Question")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, p := range problems {
			fmt.Fprintf(out, "%-10s  %-24s  %-12s  %s\n",
				p.ID, p.Topic.DisplayName(), p.Difficulty.Label(), truncate(p.Question, 48))
		}

		fmt.Fprintf(out, "\n%d problems (catalog %s)\n", len(problems), c.Version())
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a catalog JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		c, err := catalog.Load(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok, version %s, %d problems\n", args[0], c.Version(), c.Len())
		for _, t := range c.Topics() {
			fmt.Fprintf(out, "  %-24s %d\n", t.DisplayName(), c.Count(t))
		}
		if cmp := catalog.CompareVersion(c.Version(), catalog.Default().Version()); cmp < 0 {
			fmt.Fprintf(out, "note: older than the built-in catalog (%s)\n", catalog.Default().Version())
		}
		return nil
	},
}

func init() {
	catalogListCmd.Flags().String("topic", "", "Filter by topic (e.g. bond-valuation)")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
