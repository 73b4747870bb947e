package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/catalog"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "finprep %s (catalog %s)\n", version, catalog.Default().Version())
	},
}
