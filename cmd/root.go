package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/config"
	"github.com/finprep/finprep/internal/kv"
	"github.com/finprep/finprep/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "finprep",
	Short:         "Finance exam study engine",
	Long:          "finprep selects practice problems, checks answers and tracks per-topic progress for finance exam preparation.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides FINPREP_DB env var)")
	pf.String("store", "", "Store backend: sqlite, redis or memory (overrides FINPREP_STORE)")
	pf.String("redis-url", "", "Redis URL for the redis store (overrides FINPREP_REDIS_URL)")
	pf.Bool("verbose", false, "Enable debug logging")
	pf.String("env-file", "", "Load environment variables from this file instead of ./.env")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(diagnosticCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveConfig builds the configuration from, in increasing priority,
// defaults, the .env file, the environment and command-line flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	var err error
	if envFile != "" {
		err = config.LoadDotEnv(envFile)
	} else {
		err = config.LoadDotEnv()
	}
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	if b, _ := cmd.Flags().GetString("store"); b != "" {
		cfg.Store.Backend = b
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.DBPath = p
		if !cmd.Flags().Changed("store") {
			cfg.Store.Backend = kv.BackendSQLite
		}
	}
	if u, _ := cmd.Flags().GetString("redis-url"); u != "" {
		cfg.Store.RedisURL = u
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	logging.SetVerbose(cfg.Verbose)
	return cfg, nil
}
