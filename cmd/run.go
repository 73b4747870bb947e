package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/account"
	"github.com/finprep/finprep/internal/catalog"
	"github.com/finprep/finprep/internal/config"
	"github.com/finprep/finprep/internal/kv"
	"github.com/finprep/finprep/internal/logging"
	"github.com/finprep/finprep/internal/progress"
	"github.com/finprep/finprep/internal/selection"
)

// deps bundles the services a command needs.
type deps struct {
	cfg      config.Config
	store    kv.Store
	catalog  *catalog.Catalog
	progress *progress.Service
	accounts *account.Service
}

// openDeps resolves configuration, opens the store, and builds services.
// Callers must Close the result.
func openDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	st, err := kv.Open(cmd.Context(), cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logging.Store("opened %s store", cfg.Store.Backend)

	cat := catalog.Default()
	ps := progress.NewService(st, cat)
	return &deps{
		cfg:      cfg,
		store:    st,
		catalog:  cat,
		progress: ps,
		accounts: account.NewService(st, ps, cfg.SessionTTL),
	}, nil
}

func (d *deps) Close() error {
	return d.store.Close()
}

// newSelector returns a selector over the built-in catalog, seeded when
// --seed was given.
func newSelector(cmd *cobra.Command, c *catalog.Catalog) *selection.Selector {
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		return selection.New(c, selection.WithSeed(seed))
	}
	return selection.New(c)
}

func parseTopic(s string) (catalog.Topic, error) {
	t, ok := catalog.ParseTopic(s)
	if !ok {
		return "", fmt.Errorf("unknown topic %q (want one of %v)", s, catalog.AllTopics())
	}
	return t, nil
}
