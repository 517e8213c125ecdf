package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bonus-cli/internal/bonus"
	"github.com/sells-group/bonus-cli/internal/report"
	"github.com/sells-group/bonus-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sheet":
		path := cfg.Store.Path
		if path == "" {
			path = "bonos.xlsx"
		}
		return store.NewSheet(path, cfg.Store.Sheet), nil
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "bonos.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadRules() (bonus.RuleSet, error) {
	if cfg.Rules.File != "" {
		return bonus.LoadRulesFile(cfg.Rules.File)
	}
	rules := bonus.DefaultRules()
	if err := rules.Validate(); err != nil {
		return bonus.RuleSet{}, err
	}
	return rules, nil
}

// initEngine wires the store, rules, engine, and aggregator. The caller owns
// the returned store's Close.
func initEngine(ctx context.Context) (*bonus.Engine, *report.Aggregator, store.Store, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	return bonus.NewEngine(st, rules), report.NewAggregator(st, rules), st, nil
}
