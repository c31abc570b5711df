package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"StockRoom/internal/config"
	"StockRoom/internal/inventory"
)

type app struct {
	store      inventory.Store
	categories *inventory.CategoryService
	products   *inventory.ProductService
}

// newApp opens the configured store, wires the services and seeds demo data
// when enabled.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	categories := inventory.NewCategoryService(store)
	a := &app{
		store:      store,
		categories: categories,
		products:   inventory.NewProductService(store, categories),
	}

	if cfg.SeedData {
		seeder := &inventory.Seeder{Categories: a.categories, Products: a.products, Log: log}
		if err := seeder.Seed(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (inventory.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return inventory.NewMemStore(), nil
	case config.DriverPostgres, config.DriverSQLite:
		return inventory.OpenSQLStore(ctx, cfg.StoreDriver, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func (a *app) server(log *zap.Logger) *inventory.Server {
	return &inventory.Server{
		Products:   a.products,
		Categories: a.categories,
		Store:      a.store,
		Log:        log,
	}
}

func (a *app) close() {
	_ = a.store.Close()
}
