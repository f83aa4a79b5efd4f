package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/cache"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/repository"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/sheet"
)

const purgeInterval = time.Minute

// openCache connects to the configured backend. The SQLite backend gets a
// purger goroutine bound to ctx.
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "sqlite":
		c, err := cache.NewSQLiteCache(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		go c.RunPurger(ctx, purgeInterval, func(err error) {
			logger.L.Warn("cache purge failed", "error", err)
		})
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// openSheets builds the store and the sheet refresher over a fresh cache
// connection. The caller closes the returned cache.
func openSheets(ctx context.Context, cfg *config.Config) (cache.Cache, *repository.Store, *sheet.Refresher, error) {
	c, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	store := repository.NewStore(c, cfg.SessionTTL)
	return c, store, sheet.NewRefresher(store, cfg.Sheets, cfg.SystemAccount), nil
}
