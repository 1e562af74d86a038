package main

import (
	"log/slog"

	"sublift/internal/cache"
	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/pipeline"
)

// responseCacheOptions opens the metadata response cache and returns the
// processor options that attach it, plus a closer for the underlying
// store. A cache that fails to open degrades to uncached provider calls.
func responseCacheOptions(cfg *config.Config, logger *slog.Logger) ([]pipeline.ProcessorOption, func()) {
	store, err := cache.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "metadata response cache unavailable", "cache_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
			logging.String(logging.FieldImpact, "provider responses will not be cached"),
		)
		return nil, func() {}
	}
	return []pipeline.ProcessorOption{pipeline.WithResponseCache(store)}, func() { _ = store.Close() }
}
