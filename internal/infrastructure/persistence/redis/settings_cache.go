package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
)

// SettingsCache decorates a risk.SettingsRepository with read-through
// caching. Every detection pass loads the school's rule settings, so the
// cache saves one postgres round-trip per student in a sweep. Updates go
// write-through: persist first, invalidate second.
type SettingsCache struct {
	inner  risk.SettingsRepository
	cache  *Cache
	logger *slog.Logger
}

// NewSettingsCache wraps the given repository.
func NewSettingsCache(inner risk.SettingsRepository, cache *Cache, logger *slog.Logger) *SettingsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsCache{inner: inner, cache: cache, logger: logger}
}

// GetOrCreate returns the school's settings, serving from cache when
// possible. Cache failures fall back to the inner repository: the cache is
// an optimization, never a dependency.
func (s *SettingsCache) GetOrCreate(ctx context.Context, schoolID string) (*risk.RiskRuleSettings, error) {
	key := SettingsKey(schoolID)

	var cached risk.RiskRuleSettings
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("settings cache read failed", "school_id", schoolID, "error", err)
	}

	settings, err := s.inner.GetOrCreate(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, settings, TTLSettingsCache); err != nil {
		s.logger.Warn("settings cache write failed", "school_id", schoolID, "error", err)
	}

	return settings, nil
}

// Update persists the settings and invalidates the cached copy.
func (s *SettingsCache) Update(ctx context.Context, settings *risk.RiskRuleSettings) error {
	if err := s.inner.Update(ctx, settings); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, SettingsKey(settings.SchoolID)); err != nil {
		// A stale entry expires with the TTL; log and move on.
		s.logger.Warn("settings cache invalidation failed",
			"school_id", settings.SchoolID, "error", err)
	}

	return nil
}
