package main

import (
	"context"
	"fmt"

	"github.com/eduguard/eduguard-backend/internal/infrastructure/persistence/postgres"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/persistence/redis"
	httpapi "github.com/eduguard/eduguard-backend/internal/interface/http"
)

// healthChecker reports the health of the backing stores. Postgres is a
// hard dependency; Redis is a cache and only degrades the report.
type healthChecker struct {
	db    *postgres.Connection
	cache *redis.Cache
}

func (h *healthChecker) Check(ctx context.Context) httpapi.HealthStatus {
	status := httpapi.HealthStatus{
		Healthy:    true,
		Ready:      true,
		Components: make(map[string]string),
	}

	dbHealth, err := h.db.Health(ctx)
	switch {
	case err != nil:
		status.Healthy = false
		status.Ready = false
		status.Message = "database unreachable"
		status.Components["postgres"] = err.Error()
	case !dbHealth.Healthy:
		status.Healthy = false
		status.Ready = false
		status.Message = "database unhealthy"
		status.Components["postgres"] = dbHealth.Error
	default:
		status.Components["postgres"] = fmt.Sprintf("ok (%s ping)", dbHealth.PingLatency)
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			status.Components["redis"] = err.Error()
		} else {
			status.Components["redis"] = "ok"
		}
	} else {
		status.Components["redis"] = "disabled"
	}

	return status
}
