package managehub

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// HealthService provides database health monitoring as an extension to a
// Service backed by a DatabaseStore. Memory-backed services report healthy
// with a note.
type HealthService struct {
	*Service
}

// NewHealthService creates a new health service extension.
func NewHealthService(service *Service) *HealthService {
	return &HealthService{Service: service}
}

// Health performs a comprehensive health check of the backing database.
// Returns detailed status including latency and connection pool statistics.
func (hs *HealthService) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := hs.databaseHandle(); ok {
		return db.Health(ctx)
	}
	return dbkit.HealthStatus{
		Healthy: hs.IsHealthy(ctx),
		Error:   "Limited health check - store is not database-backed",
	}
}

// IsHealthy performs a simple reachability check.
func (hs *HealthService) IsHealthy(ctx context.Context) bool {
	if db, ok := hs.databaseHandle(); ok {
		return db.IsHealthy(ctx)
	}
	// Memory store: a flag read exercises the whole path.
	_, err := hs.store.Flag(ctx, FlagInitialized)
	return err == nil
}

// GetPoolStats returns connection pool statistics for monitoring, or zero
// values when the store is not database-backed.
func (hs *HealthService) GetPoolStats() dbkit.PoolStats {
	if db, ok := hs.databaseHandle(); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}

// Ping performs a basic connectivity test.
func (hs *HealthService) Ping(ctx context.Context) error {
	if db, ok := hs.databaseHandle(); ok {
		var result int
		return db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &result)
	}
	_, err := hs.store.Flag(ctx, FlagInitialized)
	return err
}

func (hs *HealthService) databaseHandle() (*dbkit.DBKit, bool) {
	ds, ok := hs.store.(*DatabaseStore)
	if !ok {
		return nil, false
	}
	db, ok := ds.db.(*dbkit.DBKit)
	return db, ok
}
