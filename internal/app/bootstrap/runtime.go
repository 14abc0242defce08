package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/appointments"
	appconfig "github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/config"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/events"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/schedule"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, slot cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPool connects to Postgres. An empty DATABASE_URL returns a nil pool
// and no error so the API can run on the in-memory store.
func BuildPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, nil
	}
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildSlotCache wraps the Redis client in a slot cache, or returns nil.
func BuildSlotCache(client *redis.Client, ttl time.Duration) schedule.SlotCache {
	if client == nil {
		return nil
	}
	return schedule.NewRedisSlotCache(client, ttl)
}

// Backends are the storage collaborators of the scheduling service.
type Backends struct {
	Repository   schedule.Repository
	Appointments schedule.AppointmentSource
	// SQLDB is set when Postgres is configured; callers close it.
	SQLDB *sql.DB
}

// Close releases the database/sql handle if one was opened.
func (b Backends) Close() {
	if b.SQLDB != nil {
		_ = b.SQLDB.Close()
	}
}

// BuildScheduleBackends picks Postgres when a pool is available and falls
// back to the in-memory repository otherwise.
func BuildScheduleBackends(pool *pgxpool.Pool, logger *logging.Logger) Backends {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set, using in-memory schedule store")
		return Backends{
			Repository:   schedule.NewMemoryRepository(),
			Appointments: schedule.NewMemoryAppointments(),
		}
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	return Backends{
		Repository:   schedule.NewPostgresRepository(pool),
		Appointments: appointments.NewReader(sqlDB),
		SQLDB:        sqlDB,
	}
}

// BuildOutboxDeliverer drains the change outbox into slot cache
// invalidations, covering writes whose direct invalidation failed. It returns nil when either Postgres or the cache is absent.
func BuildOutboxDeliverer(cfg *appconfig.Config, pool *pgxpool.Pool, cache schedule.SlotCache, logger *logging.Logger) *events.Deliverer {
	if pool == nil || cache == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), schedule.NewCacheInvalidator(cache, logger), logger)
	if cfg != nil {
		if cfg.OutboxBatchSize > 0 {
			deliverer = deliverer.WithBatchSize(int32(cfg.OutboxBatchSize))
		}
		deliverer = deliverer.WithInterval(cfg.OutboxPollInterval)
	}
	return deliverer
}
