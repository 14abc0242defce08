package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/events"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/observability/metrics"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/pkg/logging"
)

const defaultSlotCacheTTL = 5 * time.Minute

// DayKey identifies the working-hours blocks of one doctor on one weekday.
type DayKey struct {
	DoctorID int64
	Day      DayOfWeek
}

// SlotCache stores the template blocks slot generation walks. Appointments
// are never cached. Entries are tagged with the doctor's cache version so a
// template write invalidates every weekday at once.
type SlotCache interface {
	Get(ctx context.Context, key DayKey) (blocks []WorkingHoursEntry, version int64, hit bool, err error)
	Set(ctx context.Context, key DayKey, version int64, blocks []WorkingHoursEntry) error
	InvalidateDoctor(ctx context.Context, doctorID int64) error
}

// RedisSlotCache keeps day blocks in Redis under versioned keys.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	if client == nil {
		panic("schedule: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSlotCacheTTL
	}
	return &RedisSlotCache{client: client, ttl: ttl}
}

func slotVersionKey(doctorID int64) string {
	return fmt.Sprintf("schedule:hours:version:%d", doctorID)
}

func dayBlocksKey(key DayKey, version int64) string {
	return fmt.Sprintf("schedule:hours:%d:%d:%d", key.DoctorID, version, int(key.Day))
}

func (c *RedisSlotCache) version(ctx context.Context, doctorID int64) (int64, error) {
	v, err := c.client.Get(ctx, slotVersionKey(doctorID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("schedule: read slot cache version: %w", err)
	}
	return v, nil
}

func (c *RedisSlotCache) Get(ctx context.Context, key DayKey) ([]WorkingHoursEntry, int64, bool, error) {
	version, err := c.version(ctx, key.DoctorID)
	if err != nil {
		return nil, 0, false, err
	}
	data, err := c.client.Get(ctx, dayBlocksKey(key, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, version, false, fmt.Errorf("schedule: read slot cache: %w", err)
	}
	var blocks []WorkingHoursEntry
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, version, false, fmt.Errorf("schedule: decode slot cache: %w", err)
	}
	return blocks, version, true, nil
}

func (c *RedisSlotCache) Set(ctx context.Context, key DayKey, version int64, blocks []WorkingHoursEntry) error {
	if blocks == nil {
		blocks = []WorkingHoursEntry{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("schedule: encode slot cache: %w", err)
	}
	if err := c.client.Set(ctx, dayBlocksKey(key, version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("schedule: write slot cache: %w", err)
	}
	return nil
}

// InvalidateDoctor bumps the doctor's version. Old entries expire on their own.
func (c *RedisSlotCache) InvalidateDoctor(ctx context.Context, doctorID int64) error {
	if err := c.client.Incr(ctx, slotVersionKey(doctorID)).Err(); err != nil {
		return fmt.Errorf("schedule: invalidate slot cache: %w", err)
	}
	return nil
}

// cachedDayEntries serves day blocks from the cache and falls back to the
// repository. Cache failures degrade to a repository read.
type cachedDayEntries struct {
	hours   dayEntriesLoader
	cache   SlotCache
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

func (c *cachedDayEntries) LoadDayEntries(ctx context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error) {
	key := DayKey{DoctorID: doctorID, Day: day}
	blocks, version, hit, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.ObserveSlotCache("error")
		c.logger.Warn("slot cache read failed", "doctor_id", doctorID, "error", err)
		return c.hours.LoadDayEntries(ctx, doctorID, day)
	case hit:
		c.metrics.ObserveSlotCache("hit")
		return blocks, nil
	}
	c.metrics.ObserveSlotCache("miss")

	blocks, err = c.hours.LoadDayEntries(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, version, blocks); err != nil {
		c.logger.Warn("slot cache write failed", "doctor_id", doctorID, "error", err)
	}
	return blocks, nil
}

// CacheInvalidator drops cached blocks for the doctor named by each outbox
// event. It retries invalidations the service could not apply after commit.
type CacheInvalidator struct {
	cache  SlotCache
	logger *logging.Logger
}

func NewCacheInvalidator(cache SlotCache, logger *logging.Logger) *CacheInvalidator {
	if logger == nil {
		logger = logging.Default()
	}
	return &CacheInvalidator{cache: cache, logger: logger}
}

func (h *CacheInvalidator) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if h.cache == nil || entry.DoctorID == 0 {
		return nil
	}
	if err := h.cache.InvalidateDoctor(ctx, entry.DoctorID); err != nil {
		return err
	}
	h.logger.Debug("slot cache invalidated", "doctor_id", entry.DoctorID, "type", entry.Type)
	return nil
}
