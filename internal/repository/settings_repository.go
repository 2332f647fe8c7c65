package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

const settingsCacheKey = "board:controller_settings"

// SettingsRepository persists controller settings with a redis cache-aside.
// A missing row falls back to defaults so a fresh deployment works without
// seeding.
type SettingsRepository struct {
	db       *sqlx.DB
	cache    *redis.Client
	cacheTTL time.Duration
	defaults models.ControllerSettings
	metrics  Instrumenter
}

// NewSettingsRepository builds the repository; cache may be nil.
func NewSettingsRepository(db *sqlx.DB, cache *redis.Client, cacheTTL time.Duration) *SettingsRepository {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SettingsRepository{db: db, cache: cache, cacheTTL: cacheTTL, defaults: models.DefaultControllerSettings()}
}

// WithDefaults overrides the settings returned when no row exists yet.
func (r *SettingsRepository) WithDefaults(defaults models.ControllerSettings) *SettingsRepository {
	r.defaults = defaults
	return r
}

// WithMetrics attaches cache and query instrumentation and returns the
// repository.
func (r *SettingsRepository) WithMetrics(m Instrumenter) *SettingsRepository {
	r.metrics = m
	return r
}

// Get returns the current controller settings.
func (r *SettingsRepository) Get(ctx context.Context) (models.ControllerSettings, error) {
	if cached, ok := r.fromCache(ctx); ok {
		return cached, nil
	}

	defer r.observe("settings_get", time.Now())
	const query = `SELECT id, gap_minutes, step_duration, min_duration, max_duration, locked, location_options, day_start_minutes, day_end_minutes, updated_at FROM controller_settings ORDER BY updated_at DESC LIMIT 1`
	var settings models.ControllerSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.defaults, nil
		}
		return models.ControllerSettings{}, fmt.Errorf("load controller settings: %w", err)
	}

	r.toCache(ctx, settings)
	return settings, nil
}

// Save upserts the settings row and refreshes the cache.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.ControllerSettings) error {
	if settings.ID == "" {
		settings.ID = "default"
	}
	settings.UpdatedAt = time.Now().UTC()

	defer r.observe("settings_save", time.Now())
	const query = `INSERT INTO controller_settings (id, gap_minutes, step_duration, min_duration, max_duration, locked, location_options, day_start_minutes, day_end_minutes, updated_at)
		VALUES (:id, :gap_minutes, :step_duration, :min_duration, :max_duration, :locked, :location_options, :day_start_minutes, :day_end_minutes, :updated_at)
		ON CONFLICT (id) DO UPDATE SET gap_minutes = EXCLUDED.gap_minutes, step_duration = EXCLUDED.step_duration, min_duration = EXCLUDED.min_duration, max_duration = EXCLUDED.max_duration, locked = EXCLUDED.locked, location_options = EXCLUDED.location_options, day_start_minutes = EXCLUDED.day_start_minutes, day_end_minutes = EXCLUDED.day_end_minutes, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("save controller settings: %w", err)
	}

	r.toCache(ctx, *settings)
	return nil
}

func (r *SettingsRepository) fromCache(ctx context.Context) (models.ControllerSettings, bool) {
	if r.cache == nil {
		return models.ControllerSettings{}, false
	}
	raw, err := r.cache.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		r.recordCache(false)
		return models.ControllerSettings{}, false
	}
	var settings models.ControllerSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		r.recordCache(false)
		return models.ControllerSettings{}, false
	}
	r.recordCache(true)
	return settings, true
}

func (r *SettingsRepository) recordCache(hit bool) {
	if r.metrics != nil {
		r.metrics.RecordCacheOperation(hit)
	}
}

func (r *SettingsRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func (r *SettingsRepository) toCache(ctx context.Context, settings models.ControllerSettings) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	// Cache write failures are invisible; the next Get just hits the db.
	_ = r.cache.Set(ctx, settingsCacheKey, raw, r.cacheTTL).Err()
}
