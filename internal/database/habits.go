package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
)

// HabitRepository stores recurrence configs and per-day completion flags
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// HistoryWindow is the range of days a snapshot must load so every cadence
// type can be evaluated: the union of the current ISO week and month.
func HistoryWindow(today time.Time) calendar.Window {
	start := calendar.StartOfMonth(today)
	if ws := calendar.StartOfWeek(today); calendar.Key(ws) < calendar.Key(start) {
		start = ws
	}
	end := calendar.EndOfMonth(today)
	if we := calendar.EndOfWeek(today); calendar.Key(we) > calendar.Key(end) {
		end = we
	}
	return calendar.Window{Start: start, End: end}
}

// Snapshot materialises the tenant's configs, today's flags and the history
// covering HistoryWindow(today).
func (r *HabitRepository) Snapshot(ctx context.Context, tenantID uuid.UUID, today time.Time) (*models.HabitSnapshot, error) {
	todayKey := calendar.Key(today)
	snap := models.NewHabitSnapshot(tenantID, todayKey)

	configs, err := r.ListConfigs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for key, cfg := range configs {
		snap.SetConfig(key.Section, key.ItemID, cfg)
	}

	w := HistoryWindow(today)
	query := `
		SELECT section, item_id, day, completed
		FROM habit_completions
		WHERE tenant_id = $1 AND day >= $2 AND day <= $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, calendar.Key(w.Start), calendar.Key(w.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query habit completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			section   string
			itemID    string
			day       string
			completed bool
		)
		if err := rows.Scan(&section, &itemID, &day, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan habit completion: %w", err)
		}
		s := models.Section(section)
		snap.SetHistory(s, itemID, day, completed)
		if day == todayKey {
			if snap.Completions[s] == nil {
				snap.Completions[s] = make(map[string]bool)
			}
			snap.Completions[s][itemID] = completed
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habit completions: %w", err)
	}

	return snap, nil
}

// ItemKey identifies one habit item of a tenant
type ItemKey struct {
	Section models.Section
	ItemID  string
}

// ListConfigs returns every recurrence config of a tenant
func (r *HabitRepository) ListConfigs(ctx context.Context, tenantID uuid.UUID) (map[ItemKey]models.RecurrenceConfig, error) {
	query := `
		SELECT section, item_id, active, frequency, cadence_type, period
		FROM habit_configs
		WHERE tenant_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habit configs: %w", err)
	}
	defer rows.Close()

	out := make(map[ItemKey]models.RecurrenceConfig)
	for rows.Next() {
		var (
			key    ItemKey
			cfg    models.RecurrenceConfig
			sec    string
			typ    string
			period string
		)
		if err := rows.Scan(&sec, &key.ItemID, &cfg.Active, &cfg.Frequency, &typ, &period); err != nil {
			return nil, fmt.Errorf("failed to scan habit config: %w", err)
		}
		key.Section = models.Section(sec)
		cfg.Type = models.CadenceType(typ)
		cfg.Period = models.CadencePeriod(period)
		out[key] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habit configs: %w", err)
	}
	return out, nil
}

// GetConfig returns one recurrence config or ErrNotFound
func (r *HabitRepository) GetConfig(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string) (*models.RecurrenceConfig, error) {
	query := `
		SELECT active, frequency, cadence_type, period
		FROM habit_configs
		WHERE tenant_id = $1 AND section = $2 AND item_id = $3
	`
	cfg := &models.RecurrenceConfig{}
	var typ, period string
	err := r.db.QueryRowContext(ctx, query, tenantID, string(section), itemID).Scan(&cfg.Active, &cfg.Frequency, &typ, &period)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("habit config not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit config: %w", err)
	}
	cfg.Type = models.CadenceType(typ)
	cfg.Period = models.CadencePeriod(period)
	return cfg, nil
}

// UpsertConfig creates or replaces a recurrence config
func (r *HabitRepository) UpsertConfig(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string, cfg models.RecurrenceConfig) error {
	query := `
		INSERT INTO habit_configs (tenant_id, section, item_id, active, frequency, cadence_type, period, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, section, item_id) DO UPDATE SET
			active = EXCLUDED.active,
			frequency = EXCLUDED.frequency,
			cadence_type = EXCLUDED.cadence_type,
			period = EXCLUDED.period,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		tenantID,
		string(section),
		itemID,
		cfg.Active,
		cfg.Frequency,
		string(cfg.Type),
		string(cfg.Period),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert habit config: %w", err)
	}
	return nil
}

// SetCompletion stores the completion flag for one day. It is an idempotent
// set; concurrent writers resolve last-write-wins.
func (r *HabitRepository) SetCompletion(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID, day string, completed bool) error {
	key := calendar.KeyOf(day)
	if key == "" {
		return fmt.Errorf("invalid completion day %q", day)
	}
	query := `
		INSERT INTO habit_completions (tenant_id, section, item_id, day, completed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, section, item_id, day) DO UPDATE SET
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, tenantID, string(section), itemID, key, completed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set habit completion: %w", err)
	}
	return nil
}

// EnsureDay creates an uncompleted row for every active item of the tenant on
// day. Existing rows are left untouched. It returns the number of rows created.
func (r *HabitRepository) EnsureDay(ctx context.Context, tenantID uuid.UUID, day string) (int64, error) {
	key := calendar.KeyOf(day)
	if key == "" {
		return 0, fmt.Errorf("invalid day %q", day)
	}
	query := `
		INSERT INTO habit_completions (tenant_id, section, item_id, day, completed, updated_at)
		SELECT tenant_id, section, item_id, $2, FALSE, CURRENT_TIMESTAMP
		FROM habit_configs
		WHERE tenant_id = $1 AND active = TRUE
		ON CONFLICT (tenant_id, section, item_id, day) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, tenantID, key)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure daily records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Tenants returns every tenant with at least one active habit
func (r *HabitRepository) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT tenant_id FROM habit_configs WHERE active = TRUE ORDER BY tenant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return out, nil
}
