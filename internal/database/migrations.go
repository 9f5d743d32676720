package database

import (
	"context"
	"fmt"
	"strings"
)

// column types that differ between backends
type columnTypes struct {
	uuid      string
	timestamp string
}

func (db *DB) columnTypes() columnTypes {
	if db.dialect == DialectSQLite {
		return columnTypes{uuid: "TEXT", timestamp: "TIMESTAMP"}
	}
	return columnTypes{uuid: "UUID", timestamp: "TIMESTAMPTZ"}
}

// Calendar days are stored as YYYY-MM-DD text so no driver ever applies a
// timezone to them.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS habit_configs (
	tenant_id {{uuid}} NOT NULL,
	section TEXT NOT NULL,
	item_id TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	frequency INTEGER NOT NULL,
	cadence_type TEXT NOT NULL,
	period TEXT NOT NULL DEFAULT '',
	updated_at {{timestamp}} NOT NULL,
	PRIMARY KEY (tenant_id, section, item_id)
);

CREATE TABLE IF NOT EXISTS habit_completions (
	tenant_id {{uuid}} NOT NULL,
	section TEXT NOT NULL,
	item_id TEXT NOT NULL,
	day TEXT NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at {{timestamp}} NOT NULL,
	PRIMARY KEY (tenant_id, section, item_id, day)
);

CREATE INDEX IF NOT EXISTS idx_habit_completions_tenant_day
	ON habit_completions (tenant_id, day);

CREATE TABLE IF NOT EXISTS tasks (
	id {{uuid}} PRIMARY KEY,
	tenant_id {{uuid}} NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	start_date TEXT,
	due_date TEXT,
	created_at {{timestamp}} NOT NULL,
	updated_at {{timestamp}} NOT NULL,
	completed_at {{timestamp}}
);

CREATE INDEX IF NOT EXISTS idx_tasks_tenant_status
	ON tasks (tenant_id, status);

CREATE TABLE IF NOT EXISTS cors_config (
	config_key TEXT PRIMARY KEY,
	allowed_origins TEXT NOT NULL,
	allow_credentials BOOLEAN NOT NULL DEFAULT TRUE,
	max_age INTEGER NOT NULL DEFAULT 86400,
	created_at {{timestamp}} NOT NULL,
	updated_at {{timestamp}} NOT NULL
);

CREATE TABLE IF NOT EXISTS ratelimit_config (
	config_key TEXT PRIMARY KEY,
	rate TEXT NOT NULL,
	created_at {{timestamp}} NOT NULL,
	updated_at {{timestamp}} NOT NULL
);
`

// Migrate creates any missing tables and indexes. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range db.schemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (db *DB) schemaStatements() []string {
	types := db.columnTypes()
	schema := strings.NewReplacer(
		"{{uuid}}", types.uuid,
		"{{timestamp}}", types.timestamp,
	).Replace(schemaTemplate)

	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
