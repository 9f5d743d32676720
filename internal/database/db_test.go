package database

import (
	"context"
	"strings"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		wantDriver  string
		wantDialect Dialect
		wantDSN     string
		wantErr     bool
	}{
		{"postgres", "postgres://u:p@localhost/db?sslmode=disable", "postgres", DialectPostgres, "postgres://u:p@localhost/db?sslmode=disable", false},
		{"postgresql", "postgresql://localhost/db", "postgres", DialectPostgres, "postgresql://localhost/db", false},
		{"sqlite memory", "sqlite://:memory:", "sqlite", DialectSQLite, ":memory:", false},
		{"sqlite file", "sqlite:///var/lib/agenda.db", "sqlite", DialectSQLite, "/var/lib/agenda.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", false},
		{"sqlite with params", "sqlite://agenda.db?mode=ro", "sqlite", DialectSQLite, "agenda.db?mode=ro", false},
		{"empty", "", "", "", "", true},
		{"sqlite no path", "sqlite://", "", "", "", true},
		{"mysql", "mysql://localhost/db", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			driver, dsn, dialect, err := parseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if driver != tt.wantDriver || dialect != tt.wantDialect || dsn != tt.wantDSN {
				t.Errorf("parseURL() = %q, %q, %q", driver, dsn, dialect)
			}
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if db.Dialect() != DialectSQLite {
		t.Errorf("Dialect() = %s", db.Dialect())
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestSchemaStatements_PostgresTypes(t *testing.T) {
	t.Parallel()

	db := &DB{dialect: DialectPostgres}
	stmts := db.schemaStatements()
	if len(stmts) != 7 {
		t.Fatalf("expected 7 statements, got %d", len(stmts))
	}
	for _, s := range stmts {
		if strings.Contains(s, "{{") {
			t.Errorf("unreplaced placeholder in %q", s)
		}
	}
	if !strings.Contains(stmts[0], "tenant_id UUID") || !strings.Contains(stmts[0], "TIMESTAMPTZ") {
		t.Errorf("postgres types not applied: %s", stmts[0])
	}
}
