package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Dialect identifies the SQL backend behind a DB
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const sqliteScheme = "sqlite://"

// DB wraps *sql.DB with the dialect it was opened with.
// Queries are written once with $N placeholders; both drivers accept them.
type DB struct {
	*sql.DB
	dialect Dialect
}

// New opens and pings the database named by databaseURL.
// postgres:// and postgresql:// URLs use lib/pq; sqlite://path (or
// sqlite://:memory:) uses the pure-Go SQLite driver.
func New(databaseURL string) (*DB, error) {
	driver, dsn, dialect, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch dialect {
	case DialectSQLite:
		// a single connection serialises writers and keeps :memory: databases alive
		sqlDB.SetMaxOpenConns(1)
	default:
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, dialect: dialect}, nil
}

// Dialect returns the backend in use
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// HealthCheck pings the database
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func parseURL(databaseURL string) (driver, dsn string, dialect Dialect, err error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return "", "", "", fmt.Errorf("database url is empty")
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return "postgres", u, DialectPostgres, nil
	case strings.HasPrefix(u, sqliteScheme):
		path := strings.TrimPrefix(u, sqliteScheme)
		if path == "" {
			return "", "", "", fmt.Errorf("sqlite url has no path")
		}
		if path != ":memory:" && !strings.Contains(path, "?") {
			path += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		return "sqlite", path, DialectSQLite, nil
	default:
		return "", "", "", fmt.Errorf("unsupported database url scheme")
	}
}
