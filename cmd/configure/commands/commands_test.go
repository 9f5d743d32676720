package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/services/habits"
)

const cliTenant = "7f1d3c2e-4b5a-4c6d-8e9f-0a1b2c3d4e5f"

// writeConfig points the CLI at a fresh SQLite file. Environment overrides
// are cleared so the file is authoritative.
func writeConfig(t *testing.T) (configPath, dbURL string) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "AGENDA_TIMEZONE", "SNAPSHOT_CACHE_TTL", "REDIS_URL", "RABBITMQ_URL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	dbURL = "sqlite://" + filepath.Join(dir, "agenda.db")
	configPath = filepath.Join(dir, "agenda.toml")
	body := fmt.Sprintf("database_url = %q\ntimezone = \"UTC\"\n", dbURL)
	if err := os.WriteFile(configPath, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath, dbURL
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, configPath, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func TestMigrateCmd(t *testing.T) {
	cfg, _ := writeConfig(t)
	out := mustRun(t, cfg, "migrate")
	if !strings.Contains(out, "sqlite") {
		t.Errorf("output = %q, want dialect", out)
	}
	// a second run is a no-op
	mustRun(t, cfg, "migrate")
}

func TestMissingConfigFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := runCLI(t, filepath.Join(t.TempDir(), "missing.toml"), "migrate")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRatelimitCmd(t *testing.T) {
	cfg, _ := writeConfig(t)

	out := mustRun(t, cfg, "ratelimit", "list")
	if !strings.Contains(out, "20-S") {
		t.Errorf("empty list = %q, want default rate", out)
	}

	mustRun(t, cfg, "ratelimit", "set", "--rate", "10-M")
	out = mustRun(t, cfg, "ratelimit", "list")
	if !strings.Contains(out, "10-M") {
		t.Errorf("list = %q, want 10-M", out)
	}

	if _, err := runCLI(t, cfg, "ratelimit", "set", "--rate", "often"); err == nil {
		t.Error("expected error for malformed rate")
	}
	if _, err := runCLI(t, cfg, "ratelimit", "set"); err == nil {
		t.Error("expected error without --rate")
	}
}

func TestCorsCmd(t *testing.T) {
	cfg, _ := writeConfig(t)

	out := mustRun(t, cfg, "cors", "list")
	if !strings.Contains(out, "No CORS configuration") {
		t.Errorf("empty list = %q", out)
	}

	mustRun(t, cfg, "cors", "set", "--origins", "https://a.example, https://b.example,https://a.example", "--max-age", "60")
	out = mustRun(t, cfg, "cors", "list")
	for _, want := range []string{"https://a.example, https://b.example", "60"} {
		if !strings.Contains(out, want) {
			t.Errorf("list = %q, want %q", out, want)
		}
	}

	if _, err := runCLI(t, cfg, "cors", "set", "--origins", " "); err == nil {
		t.Error("expected error for blank origins")
	}
}

func TestHabitsCmd(t *testing.T) {
	cfg, _ := writeConfig(t)

	out := mustRun(t, cfg, "habits", "pending", "--tenant", cliTenant)
	if !strings.Contains(out, "All caught up.") {
		t.Errorf("pending without configs = %q", out)
	}

	out = mustRun(t, cfg, "habits", "config", "set",
		"--tenant", cliTenant, "--section", "fitness", "--item", "gym",
		"--type", "weekly", "--frequency", "3")
	if !strings.Contains(out, "each_week") {
		t.Errorf("set output = %q, want defaulted period", out)
	}

	out = mustRun(t, cfg, "habits", "config", "list", "--tenant", cliTenant)
	for _, want := range []string{"3× weekly (each_week)", "not configured"} {
		if !strings.Contains(out, want) {
			t.Errorf("config list = %q, want %q", out, want)
		}
	}

	out = mustRun(t, cfg, "habits", "pending", "--tenant", cliTenant)
	if !strings.Contains(out, "Gym session") || !strings.Contains(out, "0/3") {
		t.Errorf("pending = %q, want gym at 0/3", out)
	}
}

func TestHabitsCmdErrors(t *testing.T) {
	cfg, _ := writeConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name: "missing tenant",
			args: []string{"habits", "pending"},
		},
		{
			name: "nil tenant",
			args: []string{"habits", "pending", "--tenant", uuid.Nil.String()},
		},
		{
			name:    "unknown item",
			args:    []string{"habits", "config", "set", "--tenant", cliTenant, "--section", "fitness", "--item", "juggling"},
			wantErr: habits.ErrUnknownItem,
		},
		{
			name:    "period contradicts type",
			args:    []string{"habits", "config", "set", "--tenant", cliTenant, "--section", "mind", "--item", "read", "--type", "weekly", "--period", "each_month"},
			wantErr: habits.ErrInvalidConfig,
		},
		{
			name:    "zero frequency",
			args:    []string{"habits", "config", "set", "--tenant", cliTenant, "--section", "mind", "--item", "read", "--frequency", "0"},
			wantErr: habits.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, cfg, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAgendaCmd(t *testing.T) {
	cfg, dbURL := writeConfig(t)

	out := mustRun(t, cfg, "agenda", "--tenant", cliTenant)
	if !strings.Contains(out, "Nothing scheduled.") {
		t.Errorf("empty agenda = %q", out)
	}

	db, err := database.New(dbURL)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	now := time.Now().UTC()
	tomorrow := calendar.AddDays(calendar.Today(now), 1)
	farOut := calendar.AddDays(calendar.Today(now), 400)
	repo := database.NewTaskRepository(db)
	for _, task := range []*models.Task{
		{TenantID: uuid.MustParse(cliTenant), Title: "Renew passport", DueDate: &tomorrow},
		{TenantID: uuid.MustParse(cliTenant), Title: "Plan sabbatical", StartDate: &farOut},
		{TenantID: uuid.New(), Title: "Someone else's task", DueDate: &tomorrow},
	} {
		if err := repo.Create(context.Background(), task); err != nil {
			_ = db.Close()
			t.Fatalf("failed to create task: %v", err)
		}
	}
	_ = db.Close()

	out = mustRun(t, cfg, "agenda", "--tenant", cliTenant)
	for _, want := range []string{"Tomorrow", "Renew passport", "due " + calendar.Key(tomorrow)} {
		if !strings.Contains(out, want) {
			t.Errorf("now agenda = %q, want %q", out, want)
		}
	}
	for _, unwanted := range []string{"Plan sabbatical", "Someone else's task"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("now agenda = %q, should not contain %q", out, unwanted)
		}
	}

	out = mustRun(t, cfg, "agenda", "--tenant", cliTenant, "--view", "later")
	if !strings.Contains(out, "Plan sabbatical") || strings.Contains(out, "Renew passport") {
		t.Errorf("later agenda = %q", out)
	}

	if _, err := runCLI(t, cfg, "agenda", "--tenant", cliTenant, "--view", "someday"); err == nil {
		t.Error("expected error for unknown view")
	}
}
