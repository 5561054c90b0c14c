package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"quitz-service/internal/config"
	"quitz-service/internal/infra/memory"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v %v", name, sub, err)
		}
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	err := runMigrations(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Fatalf("expected postgres-only error, got %v", err)
	}
}

func TestOpenMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*memory.QuestionStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}
