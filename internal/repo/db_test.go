package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-companion-store/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "companion.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_PragmasPoolAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.db")

	db, err := OpenSQLite(path, OpenOptions{Silent: true, Tracing: true})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var (
		journalMode string
		syncVal     int
		busyMS      int
	)
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}
	if err := db.Raw("PRAGMA synchronous;").Row().Scan(&syncVal); err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	if syncVal != 1 { // NORMAL
		t.Fatalf("expected synchronous=1, got %d", syncVal)
	}
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d", busyMS)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if !db.Migrator().HasTable(&domain.KVEntry{}) {
		t.Fatalf("kv_entries not created")
	}

	// the file survives a reopen
	kv := NewSQLStore(db, "")
	if err := kv.Set(context.Background(), "userSettings", map[string]string{"nickname": "me"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = sqlDB.Close()

	db2, err := OpenSQLite(path, OpenOptions{Silent: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var got map[string]string
	if err := NewSQLStore(db2, "").Get(context.Background(), "userSettings", &got); err != nil || got["nickname"] != "me" {
		t.Fatalf("after reopen: got=%v err=%v", got, err)
	}
	if s, _ := db2.DB(); s != nil {
		_ = s.Close()
	}
}

// Compile-time guard to ensure signature stability.
var _ func(string, ...OpenOptions) (*gorm.DB, error) = OpenSQLite
