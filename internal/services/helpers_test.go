package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-companion-store/internal/domain"
	"github.com/tbourn/go-companion-store/internal/repo"
)

// ---------- test helpers ----------

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newKV(t *testing.T) *repo.SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return repo.NewSQLStore(db, repo.DefaultPrefix)
}

func newEntities(t *testing.T, kv repo.KeyValueStore) *EntityStore {
	t.Helper()
	es := NewEntityStore(kv)
	es.now = func() time.Time { return fixedNow }
	return es
}

func newConfig(t *testing.T, kv repo.KeyValueStore) *ConfigStore {
	t.Helper()
	cs := NewConfigStore(kv, domain.APIConfig{Provider: "openai", Model: "gpt-test", MaxTokens: 512, Temperature: 0.7})
	cs.now = func() time.Time { return fixedNow }
	return cs
}

// addFriend registers code and attaches a friend to it.
func addFriend(t *testing.T, es *EntityStore, code, group string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := es.AddFriendCode(ctx, code, "nick-"+code); err != nil {
		t.Fatalf("AddFriendCode(%s): %v", code, err)
	}
	id, err := es.AddFriend(ctx, NewFriend{FriendCode: code, Group: group})
	if err != nil {
		t.Fatalf("AddFriend(%s): %v", code, err)
	}
	return id
}

// failingKV reads through to an inner store but rejects every write.
type failingKV struct {
	repo.KeyValueStore
}

func (f failingKV) Set(context.Context, string, any) error {
	return fmt.Errorf("%w: quota exceeded", repo.ErrWriteFailed)
}

func (f failingKV) SetMany(context.Context, []repo.Write) error {
	return fmt.Errorf("%w: quota exceeded", repo.ErrWriteFailed)
}

// flakyKV passes writes through until failAt is reached: the failAt-th
// SetMany (counting from 1) and every later one are rejected. 0 disables it.
type flakyKV struct {
	repo.KeyValueStore
	calls  int
	failAt int
}

func (f *flakyKV) SetMany(ctx context.Context, writes []repo.Write) error {
	f.calls++
	if f.failAt > 0 && f.calls >= f.failAt {
		return fmt.Errorf("%w: quota exceeded", repo.ErrWriteFailed)
	}
	return f.KeyValueStore.SetMany(ctx, writes)
}
