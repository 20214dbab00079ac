package repo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMemDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:kv_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type record struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// runContract exercises the behaviour every KeyValueStore must share.
// newStore returns two stores over the same medium with different prefixes.
func runContract(t *testing.T, newStore func(t *testing.T) (a, b KeyValueStore)) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		a, _ := newStore(t)
		var r record
		if err := a.Get(ctx, "friends", &r); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err=%v want ErrNotFound", err)
		}
	})

	t.Run("set get overwrite", func(t *testing.T) {
		a, _ := newStore(t)
		if err := a.Set(ctx, "friends", record{Name: "x", Items: []string{"1"}}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := a.Set(ctx, "friends", record{Name: "y"}); err != nil {
			t.Fatalf("Set overwrite: %v", err)
		}
		var r record
		if err := a.Get(ctx, "friends", &r); err != nil || r.Name != "y" || len(r.Items) != 0 {
			t.Fatalf("got=%+v err=%v", r, err)
		}
	})

	t.Run("nil and unencodable values", func(t *testing.T) {
		a, _ := newStore(t)
		if err := a.Set(ctx, "k", nil); err == nil {
			t.Fatalf("nil value accepted")
		}
		err := a.SetMany(ctx, []Write{Put("ok", 1), Put("bad", math.Inf(1))})
		if err == nil || errors.Is(err, ErrWriteFailed) {
			t.Fatalf("encode error expected before any write, got %v", err)
		}
		var n int
		if err := a.Get(ctx, "ok", &n); !errors.Is(err, ErrNotFound) {
			t.Fatalf("half-applied batch: err=%v", err)
		}
		if err := a.SetMany(ctx, []Write{Put(" ", 1)}); err == nil {
			t.Fatalf("blank key accepted")
		}
	})

	t.Run("batch puts and deletes", func(t *testing.T) {
		a, _ := newStore(t)
		if err := a.SetMany(ctx, []Write{Put("chats", []int{1}), Put("memories", []int{2})}); err != nil {
			t.Fatalf("SetMany: %v", err)
		}
		if err := a.SetMany(ctx, []Write{Del("chats"), Put("memories", []int{3})}); err != nil {
			t.Fatalf("SetMany: %v", err)
		}
		var v []int
		if err := a.Get(ctx, "chats", &v); !errors.Is(err, ErrNotFound) {
			t.Fatalf("chats should be gone: %v", err)
		}
		if err := a.Get(ctx, "memories", &v); err != nil || len(v) != 1 || v[0] != 3 {
			t.Fatalf("memories=%v err=%v", v, err)
		}
		if err := a.SetMany(ctx, nil); err != nil {
			t.Fatalf("empty batch: %v", err)
		}
	})

	t.Run("delete absent", func(t *testing.T) {
		a, _ := newStore(t)
		if err := a.Delete(ctx, "nothing"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		a, b := newStore(t)
		if err := a.Set(ctx, "apiConfig", "A"); err != nil {
			t.Fatal(err)
		}
		if err := b.Set(ctx, "apiConfig", "B"); err != nil {
			t.Fatal(err)
		}
		if err := a.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		var s string
		if err := a.Get(ctx, "apiConfig", &s); !errors.Is(err, ErrNotFound) {
			t.Fatalf("a not cleared: %v", err)
		}
		if err := b.Get(ctx, "apiConfig", &s); err != nil || s != "B" {
			t.Fatalf("b affected by a.Clear: %q %v", s, err)
		}
	})
}
