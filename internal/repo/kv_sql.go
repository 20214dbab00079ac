package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-companion-store/internal/domain"
)

// SQLStore is a KeyValueStore backed by the kv_entries table.
type SQLStore struct {
	db     *gorm.DB
	prefix string
}

// NewSQLStore returns a store over db namespaced by prefix. An empty prefix
// selects DefaultPrefix. The kv_entries table must already be migrated.
func NewSQLStore(db *gorm.DB, prefix string) *SQLStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SQLStore{db: db, prefix: prefix}
}

// Get implements KeyValueStore.
func (s *SQLStore) Get(ctx context.Context, key string, dst any) error {
	var row domain.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", s.prefix+key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(row.Value, dst)
}

// Set implements KeyValueStore.
func (s *SQLStore) Set(ctx context.Context, key string, value any) error {
	if value == nil {
		return errors.New("repo: nil value; use Delete")
	}
	return s.SetMany(ctx, []Write{Put(key, value)})
}

// SetMany implements KeyValueStore. The whole batch runs in one transaction.
func (s *SQLStore) SetMany(ctx context.Context, writes []Write) error {
	batch, err := encodeBatch(s.prefix, writes)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range batch {
			if e.value == nil {
				if err := tx.Where("key = ?", e.key).Delete(&domain.KVEntry{}).Error; err != nil {
					return err
				}
				continue
			}
			row := domain.KVEntry{Key: e.key, Value: datatypes.JSON(e.value), UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return writeFailed(err)
	}
	return nil
}

// Delete implements KeyValueStore.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.SetMany(ctx, []Write{Del(key)})
}

// Clear implements KeyValueStore.
func (s *SQLStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(s.prefix)+"%").
		Delete(&domain.KVEntry{}).Error
	if err != nil {
		return writeFailed(err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so a prefix such as "phone_" matches
// literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
