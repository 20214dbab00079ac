package repo

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/go-companion-store/internal/domain"
)

// StoreStats summarises one namespace for health reporting.
type StoreStats struct {
	Backend   string     `json:"backend"`
	Keys      int64      `json:"keys"`
	LastWrite *time.Time `json:"lastWrite,omitempty"`
}

// Stater is implemented by stores that can describe their namespace.
type Stater interface {
	Stats(ctx context.Context) (StoreStats, error)
}

// Stats returns the number of keys in the namespace and the time of the most
// recent write. LastWrite is nil when the namespace is empty.
func (s *SQLStore) Stats(ctx context.Context) (StoreStats, error) {
	st := StoreStats{Backend: "sqlite"}
	q := s.db.WithContext(ctx).
		Model(&domain.KVEntry{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(s.prefix)+"%")

	if err := q.Count(&st.Keys).Error; err != nil {
		return st, err
	}
	if st.Keys == 0 {
		return st, nil
	}

	// ORDER BY instead of MAX(): sqlite hands MAX() back as TEXT.
	var row struct {
		UpdatedAt time.Time
	}
	if err := q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return st, err
	}
	st.LastWrite = &row.UpdatedAt
	return st, nil
}

// Stats counts the namespace with SCAN. Redis strings carry no write time,
// so LastWrite is always nil.
func (s *RedisStore) Stats(ctx context.Context) (StoreStats, error) {
	st := StoreStats{Backend: "redis"}
	iter := s.client.Scan(ctx, 0, s.match(), 200).Iterator()
	for iter.Next(ctx) {
		if strings.HasPrefix(iter.Val(), s.prefix) {
			st.Keys++
		}
	}
	return st, iter.Err()
}
