package domain

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one namespaced record of the key-value store when it is backed
// by a SQL database. Value holds the JSON encoding of the stored record.
type KVEntry struct {
	Key       string         `gorm:"type:varchar(191);primaryKey"`
	Value     datatypes.JSON `gorm:"type:text;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// TableName implements the GORM tabler interface.
func (KVEntry) TableName() string { return "kv_entries" }
