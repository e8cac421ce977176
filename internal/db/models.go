package db

import (
	"time"
)

// ScanCursor model, one row per scan stream.
// StreamKey is composed as "<chain>:<network>:<kind>", e.g. "BITCOIN:testnet3:scanned_height".
type ScanCursor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StreamKey string    `gorm:"not null;uniqueIndex" json:"stream_key"`
	Value     int64     `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
