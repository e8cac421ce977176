package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	CURSOR_KIND_SCANNED_HEIGHT = "scanned_height"
	CURSOR_KIND_CONFIRMED_TIME = "confirmed_time"
)

// CursorStore is the narrow persistence surface the scanner resumes from.
// Implementations must not return from SetCursor before the value is durable.
type CursorStore interface {
	GetCursor(streamKey string) (int64, error)
	SetCursor(streamKey string, value int64) error
}

type ScanCursorStore struct {
	db *gorm.DB
}

var _ CursorStore = (*ScanCursorStore)(nil)

func NewScanCursorStore(dbm *DatabaseManager) *ScanCursorStore {
	return &ScanCursorStore{db: dbm.GetRelayerDB()}
}

// StreamKey builds the canonical cursor key for a chain/network scan stream.
func StreamKey(chain, network, kind string) string {
	return fmt.Sprintf("%s:%s:%s", chain, network, kind)
}

// GetCursor returns the persisted cursor value, 0 when the stream has never advanced.
func (s *ScanCursorStore) GetCursor(streamKey string) (int64, error) {
	var cursor ScanCursor
	result := s.db.Where("stream_key = ?", streamKey).First(&cursor)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, result.Error
	}
	return cursor.Value, nil
}

// SetCursor upserts the cursor row. The write is committed before returning,
// a failed write leaves the previous value in place.
func (s *ScanCursorStore) SetCursor(streamKey string, value int64) error {
	cursor := ScanCursor{
		StreamKey: streamKey,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cursor)
	if result.Error != nil {
		return fmt.Errorf("failed to persist cursor %s: %w", streamKey, result.Error)
	}
	return nil
}
