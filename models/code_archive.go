package models

import "time"

// CodeArchive keeps every identity code ever issued. Rows are never deleted,
// not even when a room is removed or re-coded, so a stale printed label can
// never collide with (or resolve to) a different room later on.
type CodeArchive struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	RoomID    uint      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}
