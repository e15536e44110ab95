package models

import "time"

const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusCancelled  = "cancelled"
)

type CleaningSession struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Ref       string       `gorm:"type:varchar(36);not null" json:"ref"`
	RoomID    uint         `gorm:"not null;index" json:"room_id"`
	Room      Room         `gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"room"`
	WorkerID  uint         `gorm:"not null;index" json:"worker_id"`
	Worker    User         `gorm:"foreignKey:WorkerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"worker"`
	Status    string       `gorm:"type:varchar(15);not null;default:'in_progress'" json:"status"`
	Checklist ChecklistMap `gorm:"type:text" json:"checklist"`
	Notes     *string      `gorm:"type:text" json:"notes,omitempty"`
	StartedAt time.Time    `gorm:"not null" json:"started_at"`
	// nil until the session reaches a terminal state
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Mirror keys: equal to RoomID/WorkerID while the session is in progress,
	// NULL once terminal. The unique indexes make "at most one open session
	// per room and per worker" a store-level guarantee on MySQL and SQLite,
	// which both allow repeated NULLs in a unique index.
	ActiveRoomKey   *uint `gorm:"uniqueIndex" json:"-"`
	ActiveWorkerKey *uint `gorm:"uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Terminal reports whether the session can no longer change.
func (s *CleaningSession) Terminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusCancelled
}
