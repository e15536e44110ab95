package models

import "time"

const (
	RoomStatusPending        = "pending"
	RoomStatusInProgress     = "in_progress"
	RoomStatusCompleted      = "completed"
	RoomStatusNeedsAttention = "needs_attention"
)

const (
	RoomCategoryGeneric  = "generic"
	RoomCategoryBathroom = "bathroom"
	RoomCategoryKitchen  = "kitchen"
	RoomCategoryMeeting  = "meeting_room"
)

const (
	RoomPriorityLow    = "low"
	RoomPriorityMedium = "medium"
	RoomPriorityHigh   = "high"
	RoomPriorityUrgent = "urgent"
)

type Room struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(100);not null" json:"name"`
	Category      string     `gorm:"type:varchar(30);not null;default:'generic'" json:"category"`
	Location      string     `gorm:"type:varchar(100);not null" json:"location"`
	Code          *string    `gorm:"type:varchar(64);uniqueIndex" json:"code,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Priority      string     `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Notes         string     `gorm:"type:text" json:"notes"`
	LastCleanedAt *time.Time `json:"last_cleaned_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

// ValidRoomCategory reports whether category is one of the closed set.
func ValidRoomCategory(category string) bool {
	switch category {
	case RoomCategoryGeneric, RoomCategoryBathroom, RoomCategoryKitchen, RoomCategoryMeeting:
		return true
	}
	return false
}

func ValidRoomPriority(priority string) bool {
	switch priority {
	case RoomPriorityLow, RoomPriorityMedium, RoomPriorityHigh, RoomPriorityUrgent:
		return true
	}
	return false
}
