package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/cleaning-app/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrForbidden        = errors.New("session belongs to another worker")
	ErrSessionNotActive = errors.New("session is not in progress")
	ErrWorkerInactive   = errors.New("worker account is not active")
	ErrRoleNotAllowed   = errors.New("role is not allowed to hold cleaning sessions")
)

// RoomBusyError is returned by Start when the room already has an open
// session. Session carries the blocking session with its worker preloaded so
// the caller can show who is cleaning instead of a bare failure.
type RoomBusyError struct {
	Session models.CleaningSession
}

func (e *RoomBusyError) Error() string {
	return fmt.Sprintf("room %d is already being cleaned by %s", e.Session.RoomID, e.Session.Worker.Name)
}

// WorkerBusyError is returned by Start when the requesting worker already has
// an open session elsewhere, so the client can offer to resume it.
type WorkerBusyError struct {
	Session models.CleaningSession
}

func (e *WorkerBusyError) Error() string {
	return fmt.Sprintf("worker %d already has an open session on room %d", e.Session.WorkerID, e.Session.RoomID)
}

// IncompleteChecklistError rejects a Complete below 100%.
type IncompleteChecklistError struct {
	Percent int
}

func (e *IncompleteChecklistError) Error() string {
	return fmt.Sprintf("checklist is only %d%% complete", e.Percent)
}

// isDuplicateKey reports whether err comes from a violated unique index.
// gorm translates driver errors when TranslateError is on; the string checks
// cover MySQL and SQLite when it is not.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
