package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/cleaning-app/models"
	"gorm.io/gorm"
)

// SessionService owns the cleaning session state machine. All coordination
// between request handlers happens through the store: the conflict checks run
// inside one transaction and the active-key unique indexes backstop any race
// the checks miss.
type SessionService struct {
	db *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

// Start opens a session for worker on room. It fails with *RoomBusyError when
// the room already has an open session (carrying that session and its worker)
// and with *WorkerBusyError when the worker does (so the client can offer to
// resume). Exactly one of two concurrent Starts on the same room succeeds.
func (s *SessionService) Start(ctx context.Context, roomID, workerID uint) (*models.CleaningSession, error) {
	var session models.CleaningSession

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var worker models.User
		if err := tx.First(&worker, workerID).Error; err != nil {
			return notFoundOr(err)
		}
		if worker.Status != models.UserStatusActive {
			return ErrWorkerInactive
		}
		if worker.Role != models.RoleCleaner && worker.Role != models.RoleAdmin {
			return ErrRoleNotAllowed
		}

		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			return notFoundOr(err)
		}

		var open models.CleaningSession
		err := tx.Preload("Worker").
			Where("room_id = ? AND status = ?", roomID, models.SessionStatusInProgress).
			First(&open).Error
		if err == nil {
			return &RoomBusyError{Session: open}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Preload("Room").
			Where("worker_id = ? AND status = ?", workerID, models.SessionStatusInProgress).
			First(&open).Error
		if err == nil {
			return &WorkerBusyError{Session: open}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		rid, wid := roomID, workerID
		session = models.CleaningSession{
			Ref:             uuid.NewString(),
			RoomID:          roomID,
			WorkerID:        workerID,
			Status:          models.SessionStatusInProgress,
			Checklist:       models.ChecklistMap{},
			StartedAt:       time.Now(),
			ActiveRoomKey:   &rid,
			ActiveWorkerKey: &wid,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		return tx.Model(&models.Room{}).Where("id = ?", roomID).
			Update("status", models.RoomStatusInProgress).Error
	})

	if err != nil {
		if isDuplicateKey(err) {
			// Lost the check-then-create race; re-read and report the winner
			// as the usual conflict outcome.
			return nil, s.conflictAfterRace(ctx, roomID, workerID)
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Room").Preload("Worker").First(&session, session.ID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateProgress merges a checklist delta (and optional notes) into an open
// session owned by workerID. Status never changes here.
func (s *SessionService) UpdateProgress(ctx context.Context, sessionID, workerID uint, delta models.ChecklistMap, notes *string) (*models.CleaningSession, error) {
	var session models.CleaningSession

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, sessionID).Error; err != nil {
			return notFoundOr(err)
		}
		if session.Status != models.SessionStatusInProgress {
			return ErrSessionNotActive
		}
		if session.WorkerID != workerID {
			return ErrForbidden
		}

		session.Checklist = session.Checklist.Merge(delta)
		if notes != nil {
			session.Notes = notes
		}
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Complete moves an open session to completed, gated on the checklist being
// 100% against the room category's required items. Anything below 100% is
// rejected with *IncompleteChecklistError and nothing is persisted. On
// success the room becomes completed and its last-cleaned timestamp equals
// the session's completion timestamp.
func (s *SessionService) Complete(ctx context.Context, sessionID, workerID uint, final models.ChecklistMap, notes *string) (*models.CleaningSession, error) {
	var session models.CleaningSession

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Room").First(&session, sessionID).Error; err != nil {
			return notFoundOr(err)
		}
		if session.Status != models.SessionStatusInProgress {
			return ErrSessionNotActive
		}
		if session.WorkerID != workerID {
			return ErrForbidden
		}

		if final != nil {
			session.Checklist = final
		}
		percent := ChecklistProgress(session.Checklist, RequiredItems(session.Room.Category))
		if percent < 100 {
			return &IncompleteChecklistError{Percent: percent}
		}

		now := time.Now()
		session.Status = models.SessionStatusCompleted
		session.CompletedAt = &now
		if notes != nil {
			session.Notes = notes
		}
		session.ActiveRoomKey = nil
		session.ActiveWorkerKey = nil
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		return tx.Model(&models.Room{}).Where("id = ?", session.RoomID).
			Updates(map[string]interface{}{
				"status":          models.RoomStatusCompleted,
				"last_cleaned_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Cancel moves an open session to cancelled. The owning worker may always
// cancel regardless of checklist progress; admins may cancel any session.
// The room re-enters the available pool as pending.
func (s *SessionService) Cancel(ctx context.Context, sessionID, requesterID uint, adminOverride bool) (*models.CleaningSession, error) {
	var session models.CleaningSession

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, sessionID).Error; err != nil {
			return notFoundOr(err)
		}
		if session.Status != models.SessionStatusInProgress {
			return ErrSessionNotActive
		}
		if session.WorkerID != requesterID && !adminOverride {
			return ErrForbidden
		}

		session.Status = models.SessionStatusCancelled
		session.ActiveRoomKey = nil
		session.ActiveWorkerKey = nil
		if err := tx.Save(&session).Error; err != nil {
			return err
		}

		return s.recomputeRoomStatus(tx, session.RoomID)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveForWorker recovers a worker's open session on reconnect without
// re-scanning. Returns (nil, nil) when the worker has none.
func (s *SessionService) GetActiveForWorker(ctx context.Context, workerID uint) (*models.CleaningSession, error) {
	var session models.CleaningSession
	err := s.db.WithContext(ctx).Preload("Room").
		Where("worker_id = ? AND status = ?", workerID, models.SessionStatusInProgress).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// recomputeRoomStatus derives the room status from its session history: an
// open session wins, otherwise the most recent terminal session decides
// (completed => completed, cancelled => pending), no history => pending.
func (s *SessionService) recomputeRoomStatus(tx *gorm.DB, roomID uint) error {
	var open int64
	if err := tx.Model(&models.CleaningSession{}).
		Where("room_id = ? AND status = ?", roomID, models.SessionStatusInProgress).
		Count(&open).Error; err != nil {
		return err
	}

	status := models.RoomStatusPending
	if open > 0 {
		status = models.RoomStatusInProgress
	} else {
		var last models.CleaningSession
		err := tx.Where("room_id = ? AND status <> ?", roomID, models.SessionStatusInProgress).
			Order("id DESC").First(&last).Error
		if err == nil && last.Status == models.SessionStatusCompleted {
			status = models.RoomStatusCompleted
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return tx.Model(&models.Room{}).Where("id = ?", roomID).Update("status", status).Error
}

// conflictAfterRace reads back whichever open session made a concurrent Start
// lose its unique-index race.
func (s *SessionService) conflictAfterRace(ctx context.Context, roomID, workerID uint) error {
	var open models.CleaningSession
	err := s.db.WithContext(ctx).Preload("Worker").
		Where("room_id = ? AND status = ?", roomID, models.SessionStatusInProgress).
		First(&open).Error
	if err == nil {
		return &RoomBusyError{Session: open}
	}

	err = s.db.WithContext(ctx).Preload("Room").
		Where("worker_id = ? AND status = ?", workerID, models.SessionStatusInProgress).
		First(&open).Error
	if err == nil {
		return &WorkerBusyError{Session: open}
	}

	// The blocking session finished before we could read it; the caller can
	// simply retry.
	return gorm.ErrDuplicatedKey
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
