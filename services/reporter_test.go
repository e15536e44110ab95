package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/cleaning-app/models"
	"gorm.io/gorm"
)

func seedTerminalSession(t *testing.T, db *gorm.DB, room models.Room, worker models.User, status string, started time.Time, minutes int) models.CleaningSession {
	session := models.CleaningSession{
		Ref:       "seed",
		RoomID:    room.ID,
		WorkerID:  worker.ID,
		Status:    status,
		Checklist: models.ChecklistMap{},
		StartedAt: started,
	}
	if status == models.SessionStatusCompleted {
		done := started.Add(time.Duration(minutes) * time.Minute)
		session.CompletedAt = &done
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return session
}

func TestDashboardStats(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewReportService(db)
	w1 := seedCleaner(t, db, "W1")

	r1 := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)
	r2 := seedRoom(t, db, "Kitchen", models.RoomCategoryKitchen)
	seedRoom(t, db, "Meeting Room", models.RoomCategoryMeeting)
	db.Model(&models.Room{}).Where("id = ?", r2.ID).Update("status", models.RoomStatusCompleted)

	now := time.Now()
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-2*time.Hour), 30)
	seedTerminalSession(t, db, r2, w1, models.SessionStatusCompleted, now.Add(-1*time.Hour), 10)
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCancelled, now.Add(-30*time.Minute), 0)

	stats, err := svc.GetDashboardStats(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, int64(3), stats.RoomStats.Total)
	assert.Equal(t, int64(2), stats.RoomStats.Pending)
	assert.Equal(t, int64(1), stats.RoomStats.Completed)

	assert.Equal(t, int64(3), stats.SessionStats.Total)
	assert.Equal(t, int64(2), stats.SessionStats.Completed)
	assert.Equal(t, int64(1), stats.SessionStats.Cancelled)
	assert.Equal(t, int64(0), stats.SessionStats.InProgress)

	assert.InDelta(t, 20.0, stats.AvgCleaningMinutes, 0.1)
}

func TestWorkerSummaries(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewReportService(db)
	w1 := seedCleaner(t, db, "W1")
	w2 := seedCleaner(t, db, "W2")
	r1 := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)

	now := time.Now()
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-3*time.Hour), 20)
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-2*time.Hour), 40)
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCancelled, now.Add(-1*time.Hour), 0)

	summaries, err := svc.WorkerSummaries(context.Background(), time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Len(t, summaries, 2)

	assert.Equal(t, w1.ID, summaries[0].WorkerID)
	assert.Equal(t, int64(2), summaries[0].Completed)
	assert.Equal(t, int64(1), summaries[0].Cancelled)
	assert.InDelta(t, 30.0, summaries[0].AvgMinutes, 0.1)

	assert.Equal(t, w2.ID, summaries[1].WorkerID)
	assert.Equal(t, int64(0), summaries[1].Completed)
	assert.Equal(t, 0.0, summaries[1].AvgMinutes)
}

func TestWorkerSummariesDateRange(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewReportService(db)
	w1 := seedCleaner(t, db, "W1")
	r1 := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)

	now := time.Now()
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-72*time.Hour), 30)
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-1*time.Hour), 10)

	summaries, err := svc.WorkerSummaries(context.Background(), now.Add(-24*time.Hour), time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), summaries[0].Completed)
	assert.InDelta(t, 10.0, summaries[0].AvgMinutes, 0.1)
}

func TestRoomSummaries(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewReportService(db)
	w1 := seedCleaner(t, db, "W1")
	r1 := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)
	r2 := seedRoom(t, db, "Kitchen", models.RoomCategoryKitchen)

	now := time.Now()
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-2*time.Hour), 15)
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-1*time.Hour), 25)

	summaries, err := svc.RoomSummaries(context.Background(), time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Len(t, summaries, 2)

	assert.Equal(t, r1.ID, summaries[0].RoomID)
	assert.Equal(t, int64(2), summaries[0].Completed)
	assert.InDelta(t, 20.0, summaries[0].AvgMinutes, 0.1)

	assert.Equal(t, r2.ID, summaries[1].RoomID)
	assert.Equal(t, int64(0), summaries[1].Completed)
}

func TestSessionsFilter(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewReportService(db)
	w1 := seedCleaner(t, db, "W1")
	w2 := seedCleaner(t, db, "W2")
	r1 := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)
	r2 := seedRoom(t, db, "Kitchen", models.RoomCategoryKitchen)

	now := time.Now()
	seedTerminalSession(t, db, r1, w1, models.SessionStatusCompleted, now.Add(-2*time.Hour), 15)
	seedTerminalSession(t, db, r2, w2, models.SessionStatusCancelled, now.Add(-1*time.Hour), 0)

	all, err := svc.Sessions(context.Background(), SessionFilter{})
	assert.NoError(t, err)
	assert.Len(t, all, 2)
	// newest first
	assert.Equal(t, r2.ID, all[0].RoomID)
	// relations are loaded for display
	assert.Equal(t, "W2", all[0].Worker.Name)

	byRoom, err := svc.Sessions(context.Background(), SessionFilter{RoomID: r1.ID})
	assert.NoError(t, err)
	assert.Len(t, byRoom, 1)

	byStatus, err := svc.Sessions(context.Background(), SessionFilter{Status: models.SessionStatusCancelled})
	assert.NoError(t, err)
	assert.Len(t, byStatus, 1)
	assert.Equal(t, w2.ID, byStatus[0].WorkerID)
}
