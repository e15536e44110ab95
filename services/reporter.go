package services

import (
	"context"
	"time"

	"github.com/yeremiapane/cleaning-app/models"
	"gorm.io/gorm"
)

// ReportService builds the read-only views behind the dashboard and exports.
// It never mutates rooms or sessions.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

type DashboardStats struct {
	RoomStats struct {
		Pending        int64 `json:"pending"`
		InProgress     int64 `json:"in_progress"`
		Completed      int64 `json:"completed"`
		NeedsAttention int64 `json:"needs_attention"`
		Total          int64 `json:"total"`
	} `json:"room_stats"`
	SessionStats struct {
		InProgress int64 `json:"in_progress"`
		Completed  int64 `json:"completed"`
		Cancelled  int64 `json:"cancelled"`
		Today      int64 `json:"today"`
		Total      int64 `json:"total"`
	} `json:"session_stats"`
	AvgCleaningMinutes float64 `json:"avg_cleaning_minutes"`
}

type WorkerSummary struct {
	WorkerID   uint    `json:"worker_id"`
	Name       string  `json:"name"`
	Completed  int64   `json:"completed"`
	Cancelled  int64   `json:"cancelled"`
	AvgMinutes float64 `json:"avg_minutes"`
}

type RoomSummary struct {
	RoomID        uint       `json:"room_id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Status        string     `json:"status"`
	Completed     int64      `json:"completed"`
	AvgMinutes    float64    `json:"avg_minutes"`
	LastCleanedAt *time.Time `json:"last_cleaned_at,omitempty"`
}

// SessionFilter narrows session history queries. Zero values mean "no filter".
type SessionFilter struct {
	RoomID   uint
	WorkerID uint
	Status   string
	From     time.Time
	To       time.Time
}

func (s *ReportService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	var stats DashboardStats

	rooms := func(status string, out *int64) error {
		return db.Model(&models.Room{}).Where("status = ?", status).Count(out).Error
	}
	if err := rooms(models.RoomStatusPending, &stats.RoomStats.Pending); err != nil {
		return nil, err
	}
	if err := rooms(models.RoomStatusInProgress, &stats.RoomStats.InProgress); err != nil {
		return nil, err
	}
	if err := rooms(models.RoomStatusCompleted, &stats.RoomStats.Completed); err != nil {
		return nil, err
	}
	if err := rooms(models.RoomStatusNeedsAttention, &stats.RoomStats.NeedsAttention); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Room{}).Count(&stats.RoomStats.Total).Error; err != nil {
		return nil, err
	}

	sessions := func(status string, out *int64) error {
		return db.Model(&models.CleaningSession{}).Where("status = ?", status).Count(out).Error
	}
	if err := sessions(models.SessionStatusInProgress, &stats.SessionStats.InProgress); err != nil {
		return nil, err
	}
	if err := sessions(models.SessionStatusCompleted, &stats.SessionStats.Completed); err != nil {
		return nil, err
	}
	if err := sessions(models.SessionStatusCancelled, &stats.SessionStats.Cancelled); err != nil {
		return nil, err
	}
	if err := db.Model(&models.CleaningSession{}).Count(&stats.SessionStats.Total).Error; err != nil {
		return nil, err
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	if err := db.Model(&models.CleaningSession{}).
		Where("started_at >= ?", startOfDay).
		Count(&stats.SessionStats.Today).Error; err != nil {
		return nil, err
	}

	avg, err := s.averageMinutes(db, SessionFilter{})
	if err != nil {
		return nil, err
	}
	stats.AvgCleaningMinutes = avg

	return &stats, nil
}

// WorkerSummaries aggregates terminal sessions per worker in [from, to).
func (s *ReportService) WorkerSummaries(ctx context.Context, from, to time.Time) ([]WorkerSummary, error) {
	db := s.db.WithContext(ctx)

	var workers []models.User
	if err := db.Order("id").Find(&workers).Error; err != nil {
		return nil, err
	}

	summaries := make([]WorkerSummary, 0, len(workers))
	for _, w := range workers {
		sum := WorkerSummary{WorkerID: w.ID, Name: w.Name}

		base := rangeQuery(db.Model(&models.CleaningSession{}).Where("worker_id = ?", w.ID), from, to)
		if err := base.Session(&gorm.Session{}).
			Where("status = ?", models.SessionStatusCompleted).
			Count(&sum.Completed).Error; err != nil {
			return nil, err
		}
		if err := base.Session(&gorm.Session{}).
			Where("status = ?", models.SessionStatusCancelled).
			Count(&sum.Cancelled).Error; err != nil {
			return nil, err
		}

		avg, err := s.averageMinutes(db, SessionFilter{WorkerID: w.ID, From: from, To: to})
		if err != nil {
			return nil, err
		}
		sum.AvgMinutes = avg
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// RoomSummaries aggregates completed sessions per room in [from, to).
func (s *ReportService) RoomSummaries(ctx context.Context, from, to time.Time) ([]RoomSummary, error) {
	db := s.db.WithContext(ctx)

	var roomRows []models.Room
	if err := db.Order("id").Find(&roomRows).Error; err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(roomRows))
	for _, r := range roomRows {
		sum := RoomSummary{
			RoomID:        r.ID,
			Name:          r.Name,
			Category:      r.Category,
			Status:        r.Status,
			LastCleanedAt: r.LastCleanedAt,
		}

		if err := rangeQuery(db.Model(&models.CleaningSession{}).Where("room_id = ?", r.ID), from, to).
			Where("status = ?", models.SessionStatusCompleted).
			Count(&sum.Completed).Error; err != nil {
			return nil, err
		}

		avg, err := s.averageMinutes(db, SessionFilter{RoomID: r.ID, From: from, To: to})
		if err != nil {
			return nil, err
		}
		sum.AvgMinutes = avg
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Sessions lists session history, newest first.
func (s *ReportService) Sessions(ctx context.Context, filter SessionFilter) ([]models.CleaningSession, error) {
	db := s.db.WithContext(ctx).Preload("Room").Preload("Worker").Model(&models.CleaningSession{})
	if filter.RoomID != 0 {
		db = db.Where("room_id = ?", filter.RoomID)
	}
	if filter.WorkerID != 0 {
		db = db.Where("worker_id = ?", filter.WorkerID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	db = rangeQuery(db, filter.From, filter.To)

	var sessions []models.CleaningSession
	if err := db.Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// averageMinutes computes the mean duration of completed sessions in Go
// rather than SQL so the same query works on MySQL and SQLite.
func (s *ReportService) averageMinutes(db *gorm.DB, filter SessionFilter) (float64, error) {
	q := db.Model(&models.CleaningSession{}).
		Where("status = ? AND completed_at IS NOT NULL", models.SessionStatusCompleted)
	if filter.RoomID != 0 {
		q = q.Where("room_id = ?", filter.RoomID)
	}
	if filter.WorkerID != 0 {
		q = q.Where("worker_id = ?", filter.WorkerID)
	}
	q = rangeQuery(q, filter.From, filter.To)

	var rows []models.CleaningSession
	if err := q.Select("started_at", "completed_at").Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var total time.Duration
	for _, row := range rows {
		total += row.CompletedAt.Sub(row.StartedAt)
	}
	return total.Minutes() / float64(len(rows)), nil
}

func rangeQuery(db *gorm.DB, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		db = db.Where("started_at >= ?", from)
	}
	if !to.IsZero() {
		db = db.Where("started_at < ?", to)
	}
	return db
}
