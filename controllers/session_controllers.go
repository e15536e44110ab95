package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleaning-app/events"
	"github.com/yeremiapane/cleaning-app/models"
	"github.com/yeremiapane/cleaning-app/services"
	"github.com/yeremiapane/cleaning-app/utils"
	"gorm.io/gorm"
)

type SessionController struct {
	DB       *gorm.DB
	Sessions *services.SessionService
	Reports  *services.ReportService
}

func NewSessionController(db *gorm.DB) *SessionController {
	return &SessionController{
		DB:       db,
		Sessions: services.NewSessionService(db),
		Reports:  services.NewReportService(db),
	}
}

// StartSession -> open a session on a room for the logged-in worker
func (sc *SessionController) StartSession(c *gin.Context) {
	var req struct {
		RoomID uint `json:"room_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	workerID := c.GetUint("user_id")

	session, err := sc.Sessions.Start(requestContext(c), req.RoomID, workerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastSessionEvent(events.EventSessionStarted, *session)
	events.BroadcastRoomUpdate(session.Room)

	utils.InfoLogger.Printf("Session %d started on room %d by worker %d", session.ID, session.RoomID, session.WorkerID)
	utils.RespondJSON(c, http.StatusCreated, "Session started", session)
}

// UpdateSessionProgress -> merge checklist changes while cleaning
func (sc *SessionController) UpdateSessionProgress(c *gin.Context) {
	sessionID := paramUint(c, "session_id")

	var req struct {
		Checklist models.ChecklistMap `json:"checklist"`
		Notes     *string             `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	workerID := c.GetUint("user_id")

	session, err := sc.Sessions.UpdateProgress(requestContext(c), sessionID, workerID, req.Checklist, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastSessionEvent(events.EventSessionProgress, *session)
	utils.RespondJSON(c, http.StatusOK, "Progress updated", session)
}

// CompleteSession -> finish a session; rejected below 100% checklist
func (sc *SessionController) CompleteSession(c *gin.Context) {
	sessionID := paramUint(c, "session_id")

	var req struct {
		Checklist models.ChecklistMap `json:"checklist"`
		Notes     *string             `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	workerID := c.GetUint("user_id")

	session, err := sc.Sessions.Complete(requestContext(c), sessionID, workerID, req.Checklist, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastSessionEvent(events.EventSessionCompleted, *session)
	events.BroadcastRoomUpdate(session.Room)

	utils.InfoLogger.Printf("Session %d completed on room %d", session.ID, session.RoomID)
	utils.RespondJSON(c, http.StatusOK, "Session completed", session)
}

// CancelSession -> abandon a session; the owning worker always may, admins
// may cancel anyone's
func (sc *SessionController) CancelSession(c *gin.Context) {
	sessionID := paramUint(c, "session_id")
	workerID := c.GetUint("user_id")
	isAdmin := c.GetString("role") == models.RoleAdmin

	session, err := sc.Sessions.Cancel(requestContext(c), sessionID, workerID, isAdmin)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	events.BroadcastSessionEvent(events.EventSessionCancelled, *session)

	utils.InfoLogger.Printf("Session %d cancelled on room %d", session.ID, session.RoomID)
	utils.RespondJSON(c, http.StatusOK, "Session cancelled", session)
}

// GetMySession -> recover the worker's open session on reconnect
func (sc *SessionController) GetMySession(c *gin.Context) {
	workerID := c.GetUint("user_id")

	session, err := sc.Sessions.GetActiveForWorker(requestContext(c), workerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if session == nil {
		utils.RespondJSON(c, http.StatusOK, "No active session", nil)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Active session", session)
}

// GetAllSessions -> session history with filters (admin)
func (sc *SessionController) GetAllSessions(c *gin.Context) {
	filter := services.SessionFilter{
		Status: c.Query("status"),
	}
	if v, err := strconv.Atoi(c.Query("room_id")); err == nil {
		filter.RoomID = uint(v)
	}
	if v, err := strconv.Atoi(c.Query("worker_id")); err == nil {
		filter.WorkerID = uint(v)
	}
	if v, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.From = v
	}
	if v, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		filter.To = v
	}

	sessions, err := sc.Reports.Sessions(requestContext(c), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session history", sessions)
}

// GetSessionByID -> one session with room and worker
func (sc *SessionController) GetSessionByID(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.CleaningSession
	if err := sc.DB.Preload("Room").Preload("Worker").First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session detail", session)
}

// respondServiceError maps service outcomes to the HTTP taxonomy. Conflicts
// carry the blocking session so the client can react meaningfully.
func respondServiceError(c *gin.Context, err error) {
	var roomBusy *services.RoomBusyError
	var workerBusy *services.WorkerBusyError
	var incomplete *services.IncompleteChecklistError

	switch {
	case errors.As(err, &roomBusy):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{
			"conflict":       "room_busy",
			"session":        roomBusy.Session,
			"current_worker": roomBusy.Session.Worker,
		})
	case errors.As(err, &workerBusy):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{
			"conflict": "worker_busy",
			"session":  workerBusy.Session,
		})
	case errors.As(err, &incomplete):
		utils.RespondErrorData(c, http.StatusUnprocessableEntity, err, gin.H{
			"percentage": incomplete.Percent,
		})
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrForbidden):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrSessionNotActive):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrWorkerInactive), errors.Is(err, services.ErrRoleNotAllowed):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, gorm.ErrDuplicatedKey):
		// transient; the caller retries with backoff
		utils.RespondError(c, http.StatusServiceUnavailable, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// requestContext bounds every store call behind a request so a stuck store
// surfaces as a retryable failure instead of a hang.
func requestContext(c *gin.Context) context.Context {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	// tie cleanup to the request lifetime
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}

func paramUint(c *gin.Context, name string) uint {
	v, _ := strconv.Atoi(c.Param(name))
	return uint(v)
}
