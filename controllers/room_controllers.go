package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleaning-app/config"
	"github.com/yeremiapane/cleaning-app/events"
	"github.com/yeremiapane/cleaning-app/models"
	"github.com/yeremiapane/cleaning-app/services"
	"github.com/yeremiapane/cleaning-app/utils"
	"gorm.io/gorm"
)

type RoomController struct {
	DB       *gorm.DB
	Identity *services.IdentityService
}

func NewRoomController(db *gorm.DB) *RoomController {
	return &RoomController{
		DB:       db,
		Identity: services.NewIdentityService(db),
	}
}

// CreateRoom -> add a new room (admin)
func (rc *RoomController) CreateRoom(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Category string `json:"category" binding:"required"`
		Location string `json:"location" binding:"required"`
		Priority string `json:"priority"`
		Notes    string `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if !models.ValidRoomCategory(req.Category) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown room category"))
		return
	}

	room := models.Room{
		Name:     req.Name,
		Category: req.Category,
		Location: req.Location,
		Status:   models.RoomStatusPending,
		Priority: models.RoomPriorityMedium,
		Notes:    req.Notes,
	}
	if req.Priority != "" {
		if !models.ValidRoomPriority(req.Priority) {
			utils.RespondError(c, http.StatusBadRequest, errors.New("unknown priority"))
			return
		}
		room.Priority = req.Priority
	}

	if err := rc.DB.Create(&room).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastRoomCreate(room)

	utils.InfoLogger.Printf("New room created: %s (category=%s)", room.Name, room.Category)
	utils.RespondJSON(c, http.StatusCreated, "Room created successfully", room)
}

// GetAllRooms -> list every room
func (rc *RoomController) GetAllRooms(c *gin.Context) {
	var rooms []models.Room
	if err := rc.DB.Find(&rooms).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of rooms", rooms)
}

// FindRoomsByStatus -> e.g. list pending rooms for the day's round
func (rc *RoomController) FindRoomsByStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		status = models.RoomStatusPending
	}
	var rooms []models.Room
	if err := rc.DB.Where("status = ?", status).Find(&rooms).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Rooms with status: "+status, rooms)
}

// GetRoomByID -> detail of one room
func (rc *RoomController) GetRoomByID(c *gin.Context) {
	roomID := c.Param("room_id")
	var room models.Room
	if err := rc.DB.First(&room, roomID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Room detail", room)
}

// UpdateRoom -> change metadata (name, location, priority, notes). Status is
// not touched here; it follows the session lifecycle.
func (rc *RoomController) UpdateRoom(c *gin.Context) {
	roomID := c.Param("room_id")

	var body struct {
		Name     *string `json:"name"`
		Location *string `json:"location"`
		Priority *string `json:"priority"`
		Notes    *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var room models.Room
	if err := rc.DB.First(&room, roomID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.Name != nil {
		room.Name = *body.Name
	}
	if body.Location != nil {
		room.Location = *body.Location
	}
	if body.Priority != nil {
		if !models.ValidRoomPriority(*body.Priority) {
			utils.RespondError(c, http.StatusBadRequest, errors.New("unknown priority"))
			return
		}
		room.Priority = *body.Priority
	}
	if body.Notes != nil {
		room.Notes = *body.Notes
	}

	if err := rc.DB.Save(&room).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastRoomUpdate(room)
	utils.RespondJSON(c, http.StatusOK, "Room updated", room)
}

// UpdateRoomStatus -> manual status override (admin), e.g. flag a room as
// needs_attention or reset it to pending. Rooms with an open session keep
// their in_progress status.
func (rc *RoomController) UpdateRoomStatus(c *gin.Context) {
	roomID := c.Param("room_id")
	var body struct {
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	switch body.Status {
	case models.RoomStatusPending, models.RoomStatusCompleted, models.RoomStatusNeedsAttention:
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("status must be pending, completed or needs_attention"))
		return
	}

	var room models.Room
	if err := rc.DB.First(&room, roomID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var open int64
	rc.DB.Model(&models.CleaningSession{}).
		Where("room_id = ? AND status = ?", room.ID, models.SessionStatusInProgress).
		Count(&open)
	if open > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("room has an open cleaning session"))
		return
	}

	room.Status = body.Status
	if err := rc.DB.Save(&room).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastRoomUpdate(room)

	utils.InfoLogger.Printf("Room %d status changed to %s", room.ID, room.Status)
	utils.RespondJSON(c, http.StatusOK, "Room status updated", room)
}

// DeleteRoom -> remove a room; its session history goes with it. Issued
// codes stay archived so they are never handed to another room.
func (rc *RoomController) DeleteRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	var room models.Room

	if err := rc.DB.First(&room, roomID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.CleaningSession{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	events.BroadcastRoomDelete(room.ID)

	utils.InfoLogger.Printf("Room %d deleted", room.ID)
	utils.RespondJSON(c, http.StatusOK, "Room deleted", gin.H{
		"id": room.ID,
	})
}

// GetRoomQR -> ensure the room has a bound code and return the payload URL
// for the label. The QR image itself is rendered client-side.
func (rc *RoomController) GetRoomQR(c *gin.Context) {
	roomID := c.Param("room_id")
	var room models.Room
	if err := rc.DB.First(&room, roomID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	code, err := rc.Identity.EnsureCode(c.Request.Context(), room.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	room.Code = &code

	utils.RespondJSON(c, http.StatusOK, "Room QR payload", gin.H{
		"room_id":     room.ID,
		"code":        code,
		"payload_url": services.PayloadURL(config.Load().PublicBaseURL, &room),
	})
}

// ScanRoom -> public resolve endpoint behind the QR label. Returns the room
// and, if someone is already cleaning it, the open session with its worker so
// the client can say who.
func (rc *RoomController) ScanRoom(c *gin.Context) {
	code := c.Param("code")

	room, err := rc.Identity.Resolve(c.Request.Context(), code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var open models.CleaningSession
	dbErr := rc.DB.Preload("Worker").
		Where("room_id = ? AND status = ?", room.ID, models.SessionStatusInProgress).
		First(&open).Error

	data := gin.H{"room": room}
	if dbErr == nil {
		data["active_session"] = open
	}

	utils.RespondJSON(c, http.StatusOK, "Room resolved", data)
}
