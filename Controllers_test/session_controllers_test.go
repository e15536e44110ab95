package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/cleaning-app/controllers"
	"github.com/yeremiapane/cleaning-app/models"
	"github.com/yeremiapane/cleaning-app/utils"
)

func setupTestDBForSessions(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}
	err = db.AutoMigrate(&models.User{}, &models.Room{}, &models.CleaningSession{}, &models.CodeArchive{})
	if err != nil {
		panic(err)
	}

	// Seed data: one bathroom and two cleaners
	room := models.Room{Name: "Bathroom A", Category: models.RoomCategoryBathroom, Location: "1st floor", Status: models.RoomStatusPending, Priority: models.RoomPriorityMedium}
	db.Create(&room)
	for _, name := range []string{"W1", "W2"} {
		db.Create(&models.User{
			Name:     name,
			Email:    name + "@example.com",
			Password: "secret",
			Role:     models.RoleCleaner,
			Status:   models.UserStatusActive,
		})
	}
	return db
}

// testAuth reads the worker id from a header so one router can act as
// different workers, standing in for the JWT middleware.
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.Atoi(c.GetHeader("X-Worker-ID"))
		c.Set("user_id", uint(id))
		role := c.GetHeader("X-Worker-Role")
		if role == "" {
			role = models.RoleCleaner
		}
		c.Set("role", role)
		c.Next()
	}
}

func setupSessionRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	sessionCtrl := controllers.NewSessionController(db)
	router.Use(testAuth())
	router.POST("/sessions", sessionCtrl.StartSession)
	router.GET("/sessions/active", sessionCtrl.GetMySession)
	router.PATCH("/sessions/:session_id/progress", sessionCtrl.UpdateSessionProgress)
	router.POST("/sessions/:session_id/complete", sessionCtrl.CompleteSession)
	router.POST("/sessions/:session_id/cancel", sessionCtrl.CancelSession)
	return router
}

func doJSON(router *gin.Engine, method, url string, workerID int, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Worker-ID", strconv.Itoa(workerID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStartSessionAndRoomBusyConflict(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSessions(t)
	router := setupSessionRouter(db)

	w := doJSON(router, "POST", "/sessions", 1, map[string]interface{}{"room_id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)

	var createResp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	data := createResp["data"].(map[string]interface{})
	assert.Equal(t, "in_progress", data["status"])
	sessionID := int(data["id"].(float64))

	// second worker scanning the same room gets the conflict with the
	// blocking worker's name
	w = doJSON(router, "POST", "/sessions", 2, map[string]interface{}{"room_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	var conflictResp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflictResp))
	conflictData := conflictResp["data"].(map[string]interface{})
	assert.Equal(t, "room_busy", conflictData["conflict"])
	blocking := conflictData["session"].(map[string]interface{})
	assert.Equal(t, float64(sessionID), blocking["id"])
	worker := conflictData["current_worker"].(map[string]interface{})
	assert.Equal(t, "W1", worker["name"])

	var room models.Room
	db.First(&room, 1)
	assert.Equal(t, models.RoomStatusInProgress, room.Status)
}

func TestCompleteSessionGating(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSessions(t)
	router := setupSessionRouter(db)

	w := doJSON(router, "POST", "/sessions", 1, map[string]interface{}{"room_id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
	var createResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &createResp)
	sessionID := int(createResp["data"].(map[string]interface{})["id"].(float64))

	partial := map[string]interface{}{
		"checklist": map[string]interface{}{
			"toilet": true, "sink": true, "mirror": true,
			"floor": true, "soap": false, "paper": true,
		},
	}
	w = doJSON(router, "POST", "/sessions/"+strconv.Itoa(sessionID)+"/complete", 1, partial)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var rejectResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &rejectResp)
	assert.Equal(t, float64(83), rejectResp["data"].(map[string]interface{})["percentage"])

	full := map[string]interface{}{
		"checklist": map[string]interface{}{
			"toilet": true, "sink": true, "mirror": true,
			"floor": true, "soap": true, "paper": true,
		},
		"notes": "all restocked",
	}
	w = doJSON(router, "POST", "/sessions/"+strconv.Itoa(sessionID)+"/complete", 1, full)
	assert.Equal(t, http.StatusOK, w.Code)

	var room models.Room
	db.First(&room, 1)
	assert.Equal(t, models.RoomStatusCompleted, room.Status)
	assert.NotNil(t, room.LastCleanedAt)

	// retry on the terminal session fails cleanly
	w = doJSON(router, "POST", "/sessions/"+strconv.Itoa(sessionID)+"/complete", 1, full)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateProgressAndResume(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSessions(t)
	router := setupSessionRouter(db)

	w := doJSON(router, "POST", "/sessions", 1, map[string]interface{}{"room_id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
	var createResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &createResp)
	sessionID := int(createResp["data"].(map[string]interface{})["id"].(float64))

	w = doJSON(router, "PATCH", "/sessions/"+strconv.Itoa(sessionID)+"/progress", 1, map[string]interface{}{
		"checklist": map[string]interface{}{"toilet": true},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// a non-owner cannot write
	w = doJSON(router, "PATCH", "/sessions/"+strconv.Itoa(sessionID)+"/progress", 2, map[string]interface{}{
		"checklist": map[string]interface{}{"sink": true},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// reconnect recovers the open session without re-scanning
	w = doJSON(router, "GET", "/sessions/active", 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var activeResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &activeResp)
	active := activeResp["data"].(map[string]interface{})
	assert.Equal(t, float64(sessionID), active["id"])
	checklist := active["checklist"].(map[string]interface{})
	assert.Equal(t, true, checklist["toilet"])
}

func TestCancelSessionRevertsRoom(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForSessions(t)
	router := setupSessionRouter(db)

	w := doJSON(router, "POST", "/sessions", 1, map[string]interface{}{"room_id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
	var createResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &createResp)
	sessionID := int(createResp["data"].(map[string]interface{})["id"].(float64))

	w = doJSON(router, "POST", "/sessions/"+strconv.Itoa(sessionID)+"/cancel", 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var room models.Room
	db.First(&room, 1)
	assert.Equal(t, models.RoomStatusPending, room.Status)

	// the room is free again
	w = doJSON(router, "POST", "/sessions", 2, map[string]interface{}{"room_id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
}
