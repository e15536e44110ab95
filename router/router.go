package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleaning-app/controllers"
	"github.com/yeremiapane/cleaning-app/middlewares"
	"github.com/yeremiapane/cleaning-app/models"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	roomCtrl := controllers.NewRoomController(db)
	sessionCtrl := controllers.NewSessionController(db)
	reportCtrl := controllers.NewReportController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// QR label resolve; no auth so a freshly scanned phone can show the room
	// before login
	r.GET("/scan/:code", roomCtrl.ScanRoom)

	// ----------------------------------------------------------------
	//                      CLEANER ROUTES
	// ----------------------------------------------------------------
	cleaner := r.Group("/")
	cleaner.Use(middlewares.AuthMiddleware())
	cleaner.Use(middlewares.RequireRoles(models.RoleCleaner))
	{
		cleaner.POST("/sessions", sessionCtrl.StartSession)
		cleaner.GET("/sessions/active", sessionCtrl.GetMySession)
		cleaner.PATCH("/sessions/:session_id/progress", sessionCtrl.UpdateSessionProgress)
		cleaner.POST("/sessions/:session_id/complete", sessionCtrl.CompleteSession)
		cleaner.POST("/sessions/:session_id/cancel", sessionCtrl.CancelSession)
		cleaner.GET("/rooms", roomCtrl.GetAllRooms)
		cleaner.GET("/rooms/by-status", roomCtrl.FindRoomsByStatus)
		cleaner.GET("/rooms/:room_id", roomCtrl.GetRoomByID)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())
	auth.Use(middlewares.RequireRoles(models.RoleAdmin))

	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/users", userCtrl.GetAllUsers)
	auth.PATCH("/users/:user_id/status", userCtrl.UpdateUserStatus)
	auth.POST("/logout", userCtrl.Logout)

	// ROOMS
	auth.GET("/rooms", roomCtrl.GetAllRooms)
	auth.POST("/rooms", roomCtrl.CreateRoom)
	auth.GET("/rooms/:room_id", roomCtrl.GetRoomByID)
	auth.PATCH("/rooms/:room_id", roomCtrl.UpdateRoom)
	auth.PATCH("/rooms/:room_id/status", roomCtrl.UpdateRoomStatus)
	auth.DELETE("/rooms/:room_id", roomCtrl.DeleteRoom)
	auth.GET("/rooms/:room_id/qr", roomCtrl.GetRoomQR)

	// SESSIONS (audit)
	auth.GET("/sessions", sessionCtrl.GetAllSessions)
	auth.GET("/sessions/:session_id", sessionCtrl.GetSessionByID)
	auth.POST("/sessions/:session_id/cancel", sessionCtrl.CancelSession)

	// REPORTS
	auth.GET("/dashboard/stats", reportCtrl.GetDashboardStats)
	auth.GET("/reports/workers", reportCtrl.GetWorkerReport)
	auth.GET("/reports/rooms", reportCtrl.GetRoomReport)
	auth.GET("/reports/export", reportCtrl.ExportCSV)
	auth.GET("/reports/export-pdf", reportCtrl.ExportPDF)
	auth.GET("/reports/chart", reportCtrl.ExportChart)

	// WebSocket endpoint for the live board
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/:role", controllers.BoardHandler)
	}

	return r
}
