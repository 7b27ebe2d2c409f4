package routes

import (
	"time"

	"medimind/handlers"
	"medimind/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterDeviceRoutes registers the endpoints the app uses to report its
// push token, exact-alarm permission and timezone.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.JWTAuthPatientMiddleware(hb.JWTSecret))
		api.PUT("/:patientId", hb.RegisterDeviceHandler)
		api.GET("/:patientId", hb.GetDeviceHandler)
	}
}

// RegisterAlarmRoutes registers alarm management endpoints.
func RegisterAlarmRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/alarms")
	{
		api.Use(middleware.JWTAuthPatientMiddleware(hb.JWTSecret))
		api.POST("", hb.ScheduleAlarmHandler)
		api.GET("/:patientId", hb.ListAlarmsHandler)
		api.DELETE("/:patientId/:triggerMillis", hb.CancelAlarmHandler)
		api.POST("/:patientId/daily", hb.ArmDailyHandler)
	}
}

// RegisterReminderRoutes registers the confirmation endpoints.
func RegisterReminderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reminders")
	{
		api.Use(middleware.JWTAuthPatientMiddleware(hb.JWTSecret))
		api.GET("/pending", hb.PendingReminderHandler)
		api.POST("/confirm", hb.ConfirmReminderHandler)
		api.POST("/snooze-all", hb.SnoozeAllHandler)
	}
}

// RegisterDebugRoutes exposes a manual trigger outside production.
func RegisterDebugRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	if !hb.EnableDebug || hb.FireTriggerHandler == nil {
		return
	}
	api := r.Group("/api/debug")
	{
		api.Use(middleware.JWTAuthPatientMiddleware(hb.JWTSecret))
		api.POST("/trigger", hb.FireTriggerHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthCheckHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterDeviceRoutes(r, hb)
	RegisterAlarmRoutes(r, hb)
	RegisterReminderRoutes(r, hb)
	RegisterDebugRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
