package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	JWTSecret   []byte
	EnableDebug bool

	// Device endpoints
	RegisterDeviceHandler gin.HandlerFunc
	GetDeviceHandler      gin.HandlerFunc

	// Alarm endpoints
	ScheduleAlarmHandler gin.HandlerFunc
	ListAlarmsHandler    gin.HandlerFunc
	CancelAlarmHandler   gin.HandlerFunc
	ArmDailyHandler      gin.HandlerFunc

	// Reminder endpoints
	PendingReminderHandler gin.HandlerFunc
	ConfirmReminderHandler gin.HandlerFunc
	SnoozeAllHandler       gin.HandlerFunc

	FireTriggerHandler gin.HandlerFunc
	HealthCheckHandler gin.HandlerFunc
}
