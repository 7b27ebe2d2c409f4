package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"medimind/services/alarm"
	"medimind/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AlarmHandler struct {
	Service alarm.Service
}

func NewAlarmHandler(svc alarm.Service) *AlarmHandler {
	return &AlarmHandler{Service: svc}
}

type scheduleAlarmRequest struct {
	PatientID     string `json:"patientId" binding:"required"`
	TriggerMillis int64  `json:"triggerMillis" binding:"required"`
}

func (h *AlarmHandler) ScheduleAlarmHandler(c *gin.Context) {
	var req scheduleAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if !authorizePatient(c, req.PatientID) {
		return
	}

	reg, err := h.Service.ScheduleAlarm(c.Request.Context(), req.PatientID, req.TriggerMillis)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alarm": reg})
}

func (h *AlarmHandler) ListAlarmsHandler(c *gin.Context) {
	patientID := c.Param("patientId")
	if !authorizePatient(c, patientID) {
		return
	}
	regs, err := h.Service.ListAlarms(c.Request.Context(), patientID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alarms": regs})
}

func (h *AlarmHandler) CancelAlarmHandler(c *gin.Context) {
	patientID := c.Param("patientId")
	if !authorizePatient(c, patientID) {
		return
	}
	ms, err := strconv.ParseInt(c.Param("triggerMillis"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "triggerMillis must be epoch milliseconds"})
		return
	}
	if err := h.Service.CancelAlarm(c.Request.Context(), patientID, ms); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alarm cancelled"})
}

// ArmDailyHandler arms the next occurrence of each daily schedule time.
// Slots that failed are reported next to the ones that were armed.
func (h *AlarmHandler) ArmDailyHandler(c *gin.Context) {
	patientID := c.Param("patientId")
	if !authorizePatient(c, patientID) {
		return
	}
	regs, err := h.Service.ArmDaily(c.Request.Context(), patientID)
	if errors.Is(err, alarm.ErrExactAlarmNotPermitted) {
		h.writeError(c, err)
		return
	}
	if err != nil && len(regs) == 0 {
		h.writeError(c, err)
		return
	}
	resp := gin.H{"alarms": regs}
	if err != nil {
		resp["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AlarmHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alarm.ErrExactAlarmNotPermitted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "action": "REQUEST_SCHEDULE_EXACT_ALARM"})
	case errors.Is(err, alarm.ErrInvalidAlarm):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, alarm.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		getLogger(c).Error("Alarm request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process alarm request"})
	}
}
