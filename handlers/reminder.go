package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"medimind/models"
	"medimind/services/backend"
	"medimind/services/confirmation"
	"medimind/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	Service confirmation.Service
}

func NewReminderHandler(svc confirmation.Service) *ReminderHandler {
	return &ReminderHandler{Service: svc}
}

// PendingHandler returns what to show on the confirmation screen for a
// firing. medIdList narrows it to the medications of a snoozed reminder.
func (h *ReminderHandler) PendingHandler(c *gin.Context) {
	patientID := c.Query("patientId")
	if !authorizePatient(c, patientID) {
		return
	}
	ms, err := strconv.ParseInt(c.Query("timeMillis"), 10, 64)
	if err != nil || ms <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeMillis must be epoch milliseconds"})
		return
	}
	var filter []string
	if raw := c.Query("medIdList"); raw != "" {
		filter = strings.Split(raw, ",")
	}

	set, err := h.Service.Load(c.Request.Context(), patientID, ms, filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h *ReminderHandler) ConfirmHandler(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if !authorizePatient(c, req.PatientID) {
		return
	}

	res, err := h.Service.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReminderHandler) SnoozeAllHandler(c *gin.Context) {
	var req models.SnoozeAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if !authorizePatient(c, req.PatientID) {
		return
	}

	res, err := h.Service.SnoozeAll(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReminderHandler) writeError(c *gin.Context, err error) {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, confirmation.ErrNothingDue):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, confirmation.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &statusErr):
		getLogger(c).Warn("Backend rejected reminder request", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Backend request failed", "status": statusErr.StatusCode})
	default:
		getLogger(c).Error("Reminder request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process reminder"})
	}
}
