package handlers

import (
	"context"
	"net/http"

	"medimind/services/trigger"
	"medimind/utils"

	"github.com/gin-gonic/gin"
)

// Firer runs one alarm firing synchronously.
type Firer interface {
	Handle(ctx context.Context, ev trigger.TriggerEvent) trigger.Outcome
}

type DebugHandler struct {
	Trigger Firer
}

func NewDebugHandler(t Firer) *DebugHandler {
	return &DebugHandler{Trigger: t}
}

type debugTriggerRequest struct {
	PatientID  string `json:"patientId" binding:"required"`
	TimeMillis int64  `json:"timeMillis" binding:"required"`
}

// FireTriggerHandler runs a firing right now instead of waiting for the
// queue, and returns its outcome.
func (h *DebugHandler) FireTriggerHandler(c *gin.Context) {
	var req debugTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if !authorizePatient(c, req.PatientID) {
		return
	}

	out := h.Trigger.Handle(c.Request.Context(), trigger.TriggerEvent{
		PatientID:  req.PatientID,
		TimeMillis: req.TimeMillis,
	})
	resp := gin.H{"outcome": out}
	if out.Err != nil {
		resp["error"] = out.Err.Error()
	}
	if out.RearmErr != nil {
		resp["rearmError"] = out.RearmErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}
