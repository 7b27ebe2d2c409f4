package handlers

import (
	"errors"
	"net/http"

	"medimind/models"
	"medimind/services/device"
	"medimind/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	Service device.Service
}

func NewDeviceHandler(svc device.Service) *DeviceHandler {
	return &DeviceHandler{Service: svc}
}

// RegisterDeviceHandler stores the push token, exact-alarm permission and
// timezone the app reports.
func (h *DeviceHandler) RegisterDeviceHandler(c *gin.Context) {
	patientID := c.Param("patientId")
	if !authorizePatient(c, patientID) {
		return
	}

	var req models.DeviceRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	d, err := h.Service.Register(c.Request.Context(), patientID, req)
	if err != nil {
		getLogger(c).Warn("Device registration failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": d})
}

func (h *DeviceHandler) GetDeviceHandler(c *gin.Context) {
	patientID := c.Param("patientId")
	if !authorizePatient(c, patientID) {
		return
	}

	d, err := h.Service.Get(c.Request.Context(), patientID)
	if errors.Is(err, device.ErrUnknownDevice) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": d})
}
