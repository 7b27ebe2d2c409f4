package handlers

import (
	"net/http"

	"medimind/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Monitor *utils.HealthMonitor
}

func NewHealthHandler(m *utils.HealthMonitor) *HealthHandler {
	return &HealthHandler{Monitor: m}
}

func (h *HealthHandler) HealthCheckHandler(c *gin.Context) {
	if h.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	st := h.Monitor.Status()
	if !st.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": st})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": st})
}
