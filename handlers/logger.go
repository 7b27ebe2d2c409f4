package handlers

import (
	"errors"
	"net/http"

	"medimind/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request logger set by middleware.RequestLogger.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.L()
}

var errPatientMismatch = errors.New("token does not belong to this patient")

// authorizePatient aborts with 403 unless the authenticated patient is
// patientID.
func authorizePatient(c *gin.Context, patientID string) bool {
	if patientID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "patientId is required"})
		return false
	}
	if c.GetString(middleware.PatientIDKey) != patientID {
		getLogger(c).Warn("Patient mismatch", zap.Error(errPatientMismatch))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errPatientMismatch.Error()})
		return false
	}
	return true
}
