package middleware

import (
	"net/http"
	"strings"

	"medimind/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const PatientIDKey = "patientID"

// JWTAuthPatientMiddleware accepts a bearer token signed with secret and
// stores its subject as the authenticated patient id.
func JWTAuthPatientMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		patientID, err := utils.ExtractIDFromToken(tokenString, secret)
		if err != nil {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(PatientIDKey, patientID)
		c.Next()
	}
}
