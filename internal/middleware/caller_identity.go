package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallerIdentityMiddleware extracts the tenant and acting-user ids supplied by
// the surrounding platform. Authentication and authorization policy live
// outside this core; by the time a request reaches us the platform has
// already validated the caller and forwards both ids as headers.
func CallerIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.GetHeader("X-Company-ID")
		userID := c.GetHeader("X-User-ID")

		if companyID == "" || userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Company-ID and X-User-ID headers are required"})
			return
		}

		SetActor(c, companyID, userID)
		c.Next()
	}
}
