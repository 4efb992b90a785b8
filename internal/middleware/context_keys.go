package middleware

import "github.com/gin-gonic/gin"

// contextKey is a private type for context keys to prevent collisions.
type contextKey string

const (
	loggerKey    = contextKey("logger")
	companyIDKey = contextKey("companyID")
	userIDKey    = contextKey("userID")
)

// GetCompanyIDFromContext retrieves the acting tenant id from the Gin context.
func GetCompanyIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(companyIDKey))
	if !exists {
		return "", false
	}
	companyID, ok := val.(string)
	return companyID, ok
}

// GetUserIDFromContext retrieves the acting user id from the Gin context.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(userIDKey))
	if !exists {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok
}

// SetActor stores the tenant and user ids on the Gin context. Called by the
// caller-identity middleware once the surrounding platform has resolved them.
func SetActor(c *gin.Context, companyID, userID string) {
	c.Set(string(companyIDKey), companyID)
	c.Set(string(userIDKey), userID)
}
