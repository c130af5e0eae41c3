package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates JWT tokens and protects routes
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("wallet_address", claims.WalletAddress)

		c.Next()
	}
}

// TriggerAuthMiddleware protects the scheduler trigger entry points. It
// accepts either the shared-secret bearer credential used by external cron
// callers, or a valid JWT belonging to an administrator (checked through
// isAdmin). All other callers are rejected.
func TriggerAuthMiddleware(triggerSecret string, isAdmin func(userID uint) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		// Constant-time comparison so the shared secret cannot be probed.
		if triggerSecret != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(triggerSecret)) == 1 {
			c.Set("trigger_caller", "shared_secret")
			c.Next()
			return
		}

		claims, err := ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid trigger credential",
			})
			c.Abort()
			return
		}

		if isAdmin == nil || !isAdmin(claims.UserID) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Administrator session required",
			})
			c.Abort()
			return
		}

		c.Set("trigger_caller", "session")
		c.Set("user_id", claims.UserID)
		c.Set("wallet_address", claims.WalletAddress)
		c.Next()
	}
}

// extractBearer returns the token from an "Authorization: Bearer <token>"
// header, or an empty string.
func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetUserID retrieves the user ID from the context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}

	id, ok := userID.(uint)
	return id, ok
}

// GetWalletAddress retrieves the wallet address from the context
func GetWalletAddress(c *gin.Context) (string, bool) {
	addr, exists := c.Get("wallet_address")
	if !exists {
		return "", false
	}

	address, ok := addr.(string)
	return address, ok
}
