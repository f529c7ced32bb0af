package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookkeeping-notifier/internal/infra/logger"
)

const apiTokenHeader = "x-api-token"

// authMiddleware checks the shared API token. A missing server-side secret is
// a deployment fault and answers 500; the middleware never fails open.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if secret == "" {
			logger.Log.Error("API_SECRET_TOKEN is not configured, rejecting request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server configuration error"})
			return
		}
		if c.GetHeader(apiTokenHeader) != secret {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API token"})
			return
		}
		c.Next()
	}
}

// corsMiddleware answers preflight requests from the admin dashboard.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+apiTokenHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
