package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// respondError writes the API error envelope.
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
