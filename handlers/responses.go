package handlers

import (
	"github.com/gin-gonic/gin"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidData    = "INVALID_DATA"
	CodeTrackingFailed = "TRACKING_FAILED"
	CodeQueryFailed    = "QUERY_FAILED"
	CodeInvalidRange   = "INVALID_RANGE"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL"
)

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
