package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated customer ID.
const ContextUserID = "userID"

// getUserID extracts the customer ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get(ContextUserID)
	if !exists {
		return 0
	}
	id, _ := val.(uint64)
	return id
}

// requireUserID returns the customer ID or writes 401.
func requireUserID(c *gin.Context) (uint64, bool) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}
