package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/closetbyera/giftledger/internal/authz"
	"github.com/gin-gonic/gin"
)

// Context keys set by the admin auth middleware.
const (
	ContextAdminID           = "adminID"
	ContextAdminPermissions  = "adminPermissions"
	ContextAdminIsSuperAdmin = "adminIsSuperAdmin"
)

// readAdminIDFromContext returns the admin ID from request context.
func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(ContextAdminID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// readIsSuperAdminFromContext returns the super admin flag from request context.
func readIsSuperAdminFromContext(c *gin.Context) bool {
	value, ok := c.Get(ContextAdminIsSuperAdmin)
	if !ok {
		return false
	}
	flag, _ := value.(bool)
	return flag
}

// readPermissionsFromContext returns the permission keys granted to the admin.
func readPermissionsFromContext(c *gin.Context) []string {
	value, ok := c.Get(ContextAdminPermissions)
	if !ok {
		return nil
	}
	keys, _ := value.([]string)
	return keys
}

// callerIdentity builds the ledger caller from the authenticated admin.
func callerIdentity(c *gin.Context) *authz.Identity {
	id, ok := readAdminIDFromContext(c)
	if !ok {
		return nil
	}
	return &authz.Identity{CustomerID: id}
}

// parseIDParam parses a numeric path parameter and writes 400 on failure.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
