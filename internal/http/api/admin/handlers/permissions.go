package handlers

import (
	"net/http"
	"sort"

	"github.com/closetbyera/giftledger/internal/http/api/admin/permissions"
	"github.com/gin-gonic/gin"
)

// PermissionHandler exposes the permission catalogue to staff editors.
type PermissionHandler struct{}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// List returns all permission definitions grouped in module order.
func (h *PermissionHandler) List(c *gin.Context) {
	defs := permissions.Definitions()
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Module < defs[j].Module })

	out := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		out = append(out, gin.H{
			"key":    d.Key,
			"method": d.Method,
			"path":   d.Path,
			"label":  d.Label,
			"module": d.Module,
		})
	}
	c.JSON(http.StatusOK, gin.H{"permissions": out})
}
