package admin

import (
	"net/http"

	"github.com/closetbyera/giftledger/internal/http/api/admin/handlers"
	"github.com/closetbyera/giftledger/internal/http/api/admin/permissions"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// adminPermissionMiddleware enforces permission checks for admin routes.
// Super admins pass every check; other staff need the route's key.
func adminPermissionMiddleware(db *gorm.DB) gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		key := permissions.Key(c.Request.Method, path)
		if _, ok := permissionMap[key]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		staffPermissions, okPermissions := readAdminPermissionsFromContext(c)
		staffIsSuperAdmin, okSuper := readAdminIsSuperAdminFromContext(c)
		if !okPermissions || !okSuper {
			adminIDValue, exists := c.Get(handlers.ContextAdminID)
			if !exists {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
				return
			}
			adminID, okID := adminIDValue.(uint64)
			if !okID {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
				return
			}

			var staff models.Customer
			if errFind := db.WithContext(c.Request.Context()).Select("id", "permissions", "role").First(&staff, adminID).Error; errFind != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
				return
			}
			staffPermissions = permissions.ParsePermissions(staff.Permissions)
			staffIsSuperAdmin = staff.Role == models.RoleSuperAdmin
			c.Set(handlers.ContextAdminPermissions, staffPermissions)
			c.Set(handlers.ContextAdminIsSuperAdmin, staffIsSuperAdmin)
		}

		if staffIsSuperAdmin {
			c.Next()
			return
		}

		if !permissions.HasPermission(staffPermissions, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		c.Next()
	}
}

// readAdminPermissionsFromContext extracts permissions from the gin context.
func readAdminPermissionsFromContext(c *gin.Context) ([]string, bool) {
	value, ok := c.Get(handlers.ContextAdminPermissions)
	if !ok {
		return nil, false
	}
	permissionsList, ok := value.([]string)
	return permissionsList, ok
}

// readAdminIsSuperAdminFromContext extracts the super admin flag from context.
func readAdminIsSuperAdminFromContext(c *gin.Context) (bool, bool) {
	value, ok := c.Get(handlers.ContextAdminIsSuperAdmin)
	if !ok {
		return false, false
	}
	flag, ok := value.(bool)
	return flag, ok
}
