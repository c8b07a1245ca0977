package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	dbutil "github.com/closetbyera/giftledger/internal/db"
	"github.com/closetbyera/giftledger/internal/http/api/admin/permissions"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StaffHandler manages back-office roles on customer profiles.
type StaffHandler struct {
	db *gorm.DB
}

// NewStaffHandler constructs a StaffHandler.
func NewStaffHandler(db *gorm.DB) *StaffHandler {
	return &StaffHandler{db: db}
}

// List returns staff accounts with an optional email filter.
func (h *StaffHandler) List(c *gin.Context) {
	emailQ := strings.TrimSpace(c.Query("email"))

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Customer{}).
		Where("role IN ?", []string{models.RoleAdmin, models.RoleSuperAdmin})
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}

	var rows []models.Customer
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list staff failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatStaff(row))
	}
	c.JSON(http.StatusOK, gin.H{"staff": out})
}

// updateRoleRequest defines the request body for role changes.
type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a customer's role. Only super admins may grant or revoke super_admin,
// and nobody may change their own role.
func (h *StaffHandler) UpdateRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body updateRoleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role := strings.TrimSpace(body.Role)
	switch role {
	case models.RoleCustomer, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	callerID, _ := readAdminIDFromContext(c)
	if callerID == id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot change own role"})
		return
	}

	target, found := h.loadCustomer(c, id)
	if !found {
		return
	}
	touchesSuper := role == models.RoleSuperAdmin || target.Role == models.RoleSuperAdmin
	if touchesSuper && !readIsSuperAdminFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	updates := map[string]any{"role": role, "updated_at": time.Now().UTC()}
	if role == models.RoleCustomer {
		updates["permissions"] = datatypes.JSON("[]")
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	log.WithFields(log.Fields{"customer_id": id, "role": role, "by": callerID}).Info("staff role changed")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// updatePermissionsRequest defines the request body for permission changes.
type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// UpdatePermissions replaces a staff member's permission list. Nobody may edit
// their own list, super admin lists are reserved to super admins, and other
// callers may only grant keys they hold.
func (h *StaffHandler) UpdatePermissions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	callerID, _ := readAdminIDFromContext(c)
	if callerID == id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot change own permissions"})
		return
	}
	var body updatePermissionsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	normalized := permissions.NormalizePermissions(body.Permissions)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
		return
	}
	permissionsJSON, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "marshal permissions failed"})
		return
	}

	target, found := h.loadCustomer(c, id)
	if !found {
		return
	}
	if !target.IsStaff() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer is not staff"})
		return
	}
	if !readIsSuperAdminFromContext(c) {
		if target.Role == models.RoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		granted := readPermissionsFromContext(c)
		for _, key := range normalized {
			if !permissions.HasPermission(granted, key) {
				c.JSON(http.StatusForbidden, gin.H{"error": "cannot grant " + key})
				return
			}
		}
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"permissions": permissionsJSON,
			"updated_at":  time.Now().UTC(),
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	log.WithFields(log.Fields{"customer_id": id, "permissions": len(normalized), "by": callerID}).Info("staff permissions changed")
	c.JSON(http.StatusOK, gin.H{"ok": true, "permissions": normalized})
}

// loadCustomer loads a customer row or writes an error response.
func (h *StaffHandler) loadCustomer(c *gin.Context, id uint64) (models.Customer, bool) {
	var row models.Customer
	if errFind := h.db.WithContext(c.Request.Context()).
		Select("id", "email", "role").
		First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return models.Customer{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Customer{}, false
	}
	return row, true
}

// formatStaff maps a staff profile into a response payload.
func formatStaff(row models.Customer) gin.H {
	return gin.H{
		"id":             row.ID,
		"email":          row.Email,
		"name":           row.Name,
		"role":           row.Role,
		"disabled":       row.Disabled,
		"is_super_admin": row.Role == models.RoleSuperAdmin,
		"permissions":    permissions.ParsePermissions(row.Permissions),
		"mfa_enabled":    row.MFAEnabled(),
		"created_at":     row.CreatedAt,
	}
}
