package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/closetbyera/giftledger/internal/config"
	"github.com/closetbyera/giftledger/internal/http/api/admin/permissions"
	"github.com/closetbyera/giftledger/internal/mfa"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	db         *gorm.DB
	jwtCfg     config.JWTConfig
	challenges *mfa.Challenges
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, challenges *mfa.Challenges) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, challenges: challenges}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errStaffNotFound = errors.New("staff not found")

// findStaff loads an enabled staff account by email. Non-staff accounts are reported as not found.
func (h *AuthHandler) findStaff(c *gin.Context, email string) (models.Customer, error) {
	var staff models.Customer
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(email)).
		First(&staff).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Customer{}, errStaffNotFound
		}
		return models.Customer{}, errFind
	}
	if !staff.IsStaff() {
		return models.Customer{}, errStaffNotFound
	}
	return staff, nil
}

// writeStaffLookupError maps findStaff errors to responses.
func writeStaffLookupError(c *gin.Context, err error) {
	if errors.Is(err, errStaffNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
}

// Login authenticates staff by password and issues a JWT if MFA is not required.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(body.Email)
	password := strings.TrimSpace(body.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	staff, errFind := h.findStaff(c, email)
	if errFind != nil {
		writeStaffLookupError(c, errFind)
		return
	}
	if staff.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
		return
	}
	if !security.CheckPassword(staff.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if staff.MFAEnabled() {
		c.JSON(http.StatusForbidden, gin.H{"error": "mfa required"})
		return
	}

	h.respondWithAdminToken(c, staff)
}

// respondWithAdminToken generates a back-office JWT and responds with staff info.
func (h *AuthHandler) respondWithAdminToken(c *gin.Context, staff models.Customer) {
	token, errToken := security.GenerateToken(h.jwtCfg.Secret, security.ScopeBackOffice, staff.ID, staff.Email, staff.Role, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":             staff.ID,
			"email":          staff.Email,
			"name":           staff.Name,
			"role":           staff.Role,
			"permissions":    permissions.ParsePermissions(staff.Permissions),
			"is_super_admin": staff.Role == models.RoleSuperAdmin,
		},
	})
}
