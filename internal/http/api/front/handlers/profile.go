package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProfileHandler handles customer profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

func (h *ProfileHandler) load(c *gin.Context, userID uint64) (models.Customer, bool) {
	var customer models.Customer
	if errFind := h.db.WithContext(c.Request.Context()).First(&customer, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return models.Customer{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Customer{}, false
	}
	return customer, true
}

// Get returns the current customer's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	customer, found := h.load(c, userID)
	if !found {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         customer.ID,
		"email":      customer.Email,
		"name":       customer.Name,
		"role":       customer.Role,
		"created_at": customer.CreatedAt,
		"updated_at": customer.UpdatedAt,
	})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies and updates the customer's password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	oldPassword := strings.TrimSpace(body.OldPassword)
	newPassword := strings.TrimSpace(body.NewPassword)
	if oldPassword == "" || newPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	customer, found := h.load(c, userID)
	if !found {
		return
	}
	if !security.CheckPassword(customer.Password, oldPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "old password incorrect"})
		return
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"password":   hash,
			"updated_at": time.Now().UTC(),
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change password failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
