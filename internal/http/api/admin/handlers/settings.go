package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsHandler reads and writes DB-backed runtime settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// List returns every stored setting.
func (h *SettingsHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"key":        row.Key,
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"settings": out,
		"snapshot": gin.H{
			"keys":       settings.Keys(),
			"updated_at": settings.DBConfigUpdatedAt(),
		},
	})
}

// updateSettingRequest carries any JSON value.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Update upserts one setting and refreshes the in-memory snapshot.
func (h *SettingsHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing key"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if errSave := settings.SaveSetting(c.Request.Context(), h.db, key, body.Value); errSave != nil {
		if errors.Is(errSave, settings.ErrInvalidValue) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
			return
		}
		log.WithError(errSave).WithField("key", key).Error("save setting failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
