package handlers

import (
	"net/http"

	dbutil "github.com/closetbyera/giftledger/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz checks database connectivity and reports which redemption path is live.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	ctx := c.Request.Context()
	if errPing := sqlDB.PingContext(ctx); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}

	atomicPath := false
	if dbutil.IsPostgres(h.db) {
		var count int64
		if errProc := h.db.WithContext(ctx).
			Raw("SELECT COUNT(*) FROM pg_proc WHERE proname = ?", dbutil.RedeemProcedureName).
			Scan(&count).Error; errProc == nil {
			atomicPath = count > 0
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"dialect":           dbutil.DialectName(h.db),
		"atomic_redemption": atomicPath,
	})
}
