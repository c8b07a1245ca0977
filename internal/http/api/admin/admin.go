package admin

import (
	"net/http"
	"strings"

	"github.com/closetbyera/giftledger/internal/config"
	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/http/api/admin/handlers"
	"github.com/closetbyera/giftledger/internal/http/api/admin/permissions"
	"github.com/closetbyera/giftledger/internal/mfa"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers the back-office API.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, ledger *giftcard.Service, challenges *mfa.Challenges) {
	if r == nil || db == nil || ledger == nil {
		return
	}
	if challenges == nil {
		challenges = mfa.NewChallenges(mfa.NewMemoryStore())
	}

	admin := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg, challenges)
	admin.POST("/login", authHandler.Login)
	admin.POST("/login/prepare", authHandler.LoginPrepare)
	admin.POST("/login/totp", authHandler.LoginTOTP)
	admin.POST("/login/passkey/options", authHandler.LoginPasskeyOptions)
	admin.POST("/login/passkey/verify", authHandler.LoginPasskeyVerify)

	self := admin.Group("")
	self.Use(adminAuthMiddleware(db, jwtCfg))

	mfaHandler := handlers.NewMFAHandler(db, challenges)
	self.GET("/mfa/status", mfaHandler.Status)
	self.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	self.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	self.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
	self.POST("/mfa/passkey/options", mfaHandler.BeginPasskeyRegistration)
	self.POST("/mfa/passkey/verify", mfaHandler.FinishPasskeyRegistration)
	self.POST("/mfa/passkey/disable", mfaHandler.DisablePasskey)

	gated := admin.Group("")
	gated.Use(adminAuthMiddleware(db, jwtCfg), adminPermissionMiddleware(db))

	giftCardHandler := handlers.NewGiftCardHandler(ledger)
	gated.POST("/gift-cards", giftCardHandler.Create)
	gated.POST("/gift-cards/batch", giftCardHandler.BatchCreate)
	gated.GET("/gift-cards", giftCardHandler.List)
	gated.GET("/gift-cards/:id", giftCardHandler.Get)
	gated.GET("/gift-cards/:id/usage", giftCardHandler.Usage)
	gated.POST("/gift-cards/:id/deactivate", giftCardHandler.Deactivate)

	staffHandler := handlers.NewStaffHandler(db)
	gated.GET("/staff", staffHandler.List)
	gated.PUT("/staff/:id/role", staffHandler.UpdateRole)
	gated.PUT("/staff/:id/permissions", staffHandler.UpdatePermissions)

	permissionHandler := handlers.NewPermissionHandler()
	gated.GET("/permissions", permissionHandler.List)

	settingsHandler := handlers.NewSettingsHandler(db)
	gated.GET("/settings", settingsHandler.List)
	gated.PUT("/settings/:key", settingsHandler.Update)

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)
}

// adminAuthMiddleware validates back-office JWTs and loads the staff member into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, security.ScopeBackOffice, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var staff models.Customer
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "role", "disabled", "permissions").
			First(&staff, claims.CustomerID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !staff.IsStaff() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if staff.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
			return
		}

		c.Set(handlers.ContextAdminID, staff.ID)
		c.Set(handlers.ContextAdminPermissions, permissions.ParsePermissions(staff.Permissions))
		c.Set(handlers.ContextAdminIsSuperAdmin, staff.Role == models.RoleSuperAdmin)
		c.Next()
	}
}
