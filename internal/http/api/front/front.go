package front

import (
	"net/http"
	"strings"

	"github.com/closetbyera/giftledger/internal/config"
	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/http/api/front/handlers"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers public and authenticated storefront routes.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, ledger *giftcard.Service) {
	if r == nil || db == nil || ledger == nil {
		return
	}

	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	front.POST("/register", authHandler.Register)
	front.POST("/login", authHandler.Login)
	front.GET("/config", handlers.GetPublicConfig)

	authed := front.Group("")
	authed.Use(userAuthMiddleware(db, jwtCfg))

	profileHandler := handlers.NewProfileHandler(db)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile/password", profileHandler.ChangePassword)

	giftCardHandler := handlers.NewGiftCardHandler(ledger)
	authed.GET("/gift-cards/usage", giftCardHandler.Usage)
	authed.POST("/gift-cards/redeem", giftCardHandler.Redeem)
	authed.GET("/gift-cards/:code", giftCardHandler.Balance)
}

// userAuthMiddleware validates storefront JWTs and loads the customer into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseToken(jwtCfg.Secret, security.ScopeStorefront, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var customer models.Customer
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "disabled").
			First(&customer, claims.CustomerID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if customer.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		c.Set(handlers.ContextUserID, customer.ID)
		c.Next()
	}
}
