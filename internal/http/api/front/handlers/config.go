package handlers

import (
	"net/http"

	"github.com/closetbyera/giftledger/internal/settings"
	"github.com/gin-gonic/gin"
)

// publicConfigResponse is the response payload for public config.
type publicConfigResponse struct {
	SiteName string `json:"site_name"`
}

// GetPublicConfig returns public configuration for the storefront.
func GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, publicConfigResponse{
		SiteName: settings.StringOr(settings.SiteNameKey, settings.DefaultSiteName),
	})
}
