package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GiftCardHandler serves balance lookups and checkout redemptions.
type GiftCardHandler struct {
	ledger *giftcard.Service
}

// NewGiftCardHandler constructs a GiftCardHandler.
func NewGiftCardHandler(ledger *giftcard.Service) *GiftCardHandler {
	return &GiftCardHandler{ledger: ledger}
}

// Balance reports whether a card can be used and how much is left on it.
func (h *GiftCardHandler) Balance(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	card, errFind := h.ledger.GetByCode(c.Request.Context(), code)
	if errFind != nil {
		if errors.Is(errFind, giftcard.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		log.WithError(errFind).Error("gift card lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query card failed"})
		return
	}

	expired := card.Expired(time.Now())
	c.JSON(http.StatusOK, gin.H{
		"code":       card.Code,
		"balance":    card.Balance,
		"is_active":  card.IsActive,
		"expired":    expired,
		"usable":     card.IsActive && !expired && card.Balance > 0,
		"expires_at": card.ExpiresAt,
	})
}

// redeemRequest defines the request body for checkout redemption.
type redeemRequest struct {
	Code    string `json:"code"`
	Amount  int64  `json:"amount"`
	OrderID string `json:"order_id"`
}

// Redeem debits a card for an order. Rejections are reported with 422 and a reason.
func (h *GiftCardHandler) Redeem(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body redeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	outcome, errRedeem := h.ledger.RedeemForCustomer(c.Request.Context(), userID, code, body.Amount, body.OrderID)
	if errRedeem != nil {
		switch {
		case errors.Is(errRedeem, giftcard.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		case errors.Is(errRedeem, giftcard.ErrMissingOrder):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		default:
			log.WithError(errRedeem).Error("gift card redemption failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redeem failed"})
		}
		return
	}

	if !outcome.Redeemed {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"redeemed":  false,
			"reason":    outcome.Reason,
			"retryable": outcome.Transient(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"redeemed":    true,
		"new_balance": outcome.NewBalance,
	})
}

// Usage lists the caller's redemptions recorded against the given order ids.
func (h *GiftCardHandler) Usage(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	orderIDs := c.QueryArray("order_id")
	if len(orderIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	rows, errUsage := h.ledger.UsageForOrders(c.Request.Context(), userID, orderIDs)
	if errUsage != nil {
		log.WithError(errUsage).Error("gift card usage lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatUsage(row))
	}
	c.JSON(http.StatusOK, gin.H{"usage": out})
}

func formatUsage(row models.GiftCardUsage) gin.H {
	return gin.H{
		"gift_card_id": row.GiftCardID,
		"order_id":     row.OrderID,
		"amount_used":  row.AmountUsed,
		"created_at":   row.CreatedAt,
	}
}
