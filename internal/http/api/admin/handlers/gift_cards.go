package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/authz"
	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GiftCardHandler handles back-office gift card operations.
type GiftCardHandler struct {
	ledger *giftcard.Service // Ledger enforcing the admin guard on writes.
}

// NewGiftCardHandler wires a gift card handler with the ledger.
func NewGiftCardHandler(ledger *giftcard.Service) *GiftCardHandler {
	return &GiftCardHandler{ledger: ledger}
}

// issueGiftCardRequest captures the payload for issuing a single card.
type issueGiftCardRequest struct {
	InitialValue int64      `json:"initial_value"` // Initial value and balance.
	Code         string     `json:"code"`          // Optional code; generated when empty.
	ExpiresAt    *time.Time `json:"expires_at"`    // Optional absolute expiry.
	ValidDays    *int       `json:"valid_days"`    // Optional expiry relative to now.
}

// resolveExpiry resolves expires_at or valid_days into an absolute time.
func resolveExpiry(expiresAt *time.Time, validDays *int) (*time.Time, bool) {
	if expiresAt != nil && validDays != nil {
		return nil, false
	}
	if validDays != nil {
		if *validDays <= 0 {
			return nil, false
		}
		at := time.Now().UTC().AddDate(0, 0, *validDays)
		return &at, true
	}
	return expiresAt, true
}

// Create issues one gift card.
func (h *GiftCardHandler) Create(c *gin.Context) {
	var body issueGiftCardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	expiresAt, ok := resolveExpiry(body.ExpiresAt, body.ValidDays)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "use either expires_at or a positive valid_days"})
		return
	}

	card, errIssue := h.ledger.IssueCard(c.Request.Context(), callerIdentity(c), giftcard.IssueParams{
		InitialValue: body.InitialValue,
		Code:         body.Code,
		ExpiresAt:    expiresAt,
	})
	if errIssue != nil {
		writeLedgerError(c, errIssue)
		return
	}
	c.JSON(http.StatusCreated, formatCard(card))
}

// batchIssueGiftCardRequest captures the payload for batch issuance.
type batchIssueGiftCardRequest struct {
	InitialValue int64      `json:"initial_value"` // Value of each card.
	Count        int        `json:"count"`         // Number of cards to issue.
	ExpiresAt    *time.Time `json:"expires_at"`    // Optional absolute expiry.
	ValidDays    *int       `json:"valid_days"`    // Optional expiry relative to now.
}

// BatchCreate issues many cards with generated codes in a single transaction.
func (h *GiftCardHandler) BatchCreate(c *gin.Context) {
	var body batchIssueGiftCardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	expiresAt, ok := resolveExpiry(body.ExpiresAt, body.ValidDays)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "use either expires_at or a positive valid_days"})
		return
	}

	cards, errIssue := h.ledger.IssueBatch(c.Request.Context(), callerIdentity(c), body.Count, giftcard.IssueParams{
		InitialValue: body.InitialValue,
		ExpiresAt:    expiresAt,
	})
	if errIssue != nil {
		writeLedgerError(c, errIssue)
		return
	}
	out := make([]gin.H, 0, len(cards))
	for _, card := range cards {
		out = append(out, formatCard(card))
	}
	c.JSON(http.StatusCreated, gin.H{"gift_cards": out})
}

// List returns gift cards filtered by query parameters.
func (h *GiftCardHandler) List(c *gin.Context) {
	var (
		codeQ   = strings.TrimSpace(c.Query("code"))
		activeQ = strings.TrimSpace(c.Query("active"))
	)
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))

	filter := giftcard.ListFilter{Code: codeQ, Page: page, PageSize: pageSize}
	if activeQ == "true" || activeQ == "1" {
		active := true
		filter.Active = &active
	} else if activeQ == "false" || activeQ == "0" {
		active := false
		filter.Active = &active
	}

	rows, total, errList := h.ledger.List(c.Request.Context(), filter)
	if errList != nil {
		writeLedgerError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatCard(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"gift_cards": out, "total": total})
}

// Get fetches a single gift card by ID.
func (h *GiftCardHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	card, errFind := h.ledger.Get(c.Request.Context(), id)
	if errFind != nil {
		writeLedgerError(c, errFind)
		return
	}
	c.JSON(http.StatusOK, formatCard(card))
}

// Usage returns the redemption history of a gift card.
func (h *GiftCardHandler) Usage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rows, errUsage := h.ledger.Usage(c.Request.Context(), id)
	if errUsage != nil {
		writeLedgerError(c, errUsage)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatUsage(row))
	}
	c.JSON(http.StatusOK, gin.H{"usage": out})
}

// Deactivate permanently disables a gift card. Repeated calls succeed.
func (h *GiftCardHandler) Deactivate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if errDeactivate := h.ledger.Deactivate(c.Request.Context(), callerIdentity(c), id); errDeactivate != nil {
		writeLedgerError(c, errDeactivate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// writeLedgerError maps ledger errors onto HTTP responses.
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, giftcard.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, giftcard.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "code must look like AAAA-BBBB-CCCC"})
	case errors.Is(err, giftcard.ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
	case errors.Is(err, giftcard.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "initial_value must be positive"})
	case errors.Is(err, giftcard.ErrInvalidExpiry):
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be in the future"})
	case errors.Is(err, giftcard.ErrInvalidBatchSize):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("gift card request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gift card operation failed"})
	}
}

// formatCard maps a gift card model into a response payload.
func formatCard(card *models.GiftCard) gin.H {
	return gin.H{
		"id":             card.ID,
		"code":           card.Code,
		"initial_value":  card.InitialValue,
		"balance":        card.Balance,
		"is_active":      card.IsActive,
		"expires_at":     card.ExpiresAt,
		"issued_by":      card.IssuedBy,
		"created_at":     card.CreatedAt,
		"deactivated_at": card.DeactivatedAt,
	}
}

// formatUsage maps a usage record into a response payload.
func formatUsage(row models.GiftCardUsage) gin.H {
	return gin.H{
		"id":           row.ID,
		"gift_card_id": row.GiftCardID,
		"order_id":     row.OrderID,
		"amount_used":  row.AmountUsed,
		"created_at":   row.CreatedAt,
	}
}
