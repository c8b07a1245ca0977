// Package giftcard implements the gift card balance ledger: issuance,
// redemption with conflict detection, and deactivation.
package giftcard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/authz"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/settings"
	"github.com/closetbyera/giftledger/internal/util"
	log "github.com/sirupsen/logrus"
)

// Authorizer gates back-office operations.
type Authorizer interface {
	RequireAdmin(ctx context.Context, id *authz.Identity) error
}

// IssueParams describes a card to issue. An empty Code asks for a generated one.
type IssueParams struct {
	InitialValue int64
	Code         string
	ExpiresAt    *time.Time
}

// Service is the balance ledger.
type Service struct {
	store           Store
	auth            Authorizer
	codes           CodeGenerator
	now             func() time.Time
	metrics         *Metrics
	conflictRetries int
}

// Option customizes a Service.
type Option func(*Service)

// WithCodeGenerator replaces the crypto/rand code generator.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.codes = gen
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records redemption outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConflictRetries lets the fallback path re-run the read-check-swap cycle up
// to n more times after losing a race. The default of zero surfaces the first
// conflict to the caller.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.conflictRetries = n
		}
	}
}

// NewService builds a ledger over store, gating admin operations with auth.
func NewService(store Store, auth Authorizer, opts ...Option) *Service {
	s := &Service{
		store: store,
		auth:  auth,
		codes: NewCodeGenerator(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueCard creates an active card whose balance equals its initial value.
func (s *Service) IssueCard(ctx context.Context, caller *authz.Identity, params IssueParams) (*models.GiftCard, error) {
	if errAuth := s.auth.RequireAdmin(ctx, caller); errAuth != nil {
		return nil, errAuth
	}
	if errValidate := s.validateIssue(params); errValidate != nil {
		return nil, errValidate
	}

	card := s.newCard(caller, params)
	if code := NormalizeCode(params.Code); code != "" {
		if !ValidCode(code) {
			return nil, ErrInvalidCode
		}
		card.Code = code
		if errCreate := s.store.CreateCard(ctx, card); errCreate != nil {
			return nil, errCreate
		}
		s.logIssued(card)
		return card, nil
	}

	attempts := s.codeAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		code, errGen := s.codes()
		if errGen != nil {
			return nil, errGen
		}
		card.ID = 0
		card.Code = code
		errCreate := s.store.CreateCard(ctx, card)
		if errCreate == nil {
			s.logIssued(card)
			return card, nil
		}
		if !errors.Is(errCreate, ErrDuplicateCode) {
			return nil, errCreate
		}
		log.WithField("attempt", attempt).Debug("giftcard: generated code collided, retrying")
	}
	return nil, ErrDuplicateCode
}

// IssueBatch creates count cards with generated codes in one write.
func (s *Service) IssueBatch(ctx context.Context, caller *authz.Identity, count int, params IssueParams) ([]*models.GiftCard, error) {
	if errAuth := s.auth.RequireAdmin(ctx, caller); errAuth != nil {
		return nil, errAuth
	}
	maxBatch := settings.Int(settings.GiftCardMaxBatchKey, settings.DefaultGiftCardMaxBatch)
	if count < 1 || count > maxBatch {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidBatchSize, maxBatch)
	}
	params.Code = ""
	if errValidate := s.validateIssue(params); errValidate != nil {
		return nil, errValidate
	}

	attempts := s.codeAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		cards, errBuild := s.buildBatch(caller, count, params)
		if errBuild != nil {
			return nil, errBuild
		}
		errCreate := s.store.CreateCards(ctx, cards)
		if errCreate == nil {
			log.WithFields(log.Fields{
				"count":         count,
				"initial_value": params.InitialValue,
				"issued_by":     caller.CustomerID,
			}).Info("giftcard: batch issued")
			return cards, nil
		}
		if !errors.Is(errCreate, ErrDuplicateCode) {
			return nil, errCreate
		}
		log.WithField("attempt", attempt).Debug("giftcard: batch code collided, retrying")
	}
	return nil, ErrDuplicateCode
}

func (s *Service) buildBatch(caller *authz.Identity, count int, params IssueParams) ([]*models.GiftCard, error) {
	cards := make([]*models.GiftCard, 0, count)
	seen := make(map[string]struct{}, count)
	for len(cards) < count {
		code, errGen := s.codes()
		if errGen != nil {
			return nil, errGen
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		card := s.newCard(caller, params)
		card.Code = code
		cards = append(cards, card)
	}
	return cards, nil
}

func (s *Service) validateIssue(params IssueParams) error {
	if params.InitialValue <= 0 {
		return ErrInvalidAmount
	}
	if params.ExpiresAt != nil && !params.ExpiresAt.After(s.now()) {
		return ErrInvalidExpiry
	}
	return nil
}

func (s *Service) newCard(caller *authz.Identity, params IssueParams) *models.GiftCard {
	card := &models.GiftCard{
		InitialValue: params.InitialValue,
		Balance:      params.InitialValue,
		IsActive:     true,
	}
	if params.ExpiresAt != nil {
		expiresAt := params.ExpiresAt.UTC()
		card.ExpiresAt = &expiresAt
	}
	if caller != nil && caller.CustomerID != 0 {
		issuedBy := caller.CustomerID
		card.IssuedBy = &issuedBy
	}
	return card
}

func (s *Service) codeAttempts() int {
	attempts := settings.Int(settings.GiftCardCodeAttemptsKey, settings.DefaultGiftCardCodeAttempts)
	if attempts < 1 {
		return 1
	}
	return attempts
}

func (s *Service) logIssued(card *models.GiftCard) {
	fields := log.Fields{"card_id": card.ID, "code": util.MaskCode(card.Code), "initial_value": card.InitialValue}
	if card.IssuedBy != nil {
		fields["issued_by"] = *card.IssuedBy
	}
	log.WithFields(fields).Info("giftcard: card issued")
}

// Redeem deducts amount from the card identified by code for orderID.
//
// The atomic procedure is tried first. When the store reports it unavailable the
// ledger reads the card, rejects ineligible requests without writing, and
// deducts with a compare-and-swap on the balance it read. A lost race is
// reported as ReasonConcurrentConflict.
func (s *Service) Redeem(ctx context.Context, code string, amount int64, orderID string) (Outcome, error) {
	return s.redeem(ctx, Redemption{Code: code, Amount: amount, OrderID: orderID})
}

// RedeemForCustomer is Redeem on behalf of a signed-in customer; the usage
// record remembers who redeemed.
func (s *Service) RedeemForCustomer(ctx context.Context, customerID uint64, code string, amount int64, orderID string) (Outcome, error) {
	return s.redeem(ctx, Redemption{Code: code, Amount: amount, OrderID: orderID, RedeemedBy: &customerID})
}

func (s *Service) redeem(ctx context.Context, req Redemption) (Outcome, error) {
	if req.Amount <= 0 {
		return Outcome{}, ErrInvalidAmount
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		return Outcome{}, ErrMissingOrder
	}
	req.Code = NormalizeCode(req.Code)

	outcome, errRedeem := s.redeemAtomic(ctx, req)
	if errors.Is(errRedeem, ErrAtomicUnavailable) {
		outcome, errRedeem = s.redeemFallback(ctx, req)
	}
	if errRedeem != nil {
		return Outcome{}, errRedeem
	}
	s.metrics.observe(outcome)
	return outcome, nil
}

func (s *Service) redeemAtomic(ctx context.Context, req Redemption) (Outcome, error) {
	res, errCall := s.store.RedeemAtomic(ctx, req)
	if errCall != nil {
		if errors.Is(errCall, ErrAtomicUnavailable) {
			return Outcome{}, errCall
		}
		return Outcome{}, fmt.Errorf("giftcard: atomic redeem: %w", errCall)
	}
	if res.Success {
		return redeemed(PathAtomic, res.NewBalance), nil
	}
	reason, ok := parseReason(res.Message)
	if !ok {
		return Outcome{}, fmt.Errorf("giftcard: atomic redeem: unexpected result %q", res.Message)
	}
	return rejected(PathAtomic, reason), nil
}

func (s *Service) redeemFallback(ctx context.Context, req Redemption) (Outcome, error) {
	for attempt := 0; ; attempt++ {
		outcome, errTry := s.compareAndSwap(ctx, req)
		if errTry != nil || !outcome.Transient() || attempt >= s.conflictRetries {
			return outcome, errTry
		}
		log.WithFields(log.Fields{
			"code":     util.MaskCode(req.Code),
			"order_id": req.OrderID,
			"attempt":  attempt + 1,
		}).Debug("giftcard: balance changed concurrently, retrying redemption")
	}
}

func (s *Service) compareAndSwap(ctx context.Context, req Redemption) (Outcome, error) {
	amount := req.Amount
	card, errFind := s.store.FindByCode(ctx, req.Code)
	if errFind != nil {
		if errors.Is(errFind, ErrCardNotFound) {
			return rejected(PathFallback, ReasonNotFound), nil
		}
		return Outcome{}, fmt.Errorf("giftcard: read card: %w", errFind)
	}
	switch {
	case !card.IsActive:
		return rejected(PathFallback, ReasonInactive), nil
	case card.Expired(s.now()):
		return rejected(PathFallback, ReasonExpired), nil
	case card.Balance < amount:
		return rejected(PathFallback, ReasonInsufficientBalance), nil
	}

	next := card.Balance - amount
	swapped, errSwap := s.store.CompareAndSwapBalance(ctx, card.ID, card.Balance, next)
	if errSwap != nil {
		return Outcome{}, fmt.Errorf("giftcard: update balance: %w", errSwap)
	}
	if !swapped {
		return rejected(PathFallback, ReasonConcurrentConflict), nil
	}

	usage := &models.GiftCardUsage{
		GiftCardID: card.ID,
		OrderID:    req.OrderID,
		AmountUsed: amount,
		RedeemedBy: req.RedeemedBy,
	}
	if errAppend := s.store.AppendUsage(ctx, usage); errAppend != nil {
		log.WithError(errAppend).WithFields(log.Fields{
			"card_id":  card.ID,
			"code":     util.MaskCode(card.Code),
			"order_id": req.OrderID,
			"amount":   amount,
		}).Warn("giftcard: usage record append failed after deduction")
	}
	return redeemed(PathFallback, next), nil
}

// Deactivate permanently removes the card from redemption. Repeated calls succeed.
func (s *Service) Deactivate(ctx context.Context, caller *authz.Identity, id uint64) error {
	if errAuth := s.auth.RequireAdmin(ctx, caller); errAuth != nil {
		return errAuth
	}
	if errDeactivate := s.store.Deactivate(ctx, id, s.now().UTC()); errDeactivate != nil {
		return errDeactivate
	}
	log.WithFields(log.Fields{"card_id": id, "by": caller.CustomerID}).Info("giftcard: card deactivated")
	return nil
}

// Get returns a card by id.
func (s *Service) Get(ctx context.Context, id uint64) (*models.GiftCard, error) {
	return s.store.FindByID(ctx, id)
}

// GetByCode returns a card by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	return s.store.FindByCode(ctx, NormalizeCode(code))
}

// List returns a page of cards and the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.GiftCard, int64, error) {
	filter.Code = NormalizeCode(filter.Code)
	return s.store.ListCards(ctx, filter)
}

// Usage returns the redemption history of a card, newest first.
func (s *Service) Usage(ctx context.Context, cardID uint64) ([]models.GiftCardUsage, error) {
	if _, errFind := s.store.FindByID(ctx, cardID); errFind != nil {
		return nil, errFind
	}
	return s.store.ListUsage(ctx, UsageFilter{GiftCardID: cardID})
}

// UsageForOrders returns redemptions customerID made against any of the given orders.
func (s *Service) UsageForOrders(ctx context.Context, customerID uint64, orderIDs []string) ([]models.GiftCardUsage, error) {
	cleaned := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return []models.GiftCardUsage{}, nil
	}
	return s.store.ListUsage(ctx, UsageFilter{OrderIDs: cleaned, RedeemedBy: &customerID})
}
