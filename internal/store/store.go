// Package store persists the gift card ledger with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/db"
	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	createBatchSize = 200
)

// GormStore implements giftcard.Store.
type GormStore struct {
	db *gorm.DB
}

var _ giftcard.Store = (*GormStore)(nil)

// NewGormStore wraps conn.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn}
}

// CreateCard inserts one card.
func (s *GormStore) CreateCard(ctx context.Context, card *models.GiftCard) error {
	if errCreate := s.db.WithContext(ctx).Create(card).Error; errCreate != nil {
		return mapWriteError("create card", errCreate)
	}
	return nil
}

// CreateCards inserts all cards or none.
func (s *GormStore) CreateCards(ctx context.Context, cards []*models.GiftCard) error {
	if len(cards) == 0 {
		return nil
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(cards, createBatchSize).Error
	})
	if errTx != nil {
		return mapWriteError("create cards", errTx)
	}
	return nil
}

// FindByCode loads a card by code.
func (s *GormStore) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	if errFind := s.db.WithContext(ctx).Where("code = ?", code).Take(&card).Error; errFind != nil {
		return nil, mapReadError("find card by code", errFind)
	}
	return &card, nil
}

// FindByID loads a card by id.
func (s *GormStore) FindByID(ctx context.Context, id uint64) (*models.GiftCard, error) {
	var card models.GiftCard
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).Take(&card).Error; errFind != nil {
		return nil, mapReadError("find card", errFind)
	}
	return &card, nil
}

// ListCards returns one page of cards, newest first, plus the total count.
func (s *GormStore) ListCards(ctx context.Context, filter giftcard.ListFilter) ([]models.GiftCard, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.GiftCard{})
	if code := strings.TrimSpace(filter.Code); code != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+code+"%")
		q = q.Where(db.CaseInsensitiveLikeExpr(s.db, "code"), pattern)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("store: count cards: %w", errCount)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	var cards []models.GiftCard
	errFind := q.Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&cards).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("store: list cards: %w", errFind)
	}
	return cards, total, nil
}

// CompareAndSwapBalance sets the balance to next only while it still equals expected.
func (s *GormStore) CompareAndSwapBalance(ctx context.Context, id uint64, expected, next int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ? AND balance = ? AND is_active = ?", id, expected, true).
		Update("balance", next)
	if res.Error != nil {
		return false, fmt.Errorf("store: swap balance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AppendUsage inserts one redemption record.
func (s *GormStore) AppendUsage(ctx context.Context, usage *models.GiftCardUsage) error {
	if errCreate := s.db.WithContext(ctx).Omit("GiftCard").Create(usage).Error; errCreate != nil {
		return fmt.Errorf("store: append usage: %w", errCreate)
	}
	return nil
}

// ListUsage returns redemption records, newest first.
func (s *GormStore) ListUsage(ctx context.Context, filter giftcard.UsageFilter) ([]models.GiftCardUsage, error) {
	q := s.db.WithContext(ctx).Model(&models.GiftCardUsage{})
	if filter.GiftCardID != 0 {
		q = q.Where("gift_card_id = ?", filter.GiftCardID)
	}
	if len(filter.OrderIDs) > 0 {
		q = q.Where("order_id IN ?", filter.OrderIDs)
	}
	if filter.RedeemedBy != nil {
		q = q.Where("redeemed_by = ?", *filter.RedeemedBy)
	}
	var rows []models.GiftCardUsage
	if errFind := q.Order("created_at DESC, id DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list usage: %w", errFind)
	}
	return rows, nil
}

// Deactivate clears is_active. The first call stamps deactivated_at; later calls change nothing.
func (s *GormStore) Deactivate(ctx context.Context, id uint64, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":      false,
			"deactivated_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("store: deactivate card: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.GiftCard{}).Where("id = ?", id).Count(&count).Error; errCount != nil {
		return fmt.Errorf("store: deactivate card: %w", errCount)
	}
	if count == 0 {
		return giftcard.ErrCardNotFound
	}
	return nil
}

// RedeemAtomic calls the redemption procedure. Only PostgreSQL deployments carry it.
func (s *GormStore) RedeemAtomic(ctx context.Context, req giftcard.Redemption) (giftcard.AtomicResult, error) {
	if !db.IsPostgres(s.db) {
		return giftcard.AtomicResult{}, giftcard.ErrAtomicUnavailable
	}
	var rows []struct {
		Success    bool
		Message    string
		NewBalance int64
	}
	var redeemedBy any
	if req.RedeemedBy != nil {
		redeemedBy = int64(*req.RedeemedBy)
	}
	query := fmt.Sprintf("SELECT success, message, new_balance FROM %s(?, ?, ?, ?::bigint)", db.RedeemProcedureName)
	if errCall := s.db.WithContext(ctx).Raw(query, req.Code, req.Amount, req.OrderID, redeemedBy).Scan(&rows).Error; errCall != nil {
		if db.IsUndefinedFunction(errCall) {
			log.WithError(errCall).Warn("store: redemption procedure missing, using compare-and-swap")
			return giftcard.AtomicResult{}, giftcard.ErrAtomicUnavailable
		}
		return giftcard.AtomicResult{}, fmt.Errorf("store: call %s: %w", db.RedeemProcedureName, errCall)
	}
	if len(rows) != 1 {
		return giftcard.AtomicResult{}, fmt.Errorf("store: call %s: expected one row, got %d", db.RedeemProcedureName, len(rows))
	}
	return giftcard.AtomicResult{
		Success:    rows[0].Success,
		Message:    rows[0].Message,
		NewBalance: rows[0].NewBalance,
	}, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func mapReadError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return giftcard.ErrCardNotFound
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

func mapWriteError(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return giftcard.ErrDuplicateCode
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
