package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/closetbyera/giftledger/internal/db"
	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:store_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewGormStore(conn), conn
}

func newCard(code string, value int64) *models.GiftCard {
	return &models.GiftCard{Code: code, InitialValue: value, Balance: value, IsActive: true}
}

func TestCreateCardRejectsDuplicateCode(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if errCreate := s.CreateCard(ctx, newCard("AAAA-BBBB-CCCC", 100)); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	errDup := s.CreateCard(ctx, newCard("AAAA-BBBB-CCCC", 50))
	if !errors.Is(errDup, giftcard.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", errDup)
	}
}

func TestCreateCardsIsAllOrNothing(t *testing.T) {
	s, conn := openTestStore(t)
	ctx := context.Background()

	if errCreate := s.CreateCard(ctx, newCard("DUPE-DUPE-DUPE", 100)); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	batch := []*models.GiftCard{
		newCard("AAAA-AAAA-AAAA", 10),
		newCard("DUPE-DUPE-DUPE", 10),
	}
	if errBatch := s.CreateCards(ctx, batch); !errors.Is(errBatch, giftcard.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", errBatch)
	}

	var count int64
	if errCount := conn.Model(&models.GiftCard{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected batch to roll back, found %d cards", count)
	}
}

func TestFindMissingCard(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := s.FindByCode(ctx, "NOPE-NOPE-NOPE"); !errors.Is(err, giftcard.ErrCardNotFound) {
		t.Fatalf("find by code: expected ErrCardNotFound, got %v", err)
	}
	if _, err := s.FindByID(ctx, 42); !errors.Is(err, giftcard.ErrCardNotFound) {
		t.Fatalf("find by id: expected ErrCardNotFound, got %v", err)
	}
}

func TestCompareAndSwapBalance(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	card := newCard("SWAP-SWAP-SWAP", 400)
	if errCreate := s.CreateCard(ctx, card); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	swapped, errSwap := s.CompareAndSwapBalance(ctx, card.ID, 400, 100)
	if errSwap != nil || !swapped {
		t.Fatalf("first swap: swapped=%v err=%v", swapped, errSwap)
	}
	swapped, errSwap = s.CompareAndSwapBalance(ctx, card.ID, 400, 100)
	if errSwap != nil {
		t.Fatalf("stale swap: %v", errSwap)
	}
	if swapped {
		t.Fatalf("expected stale expected balance to lose")
	}

	if errDeactivate := s.Deactivate(ctx, card.ID, time.Now()); errDeactivate != nil {
		t.Fatalf("deactivate: %v", errDeactivate)
	}
	swapped, errSwap = s.CompareAndSwapBalance(ctx, card.ID, 100, 50)
	if errSwap != nil {
		t.Fatalf("inactive swap: %v", errSwap)
	}
	if swapped {
		t.Fatalf("expected inactive card not to change")
	}

	got, errFind := s.FindByID(ctx, card.ID)
	if errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.Balance != 100 {
		t.Fatalf("balance = %d, want 100", got.Balance)
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	card := newCard("OFF0-OFF0-OFF0", 100)
	if errCreate := s.CreateCard(ctx, card); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Deactivate(ctx, card.ID, first); err != nil {
		t.Fatalf("first deactivate: %v", err)
	}
	if err := s.Deactivate(ctx, card.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}

	got, errFind := s.FindByID(ctx, card.ID)
	if errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.IsActive {
		t.Fatalf("expected card to stay inactive")
	}
	if got.DeactivatedAt == nil || !got.DeactivatedAt.Equal(first) {
		t.Fatalf("deactivated_at = %v, want %v", got.DeactivatedAt, first)
	}
	if got.Balance != 100 {
		t.Fatalf("deactivation changed balance to %d", got.Balance)
	}

	if err := s.Deactivate(ctx, 9999, first); !errors.Is(err, giftcard.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestListCardsFiltersAndPages(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	codes := []string{"AAAA-0001-XXXX", "AAAA-0002-XXXX", "BBBB-0003-XXXX"}
	ids := make([]uint64, 0, len(codes))
	for _, code := range codes {
		card := newCard(code, 100)
		if errCreate := s.CreateCard(ctx, card); errCreate != nil {
			t.Fatalf("create %s: %v", code, errCreate)
		}
		ids = append(ids, card.ID)
	}
	if errDeactivate := s.Deactivate(ctx, ids[1], time.Now()); errDeactivate != nil {
		t.Fatalf("deactivate: %v", errDeactivate)
	}

	rows, total, errList := s.ListCards(ctx, giftcard.ListFilter{Code: "aaaa"})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("code filter: total=%d rows=%d", total, len(rows))
	}
	if rows[0].Code != "AAAA-0002-XXXX" {
		t.Fatalf("expected newest first, got %s", rows[0].Code)
	}

	active := true
	rows, total, errList = s.ListCards(ctx, giftcard.ListFilter{Active: &active})
	if errList != nil {
		t.Fatalf("list active: %v", errList)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("active filter: total=%d rows=%d", total, len(rows))
	}

	rows, total, errList = s.ListCards(ctx, giftcard.ListFilter{Page: 2, PageSize: 2})
	if errList != nil {
		t.Fatalf("list page: %v", errList)
	}
	if total != 3 || len(rows) != 1 || rows[0].Code != "AAAA-0001-XXXX" {
		t.Fatalf("page 2: total=%d rows=%+v", total, rows)
	}
}

func TestListUsageByCardAndOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	card := newCard("USE0-USE0-USE0", 1000)
	if errCreate := s.CreateCard(ctx, card); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	shopper := uint64(7)
	for _, order := range []string{"O1", "O2", "O3"} {
		usage := &models.GiftCardUsage{GiftCardID: card.ID, OrderID: order, AmountUsed: 10}
		if order != "O2" {
			usage.RedeemedBy = &shopper
		}
		if errAppend := s.AppendUsage(ctx, usage); errAppend != nil {
			t.Fatalf("append %s: %v", order, errAppend)
		}
	}

	all, errAll := s.ListUsage(ctx, giftcard.UsageFilter{GiftCardID: card.ID})
	if errAll != nil {
		t.Fatalf("list all: %v", errAll)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	some, errSome := s.ListUsage(ctx, giftcard.UsageFilter{OrderIDs: []string{"O1", "O3"}})
	if errSome != nil {
		t.Fatalf("list orders: %v", errSome)
	}
	if len(some) != 2 {
		t.Fatalf("expected 2 records, got %d", len(some))
	}

	mine, errMine := s.ListUsage(ctx, giftcard.UsageFilter{OrderIDs: []string{"O1", "O2"}, RedeemedBy: &shopper})
	if errMine != nil {
		t.Fatalf("list customer orders: %v", errMine)
	}
	if len(mine) != 1 || mine[0].OrderID != "O1" {
		t.Fatalf("expected only O1 for customer, got %+v", mine)
	}
}

func TestRedeemAtomicUnavailableOnSQLite(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.RedeemAtomic(context.Background(), giftcard.Redemption{Code: "AAAA-BBBB-CCCC", Amount: 10, OrderID: "O1"})
	if !errors.Is(err, giftcard.ErrAtomicUnavailable) {
		t.Fatalf("expected ErrAtomicUnavailable, got %v", err)
	}
}
