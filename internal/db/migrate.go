package db

import (
	"fmt"

	"github.com/closetbyera/giftledger/internal/models"
	"gorm.io/gorm"
)

// RedeemProcedureName is the stored procedure the ledger prefers for redemption.
const RedeemProcedureName = "redeem_gift_card_atomic"

// dropLegacyRedeemProcedureSQL removes the overload that predates redeemed_by.
const dropLegacyRedeemProcedureSQL = `DROP FUNCTION IF EXISTS redeem_gift_card_atomic(text, bigint, text)`

// redeemProcedureSQL locks the card row, validates it and records the usage in one transaction.
const redeemProcedureSQL = `
CREATE OR REPLACE FUNCTION redeem_gift_card_atomic(p_code text, p_amount bigint, p_order_id text, p_redeemed_by bigint DEFAULT NULL)
RETURNS TABLE(success boolean, message text, new_balance bigint)
LANGUAGE plpgsql AS $$
DECLARE
	v_card gift_cards%ROWTYPE;
BEGIN
	IF p_amount IS NULL OR p_amount <= 0 THEN
		RAISE EXCEPTION 'amount must be positive';
	END IF;

	SELECT * INTO v_card FROM gift_cards WHERE code = p_code FOR UPDATE;
	IF NOT FOUND THEN
		RETURN QUERY SELECT false, 'not_found'::text, 0::bigint;
		RETURN;
	END IF;
	IF NOT v_card.is_active THEN
		RETURN QUERY SELECT false, 'inactive'::text, v_card.balance;
		RETURN;
	END IF;
	IF v_card.expires_at IS NOT NULL AND v_card.expires_at <= now() THEN
		RETURN QUERY SELECT false, 'expired'::text, v_card.balance;
		RETURN;
	END IF;
	IF v_card.balance < p_amount THEN
		RETURN QUERY SELECT false, 'insufficient_balance'::text, v_card.balance;
		RETURN;
	END IF;

	UPDATE gift_cards SET balance = balance - p_amount WHERE id = v_card.id;
	INSERT INTO gift_card_usage (gift_card_id, order_id, amount_used, redeemed_by, created_at)
	VALUES (v_card.id, p_order_id, p_amount, p_redeemed_by, now());

	RETURN QUERY SELECT true, 'ok'::text, v_card.balance - p_amount;
END;
$$;
`

// Migrate creates or updates the ledger schema. On PostgreSQL it also installs
// the atomic redemption procedure; other dialects run without it.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Customer{},
		&models.GiftCard{},
		&models.GiftCardUsage{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: auto migrate: %w", errMigrate)
	}
	if IsPostgres(conn) {
		if errDrop := conn.Exec(dropLegacyRedeemProcedureSQL).Error; errDrop != nil {
			return fmt.Errorf("db: drop legacy %s: %w", RedeemProcedureName, errDrop)
		}
		if errProc := conn.Exec(redeemProcedureSQL).Error; errProc != nil {
			return fmt.Errorf("db: install %s: %w", RedeemProcedureName, errProc)
		}
	}
	return nil
}
