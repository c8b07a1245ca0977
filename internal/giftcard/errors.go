package giftcard

import "errors"

// Ledger errors returned before any mutation takes place.
var (
	// ErrInvalidAmount indicates a non-positive value or redemption amount.
	ErrInvalidAmount = errors.New("giftcard: amount must be positive")
	// ErrMissingOrder indicates a redemption without an order reference.
	ErrMissingOrder = errors.New("giftcard: order id is required")
	// ErrInvalidExpiry indicates an expiry that is not in the future.
	ErrInvalidExpiry = errors.New("giftcard: expiry must be in the future")
	// ErrInvalidBatchSize indicates a batch size outside the configured bounds.
	ErrInvalidBatchSize = errors.New("giftcard: invalid batch size")
	// ErrInvalidCode indicates a supplied code that is not shaped like AAAA-BBBB-CCCC.
	ErrInvalidCode = errors.New("giftcard: code must look like AAAA-BBBB-CCCC")
	// ErrDuplicateCode indicates the code is already taken by another card.
	ErrDuplicateCode = errors.New("giftcard: duplicate code")
	// ErrCardNotFound indicates no card matches the id or code.
	ErrCardNotFound = errors.New("giftcard: card not found")
	// ErrAtomicUnavailable is returned by stores that cannot run the atomic redemption procedure.
	ErrAtomicUnavailable = errors.New("giftcard: atomic redemption unavailable")
)
