package giftcard

// Reason explains why a redemption was rejected.
type Reason string

// Rejection reasons. The string values are shared with the redemption procedure.
const (
	ReasonNotFound            Reason = "not_found"
	ReasonInactive            Reason = "inactive"
	ReasonExpired             Reason = "expired"
	ReasonInsufficientBalance Reason = "insufficient_balance"
	ReasonConcurrentConflict  Reason = "concurrent_conflict"
)

// Redemption paths.
const (
	PathAtomic   = "atomic"
	PathFallback = "fallback"
)

// Outcome is the result of a redemption attempt. A rejected outcome leaves the
// card and its usage history untouched.
type Outcome struct {
	Redeemed   bool
	NewBalance int64
	Reason     Reason
	Path       string
}

// Transient reports whether the caller may retry the redemption as is.
func (o Outcome) Transient() bool {
	return !o.Redeemed && o.Reason == ReasonConcurrentConflict
}

func redeemed(path string, newBalance int64) Outcome {
	return Outcome{Redeemed: true, NewBalance: newBalance, Path: path}
}

func rejected(path string, reason Reason) Outcome {
	return Outcome{Reason: reason, Path: path}
}

// parseReason maps a procedure message onto a known reason.
func parseReason(message string) (Reason, bool) {
	switch Reason(message) {
	case ReasonNotFound, ReasonInactive, ReasonExpired, ReasonInsufficientBalance, ReasonConcurrentConflict:
		return Reason(message), true
	default:
		return "", false
	}
}
