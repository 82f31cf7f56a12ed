package budget

// Budget is a snapshot of the oracle token budget for one period.
type Budget struct {
	tokensLimit int
	tokensUsed  int
	resetsAt    int64 // unix millis, converted to ISO 8601 at transport layer
}

// New creates a Budget snapshot. A zero limit means unlimited.
func New(limit, used int, resetsAt int64) Budget {
	return Budget{
		tokensLimit: limit,
		tokensUsed:  used,
		resetsAt:    resetsAt,
	}
}

// TokensLimit returns the token cap (0 when unlimited).
func (b Budget) TokensLimit() int { return b.tokensLimit }

// TokensUsed returns tokens consumed in the period.
func (b Budget) TokensUsed() int { return b.tokensUsed }

// TokensRemaining returns tokens left, or -1 when unlimited.
func (b Budget) TokensRemaining() int {
	if b.IsUnlimited() {
		return -1
	}
	return max(b.tokensLimit-b.tokensUsed, 0)
}

// IsUnlimited reports whether no cap is configured.
func (b Budget) IsUnlimited() bool { return b.tokensLimit <= 0 }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool {
	return !b.IsUnlimited() && b.tokensUsed >= b.tokensLimit
}

// ResetsAt returns the reset timestamp (unix millis), 0 for the total period.
func (b Budget) ResetsAt() int64 { return b.resetsAt }
