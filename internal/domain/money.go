package domain

// Money is an amount in minor currency units (cents). Signed so that ad-hoc
// adjustments and balance arithmetic can go negative; persisted as BIGINT.
type Money int64

// PercentOf returns pct percent of amount, rounded half up.
func PercentOf(amount Money, pct int) Money {
	if pct <= 0 || amount <= 0 {
		return 0
	}
	return Money((int64(amount)*int64(pct) + 50) / 100)
}
