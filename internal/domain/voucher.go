package domain

import "time"

// Voucher is a code-activated flat discount owned by a promo event. Its code
// is unique within the owning event.
type Voucher struct {
	ID                   string
	EventID              string
	Code                 string
	DiscountAmount       Money
	ApplicableProductIDs []string
	Uses                 int
	MaxUses              *int
}

// Exhausted reports whether the voucher has reached its usage cap.
func (v *Voucher) Exhausted() bool {
	return v.MaxUses != nil && v.Uses >= *v.MaxUses
}

// AppliesTo reports whether the voucher covers at least one of the given
// products. An empty applicable set means the voucher applies to everything.
func (v *Voucher) AppliesTo(productIDs []string) bool {
	if len(v.ApplicableProductIDs) == 0 {
		return true
	}
	for _, want := range v.ApplicableProductIDs {
		for _, have := range productIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// PromoEvent is a dated promotion window owning zero or more vouchers. The
// window is a closed interval at calendar-day granularity.
type PromoEvent struct {
	ID        string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Vouchers  []Voucher
}

// Covers reports whether the given instant falls inside the event window,
// comparing calendar days rather than timestamps.
func (e *PromoEvent) Covers(at time.Time) bool {
	day := truncateToDay(at)
	return !day.Before(truncateToDay(e.StartDate)) && !day.After(truncateToDay(e.EndDate))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
