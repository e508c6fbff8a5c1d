package domain

// Product is a catalog entry resolvable by id. Prices are read live from the
// catalog at quote time, never cached on the ticket.
type Product struct {
	ID    string
	Name  string
	Price Money
}

// Employee is the slice of the staff directory this service needs for
// referral-code validation.
type Employee struct {
	ID           string
	Name         string
	ReferralCode string
}
