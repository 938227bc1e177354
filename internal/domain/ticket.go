package domain

// TicketRef identifies one created ticket together with the kind it was
// reserved as, which is what the payment endpoints key on.
type TicketRef struct {
	Kind TicketKind `json:"type"`
	ID   int64      `json:"id"`
}

// Redirect is the saga's terminal routing decision for the caller's UI.
type Redirect string

const (
	// RedirectNone signals a fault: nothing to show beyond the error.
	RedirectNone Redirect = ""
	// RedirectTickets means the purchase finished; go to the ticket list.
	RedirectTickets Redirect = "tickets"
	// RedirectCheckout means tickets exist but immediate charge failed.
	RedirectCheckout Redirect = "checkout"
	// RedirectCart means tickets exist and still have to be paid.
	RedirectCart Redirect = "cart"
)

// UserProfile is the subset of the remote account data the core reads back
// after authentication.
type UserProfile struct {
	AccountCode string  `json:"accountCode"`
	Email       string  `json:"email"`
	Currency    string  `json:"currency"`
	CreditPrice float64 `json:"creditPrice"`
}
