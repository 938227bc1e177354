package email

import (
	"context"
	"fmt"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

// Send delivers a purchase confirmation. Checkout and cart outcomes still owe
// payment, so the wording differs from a completed purchase.
func (s *Sender) Send(ctx context.Context, event kafka.PurchaseEvent) error {
	if event.Email == "" {
		return nil
	}
	switch event.Redirect {
	case domain.RedirectTickets:
		fmt.Printf("send email to %s: purchase %s complete, %d tickets\n", event.Email, event.SagaID, len(event.Tickets))
	case domain.RedirectCheckout, domain.RedirectCart:
		fmt.Printf("send email to %s: reservation %s created, payment pending\n", event.Email, event.SagaID)
	}
	return nil
}
