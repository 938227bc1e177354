package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/remote"
)

// Gateway is the slice of the remote client the payment service uses.
type Gateway interface {
	ChargeFromCredit(ctx context.Context, payload remote.CreditChargePayload) error
	Pay(ctx context.Context, payload remote.PayPayload) (*remote.PayResponse, error)
	Authenticate(ctx context.Context) (*domain.UserProfile, error)
}

// Input selects the payment method for a set of freshly created tickets.
type Input struct {
	Email             string
	PaymentMethodCode string
	RememberCard      bool
	FromCredit        bool
}

// Result is a completed or initiated payment. Paid means the money moved;
// otherwise RedirectURL points at the external payment page.
type Result struct {
	Paid        bool
	RedirectURL string
}

type Service struct {
	gateway Gateway
	logger  *logrus.Logger
}

func NewService(gateway Gateway, logger *logrus.Logger) *Service {
	return &Service{gateway: gateway, logger: logger}
}

// BuyTickets pays for the given tickets. A business rejection from the
// payment backend (insufficient credit, expired reservation) is not an error:
// it returns nil, nil and the caller falls back to the checkout flow.
// Cancellation and transport failures are returned as errors.
func (s *Service) BuyTickets(ctx context.Context, tickets []domain.TicketRef, in Input) (*Result, error) {
	if len(tickets) == 0 {
		return nil, nil
	}

	if in.FromCredit {
		return s.chargeFromCredit(ctx, tickets)
	}
	return s.pay(ctx, tickets, in)
}

func (s *Service) chargeFromCredit(ctx context.Context, tickets []domain.TicketRef) (*Result, error) {
	err := s.gateway.ChargeFromCredit(ctx, remote.CreditChargePayload{Tickets: tickets})
	if err != nil {
		if rejected(ctx, err) {
			s.logger.WithError(err).Warn("credit charge rejected")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to charge from credit: %w", err)
	}

	// Refresh the profile so the caller sees the reduced credit balance.
	if _, err := s.gateway.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("charged but failed to refresh profile: %w", err)
	}
	return &Result{Paid: true}, nil
}

func (s *Service) pay(ctx context.Context, tickets []domain.TicketRef, in Input) (*Result, error) {
	payload := remote.PayPayload{
		CorrelationID:     correlationID(tickets),
		FormFields:        []remote.FormField{{FieldType: "EMAIL", FieldValue: in.Email}},
		PaymentMethodCode: in.PaymentMethodCode,
		RememberCard:      in.RememberCard,
		Tickets:           tickets,
	}
	resp, err := s.gateway.Pay(ctx, payload)
	if err != nil {
		if rejected(ctx, err) {
			s.logger.WithError(err).Warn("payment rejected")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	redirect := resp.PayRedirectURL
	if redirect == "" {
		redirect = resp.ServiceRedirectURL
	}
	if redirect == "" {
		// No redirect means the gateway settled the payment inline.
		return &Result{Paid: true}, nil
	}
	return &Result{RedirectURL: redirect}, nil
}

// rejected distinguishes a business rejection from transport trouble and
// caller cancellation.
func rejected(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var fault *remote.Fault
	return errors.As(err, &fault)
}

// correlationID keys a payment to its tickets, e.g. "tickets&SEAT=12&TIME=34".
func correlationID(tickets []domain.TicketRef) string {
	var b strings.Builder
	b.WriteString("tickets")
	for _, t := range tickets {
		b.WriteString("&")
		b.WriteString(string(t.Kind))
		b.WriteString("=")
		b.WriteString(strconv.FormatInt(t.ID, 10))
	}
	return b.String()
}
