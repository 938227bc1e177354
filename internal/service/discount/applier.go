package discount

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/remote"
	"github.com/mzilka/tripbooker/internal/service/bookingstate"
)

// Verifier checks a discount against the remote pricing service and returns
// the authoritative discounted price.
type Verifier interface {
	VerifyPercentualDiscount(ctx context.Context, id int64, req remote.DiscountVerifyRequest) (*remote.DiscountVerification, error)
	VerifyCodeDiscount(ctx context.Context, code string, req remote.DiscountVerifyRequest) (*remote.DiscountVerification, error)
}

// Machine is the slice of the booking state machine the applier needs.
type Machine interface {
	Leg(dir domain.Direction) *domain.Leg
	CommitDiscount(dir domain.Direction, discountedPrice, amount float64, id bookingstate.DiscountIdentifier) bool
}

// Result reports one applied discount.
type Result struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	DiscountedPrice float64 `json:"discountedPrice"`
}

// Applier verifies a discount remotely and, only on success, commits the new
// price together with the discount identifier in one state-machine step.
type Applier struct {
	verifier Verifier
	machine  Machine
	logger   *logrus.Logger
}

func NewApplier(verifier Verifier, machine Machine, logger *logrus.Logger) *Applier {
	return &Applier{verifier: verifier, machine: machine, logger: logger}
}

// ApplyPercentual applies one percentual discount id to the addressed leg.
// Without a leg the call is a no-op and returns nil, nil.
func (a *Applier) ApplyPercentual(ctx context.Context, dir domain.Direction, id int64) (*Result, error) {
	leg := a.machine.Leg(dir)
	if leg == nil || leg.Price == nil {
		return nil, nil
	}
	verification, err := a.verifier.VerifyPercentualDiscount(ctx, id, verifyRequest(leg))
	if err != nil {
		return nil, fmt.Errorf("failed to verify percentual discount %d: %w", id, err)
	}
	return a.commit(dir, leg, verification, bookingstate.PercentualDiscountID(id))
}

// ApplyCode applies a discount code to the addressed leg.
func (a *Applier) ApplyCode(ctx context.Context, dir domain.Direction, code string) (*Result, error) {
	leg := a.machine.Leg(dir)
	if leg == nil || leg.Price == nil {
		return nil, nil
	}
	verification, err := a.verifier.VerifyCodeDiscount(ctx, code, verifyRequest(leg))
	if err != nil {
		return nil, fmt.Errorf("failed to verify discount code: %w", err)
	}
	return a.commit(dir, leg, verification, bookingstate.CodeDiscountID(code))
}

func (a *Applier) commit(dir domain.Direction, leg *domain.Leg, v *remote.DiscountVerification, id bookingstate.DiscountIdentifier) (*Result, error) {
	amount := leg.PriceValue() - v.DiscountedTicketPrice
	if amount < 0 {
		amount = 0
	}
	if !a.machine.CommitDiscount(dir, v.DiscountedTicketPrice, amount, id) {
		// The leg vanished between verification and commit.
		a.logger.WithField("direction", dir).Warn("discount verified but leg is gone, nothing committed")
		return nil, nil
	}
	return &Result{
		Amount:          amount,
		Currency:        v.Currency,
		DiscountedPrice: v.DiscountedTicketPrice,
	}, nil
}

// verifyRequest rebuilds the pricing context of a leg the way the create
// endpoints will later see it.
func verifyRequest(leg *domain.Leg) remote.DiscountVerifyRequest {
	passengers := make([]remote.PassengerRequest, 0, len(leg.Tariffs))
	for _, tariff := range leg.Tariffs {
		passengers = append(passengers, remote.PassengerRequest{Tariff: tariff})
	}
	return remote.DiscountVerifyRequest{
		Passengers:  passengers,
		Route:       routeSpec(leg),
		TicketPrice: leg.PriceValue(),
	}
}

func routeSpec(leg *domain.Leg) remote.RouteSpec {
	sections := make([]remote.SectionPick, 0, len(leg.Sections))
	for _, s := range leg.Sections {
		sections = append(sections, remote.SectionPick{
			Section: remote.RouteSection{
				SectionID:     s.SectionID,
				FromStationID: s.FromStationID,
				ToStationID:   s.ToStationID,
			},
			SelectedSeats: s.SelectedSeats,
		})
	}
	return remote.RouteSpec{
		RouteID:     leg.RouteID,
		PriceSource: leg.PriceSource,
		SeatClass:   leg.SeatClass,
		Sections:    sections,
	}
}
