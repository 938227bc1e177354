package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/kafka"
	"github.com/mzilka/tripbooker/internal/remote"
	"github.com/mzilka/tripbooker/internal/service/payment"
)

// ErrNoActiveTrip is returned when the saga is started without a trip.
var ErrNoActiveTrip = errors.New("no active trip to reserve")

// TicketAPI is the slice of the remote client the saga drives. SetToken
// installs the bearer token obtained from the first anonymous bucket so later
// buckets run as authenticated follow-ups.
type TicketAPI interface {
	CreateRegisteredSeatTickets(ctx context.Context, group remote.SeatTicketGroup) (*remote.SeatTicketData, error)
	CreateUnregisteredSeatTickets(ctx context.Context, group remote.SeatTicketGroup) (*remote.UnregisteredSeatTicketData, error)
	CreateRegisteredTimeTickets(ctx context.Context, group remote.TimeTicketGroup) ([]int64, error)
	CreateUnregisteredTimeTickets(ctx context.Context, group remote.UnregisteredTimeTicketGroup) (string, error)
	CreateRegisteredSroTickets(ctx context.Context, group remote.SroTicketGroup) error
	CreateUnregisteredSroTickets(ctx context.Context, group remote.SroTicketGroup) (string, error)
	UnpaidSroTickets(ctx context.Context) ([]remote.SroTicket, error)
	Authenticate(ctx context.Context) (*domain.UserProfile, error)
	SetToken(token string)
}

// Payments settles freshly created tickets.
type Payments interface {
	BuyTickets(ctx context.Context, tickets []domain.TicketRef, in payment.Input) (*payment.Result, error)
}

// Journal durably records which buckets committed server-side. Once a bucket
// is reserved it must never be silently forgotten, even if the saga faults
// later.
type Journal interface {
	RecordBucket(ctx context.Context, sagaID uuid.UUID, kind domain.TicketKind, tickets []domain.TicketRef) error
	FinishSaga(ctx context.Context, sagaID uuid.UUID, redirect domain.Redirect) error
}

// Machine is the slice of the booking state machine the saga touches.
type Machine interface {
	Trip() *domain.Trip
	Clear()
}

type Notifier interface {
	Notify(key string, payload interface{})
}

// Input is everything the saga needs beyond the trip itself.
type Input struct {
	Email             string
	Phone             string
	Passengers        []domain.PassengerFields
	ChargeImmediately bool
	Registered        bool
	AffiliateCode     string
}

// Outcome is the saga's terminal result. Tickets may be incomplete for
// anonymous time and open-seating purchases, whose endpoints do not echo ids.
type Outcome struct {
	Redirect domain.Redirect       `json:"redirect"`
	NewSeats []domain.SelectedSeat `json:"newSeats"`
	Tickets  []domain.TicketRef    `json:"tickets,omitempty"`
}

// StepError annotates a remote fault with the saga step that raised it.
// Buckets committed before the failing step stay committed server-side; they
// are journaled, not rolled back.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("reservation step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga turns a finalized trip into created tickets: one aggregate request per
// ticket-kind bucket, sequenced so an anonymous session's bearer token is
// available before the buckets that depend on it.
type Saga struct {
	api      TicketAPI
	payments Payments
	machine  Machine
	journal  Journal
	notifier Notifier
	logger   *logrus.Logger
}

func NewSaga(api TicketAPI, payments Payments, machine Machine, journal Journal, notifier Notifier, logger *logrus.Logger) *Saga {
	return &Saga{
		api:      api,
		payments: payments,
		machine:  machine,
		journal:  journal,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *Saga) Run(ctx context.Context, in Input) (*Outcome, error) {
	trip := s.machine.Trip()
	if trip == nil || (trip.There == nil && trip.Back == nil) {
		return nil, ErrNoActiveTrip
	}

	sagaID := uuid.New()
	p := newPlan(trip)

	log := s.logger.WithFields(logrus.Fields{
		"saga_id":    sagaID,
		"registered": in.Registered,
		"seat_legs":  len(p.seat),
		"time_legs":  len(p.timeBased),
		"sro_legs":   len(p.sro),
	})
	log.Info("reservation saga started")

	var outcome *Outcome
	var err error
	if in.Registered {
		outcome, err = s.runRegistered(ctx, sagaID, trip.Connection, p, in)
	} else {
		outcome, err = s.runAnonymous(ctx, sagaID, trip.Connection, p, in)
	}
	if err != nil {
		log.WithError(err).Error("reservation saga failed")
		return nil, err
	}
	log.WithField("redirect", outcome.Redirect).Info("reservation saga finished")
	return outcome, nil
}

func (s *Saga) runRegistered(ctx context.Context, sagaID uuid.UUID, conn domain.Connection, p plan, in Input) (*Outcome, error) {
	var tickets []domain.TicketRef
	newSeats := make([]domain.SelectedSeat, 0)

	if len(p.seat) > 0 {
		data, err := s.api.CreateRegisteredSeatTickets(ctx, seatTicketGroup(p.seat, in))
		if err != nil {
			return s.fail(ctx, sagaID, "seat", err)
		}
		seatTickets := s.parseTicketRefs(domain.TicketKindSeat, data.Tickets)
		s.recordBucket(ctx, sagaID, domain.TicketKindSeat, seatTickets)
		tickets = append(tickets, seatTickets...)
		newSeats = reconcileSeats(p.requestedSeats, assignedSeats(data.Tickets))

		// A fully discounted seat reservation needs no payment; buckets the
		// payment step would gate are skipped.
		if p.seatPrice == 0 {
			return s.finish(ctx, sagaID, domain.RedirectTickets, newSeats, tickets, in, true)
		}

		if in.ChargeImmediately {
			return s.charge(ctx, sagaID, seatTickets, newSeats, tickets, in)
		}
	}

	if len(p.timeBased) > 0 {
		ids, err := s.api.CreateRegisteredTimeTickets(ctx, registeredTimeTicketGroup(conn, p.timeBased))
		if err != nil {
			return s.fail(ctx, sagaID, "time", err)
		}
		timeTickets := ticketRefs(domain.TicketKindTime, ids)
		s.recordBucket(ctx, sagaID, domain.TicketKindTime, timeTickets)
		tickets = append(tickets, timeTickets...)

		if in.ChargeImmediately {
			return s.charge(ctx, sagaID, timeTickets, newSeats, tickets, in)
		}
	}

	if len(p.sro) > 0 {
		if err := s.api.CreateRegisteredSroTickets(ctx, sroTicketGroup(p.sro, in)); err != nil {
			return s.fail(ctx, sagaID, "unreserved", err)
		}
		// The endpoint does not echo ids; the latest unpaid ticket is the one
		// it just created.
		sroTickets := s.lookupSroTickets(ctx)
		s.recordBucket(ctx, sagaID, domain.TicketKindUnreserved, sroTickets)
		tickets = append(tickets, sroTickets...)

		if in.ChargeImmediately && len(sroTickets) > 0 {
			return s.charge(ctx, sagaID, sroTickets, newSeats, tickets, in)
		}
	}

	redirect := domain.RedirectCart
	if p.totalLegPrice == 0 {
		redirect = domain.RedirectTickets
	}
	return s.finish(ctx, sagaID, redirect, newSeats, tickets, in, true)
}

// charge settles one bucket immediately and ends the saga either way: a paid
// bucket is a completed purchase, so later buckets are never created, and a
// business rejection routes to checkout with the trip kept for a retry.
func (s *Saga) charge(ctx context.Context, sagaID uuid.UUID, bucket []domain.TicketRef, newSeats []domain.SelectedSeat, tickets []domain.TicketRef, in Input) (*Outcome, error) {
	result, err := s.payments.BuyTickets(ctx, bucket, payment.Input{Email: in.Email, FromCredit: true})
	if err != nil {
		return s.fail(ctx, sagaID, "payment", err)
	}
	if result == nil || !result.Paid {
		return s.finish(ctx, sagaID, domain.RedirectCheckout, newSeats, tickets, in, false)
	}
	return s.finish(ctx, sagaID, domain.RedirectTickets, newSeats, tickets, in, true)
}

func (s *Saga) runAnonymous(ctx context.Context, sagaID uuid.UUID, conn domain.Connection, p plan, in Input) (*Outcome, error) {
	var tickets []domain.TicketRef
	newSeats := make([]domain.SelectedSeat, 0)
	authenticated := false

	if len(p.seat) > 0 {
		data, err := s.api.CreateUnregisteredSeatTickets(ctx, seatTicketGroup(p.seat, in))
		if err != nil {
			return s.fail(ctx, sagaID, "seat", err)
		}
		if err := s.installToken(ctx, data.Token); err != nil {
			return s.fail(ctx, sagaID, "authenticate", err)
		}
		authenticated = true
		seatTickets := s.parseTicketRefs(domain.TicketKindSeat, data.Tickets)
		s.recordBucket(ctx, sagaID, domain.TicketKindSeat, seatTickets)
		tickets = append(tickets, seatTickets...)
		newSeats = reconcileSeats(p.requestedSeats, assignedSeats(data.Tickets))
	}

	for _, ref := range p.timeBased {
		if !authenticated {
			token, err := s.api.CreateUnregisteredTimeTickets(ctx, unregisteredTimeTicketGroup(conn, ref, in.Email))
			if err != nil {
				return s.fail(ctx, sagaID, "time", err)
			}
			if err := s.installToken(ctx, token); err != nil {
				return s.fail(ctx, sagaID, "authenticate", err)
			}
			authenticated = true
			// Anonymous time tickets are created under the new session but
			// their ids are not echoed back.
			s.recordBucket(ctx, sagaID, domain.TicketKindTime, nil)
			continue
		}
		ids, err := s.api.CreateRegisteredTimeTickets(ctx, registeredTimeTicketGroup(conn, []legRef{ref}))
		if err != nil {
			return s.fail(ctx, sagaID, "time", err)
		}
		timeTickets := ticketRefs(domain.TicketKindTime, ids)
		s.recordBucket(ctx, sagaID, domain.TicketKindTime, timeTickets)
		tickets = append(tickets, timeTickets...)
	}

	if len(p.sro) > 0 {
		if !authenticated {
			token, err := s.api.CreateUnregisteredSroTickets(ctx, sroTicketGroup(p.sro, in))
			if err != nil {
				return s.fail(ctx, sagaID, "unreserved", err)
			}
			if err := s.installToken(ctx, token); err != nil {
				return s.fail(ctx, sagaID, "authenticate", err)
			}
			s.recordBucket(ctx, sagaID, domain.TicketKindUnreserved, nil)
		} else {
			if err := s.api.CreateRegisteredSroTickets(ctx, sroTicketGroup(p.sro, in)); err != nil {
				return s.fail(ctx, sagaID, "unreserved", err)
			}
			sroTickets := s.lookupSroTickets(ctx)
			s.recordBucket(ctx, sagaID, domain.TicketKindUnreserved, sroTickets)
			tickets = append(tickets, sroTickets...)
		}
	}

	redirect := domain.RedirectCart
	if p.totalLegPrice == 0 {
		redirect = domain.RedirectTickets
	}
	return s.finish(ctx, sagaID, redirect, newSeats, tickets, in, true)
}

// installToken switches the session onto the token returned by the first
// anonymous bucket, before any later bucket is issued. The follow-up
// authentication must succeed; continuing without a confirmed session would
// strand the remaining buckets.
func (s *Saga) installToken(ctx context.Context, token string) error {
	s.api.SetToken(token)
	if _, err := s.api.Authenticate(ctx); err != nil {
		return err
	}
	return nil
}

// lookupSroTickets fetches the id of the open-seating ticket just created.
// Failure here costs only the id, not the reservation, so it is not fatal.
func (s *Saga) lookupSroTickets(ctx context.Context) []domain.TicketRef {
	unpaid, err := s.api.UnpaidSroTickets(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to look up created open-seating ticket")
		return nil
	}
	if len(unpaid) == 0 {
		return nil
	}
	return []domain.TicketRef{{Kind: domain.TicketKindUnreserved, ID: unpaid[0].SroTicketID}}
}

func (s *Saga) recordBucket(ctx context.Context, sagaID uuid.UUID, kind domain.TicketKind, tickets []domain.TicketRef) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordBucket(ctx, sagaID, kind, tickets); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"saga_id": sagaID,
			"kind":    kind,
		}).Error("failed to journal committed bucket")
	}
}

// finish records the terminal redirect and publishes the purchase event.
// clearTrip is false only for the checkout redirect, which must keep the trip
// so payment can be retried.
func (s *Saga) finish(ctx context.Context, sagaID uuid.UUID, redirect domain.Redirect, newSeats []domain.SelectedSeat, tickets []domain.TicketRef, in Input, clearTrip bool) (*Outcome, error) {
	if clearTrip {
		s.machine.Clear()
	}
	s.finishJournal(ctx, sagaID, redirect)
	if s.notifier != nil {
		s.notifier.Notify(sagaID.String(), kafka.PurchaseEvent{
			SagaID:   sagaID.String(),
			Redirect: redirect,
			Tickets:  tickets,
			Email:    in.Email,
			NewSeats: len(newSeats),
			At:       time.Now(),
		})
	}
	return &Outcome{Redirect: redirect, NewSeats: newSeats, Tickets: tickets}, nil
}

func (s *Saga) fail(ctx context.Context, sagaID uuid.UUID, step string, err error) (*Outcome, error) {
	s.finishJournal(ctx, sagaID, domain.RedirectNone)
	return nil, &StepError{Step: step, Err: err}
}

func (s *Saga) finishJournal(ctx context.Context, sagaID uuid.UUID, redirect domain.Redirect) {
	if s.journal == nil {
		return
	}
	if err := s.journal.FinishSaga(ctx, sagaID, redirect); err != nil {
		s.logger.WithError(err).WithField("saga_id", sagaID).Error("failed to journal saga outcome")
	}
}

func (s *Saga) parseTicketRefs(kind domain.TicketKind, created []remote.CreatedTicket) []domain.TicketRef {
	out := make([]domain.TicketRef, 0, len(created))
	for _, ticket := range created {
		id, err := strconv.ParseInt(ticket.ID, 10, 64)
		if err != nil {
			s.logger.WithField("ticket_id", ticket.ID).Warn("skipping non-numeric ticket id")
			continue
		}
		out = append(out, domain.TicketRef{Kind: kind, ID: id})
	}
	return out
}

func ticketRefs(kind domain.TicketKind, ids []int64) []domain.TicketRef {
	out := make([]domain.TicketRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.TicketRef{Kind: kind, ID: id})
	}
	return out
}
