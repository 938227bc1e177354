package upsell

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/kafka"
)

const (
	defaultCooldown = 14 * 24 * time.Hour

	// Refusing twice in a row silences suggestions for the cooldown window.
	refusalsBeforeCooldown = 2
)

// Couchette classes are never suggested; an automatic bump into a sleeping
// compartment is not an upgrade most passengers want.
var excludedClasses = map[domain.SeatClass]struct{}{
	domain.SeatClassCouchetteStandard:  {},
	domain.SeatClassCouchetteRelax:     {},
	domain.SeatClassCouchetteBusiness:  {},
	domain.SeatClassCouchetteBusiness4: {},
}

type Notifier interface {
	Notify(key string, payload interface{})
}

// PriceClass is one fare class as offered for a concrete route, in the order
// the seller ranks them. ActionPrice marks a promotional price.
type PriceClass struct {
	SeatClassKey domain.SeatClass  `json:"seatClassKey"`
	Kind         domain.TicketKind `json:"kind"`
	Price        float64           `json:"price"`
	ActionPrice  *float64          `json:"actionPrice,omitempty"`
}

// Suggestion is a proposed bump to the next higher fare class.
type Suggestion struct {
	SeatClass domain.SeatClass `json:"seatClass"`
	Price     float64          `json:"price"`
	PriceDiff float64          `json:"priceDiff"`
}

// Advisor decides whether the class one position above the current selection
// is worth offering. It never mutates booking state; accepting a suggestion
// goes through the regular selection operations. The advisor owns its own
// suggestion memory and cooldown, scoped to the instance lifetime.
type Advisor struct {
	mu            sync.Mutex
	cooldownUntil time.Time
	refusals      int
	lastClass     domain.SeatClass
	lastPriceDiff float64

	cooldown time.Duration
	now      func() time.Time
	notifier Notifier
	logger   *logrus.Logger
}

type AdvisorOption func(*Advisor)

func WithCooldown(d time.Duration) AdvisorOption {
	return func(a *Advisor) {
		if d > 0 {
			a.cooldown = d
		}
	}
}

func WithNotifier(notifier Notifier) AdvisorOption {
	return func(a *Advisor) { a.notifier = notifier }
}

func WithClock(now func() time.Time) AdvisorOption {
	return func(a *Advisor) { a.now = now }
}

func NewAdvisor(logger *logrus.Logger, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		cooldown: defaultCooldown,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Evaluate returns the class directly above the current one when it qualifies
// as a reasonable upgrade, nil otherwise. Querying an expired cooldown clears
// it and resets the refusal counter.
func (a *Advisor) Evaluate(current domain.SeatClass, available []PriceClass, kind domain.TicketKind) *Suggestion {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cooldownUntil.IsZero() {
		if a.now().Before(a.cooldownUntil) {
			return nil
		}
		a.cooldownUntil = time.Time{}
		a.refusals = 0
	}

	if kind != domain.TicketKindSeat {
		return nil
	}

	idx := -1
	for i, pc := range available {
		if pc.SeatClassKey == current {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(available) {
		return nil
	}

	from := available[idx]
	to := available[idx+1]
	switch {
	case to.SeatClassKey == from.SeatClassKey:
		return nil
	case to.Kind != from.Kind:
		return nil
	case from.ActionPrice != nil || to.ActionPrice != nil:
		return nil
	case to.Price <= from.Price:
		return nil
	case to.Price > from.Price*1.5:
		return nil
	}
	if _, excluded := excludedClasses[to.SeatClassKey]; excluded {
		return nil
	}

	a.lastClass = to.SeatClassKey
	a.lastPriceDiff = to.Price - from.Price
	return &Suggestion{
		SeatClass: to.SeatClassKey,
		Price:     to.Price,
		PriceDiff: a.lastPriceDiff,
	}
}

// Refuse records a declined suggestion. The second refusal starts the
// cooldown; refusals past the second do not extend it.
func (a *Advisor) Refuse() {
	a.mu.Lock()
	a.refusals++
	if a.refusals == refusalsBeforeCooldown {
		a.cooldownUntil = a.now().Add(a.cooldown)
	}
	class, diff := a.lastClass, a.lastPriceDiff
	a.mu.Unlock()

	a.notify("refused", class, diff)
}

// Accept is telemetry only; the caller applies the upgrade through the state
// machine. The reported class and price delta come from the last suggestion.
func (a *Advisor) Accept() {
	a.mu.Lock()
	class, diff := a.lastClass, a.lastPriceDiff
	a.mu.Unlock()

	a.notify("accepted", class, diff)
}

func (a *Advisor) notify(outcome string, class domain.SeatClass, diff float64) {
	if a.notifier == nil {
		return
	}
	a.notifier.Notify("upsell_"+outcome, kafka.UpsellEvent{
		Outcome:   outcome,
		SeatClass: class,
		PriceDiff: diff,
		At:        a.now(),
	})
}
