package upsell

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/kafka"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(key string, payload interface{}) {
	m.Called(key, payload)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func seatClasses() []PriceClass {
	return []PriceClass{
		{SeatClassKey: domain.SeatClassTrainLowCost, Kind: domain.TicketKindSeat, Price: 80},
		{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
		{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindSeat, Price: 140},
	}
}

func TestAdvisor_Evaluate_SuggestsNextClass(t *testing.T) {
	a := NewAdvisor(testLogger())

	s := a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat)

	assert.NotNil(t, s)
	assert.Equal(t, domain.SeatClassTrain1st, s.SeatClass)
	assert.Equal(t, 140.0, s.Price)
	assert.Equal(t, 40.0, s.PriceDiff)
}

func TestAdvisor_Evaluate_Ineligible(t *testing.T) {
	promo := 90.0

	testCases := []struct {
		name      string
		current   domain.SeatClass
		available []PriceClass
		kind      domain.TicketKind
	}{
		{
			name:      "non seat kind",
			current:   domain.SeatClassTrain2nd,
			available: seatClasses(),
			kind:      domain.TicketKindTime,
		},
		{
			name:      "current class is the highest offered",
			current:   domain.SeatClassTrain1st,
			available: seatClasses(),
			kind:      domain.TicketKindSeat,
		},
		{
			name:      "current class not offered at all",
			current:   domain.SeatClassC0,
			available: seatClasses(),
			kind:      domain.TicketKindSeat,
		},
		{
			name:    "next class is a different kind",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
				{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindUnreserved, Price: 120},
			},
			kind: domain.TicketKindSeat,
		},
		{
			name:    "next class is cheaper",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
				{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindSeat, Price: 90},
			},
			kind: domain.TicketKindSeat,
		},
		{
			name:    "next class costs the same",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
				{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindSeat, Price: 100},
			},
			kind: domain.TicketKindSeat,
		},
		{
			name:    "promotional price on the current class",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100, ActionPrice: &promo},
				{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindSeat, Price: 120},
			},
			kind: domain.TicketKindSeat,
		},
		{
			name:    "same class key repeated",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 110},
			},
			kind: domain.TicketKindSeat,
		},
		{
			name:    "more than one and a half times the price",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
				{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindSeat, Price: 151},
			},
			kind: domain.TicketKindSeat,
		},
		{
			name:    "couchette class excluded",
			current: domain.SeatClassTrain2nd,
			available: []PriceClass{
				{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
				{SeatClassKey: domain.SeatClassCouchetteRelax, Kind: domain.TicketKindSeat, Price: 130},
			},
			kind: domain.TicketKindSeat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAdvisor(testLogger())
			assert.Nil(t, a.Evaluate(tc.current, tc.available, tc.kind))
		})
	}
}

func TestAdvisor_Cooldown_AfterTwoRefusals(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAdvisor(testLogger(), WithClock(func() time.Time { return current }))

	assert.NotNil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))
	a.Refuse()
	assert.NotNil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))
	a.Refuse()

	assert.Nil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))

	// A third refusal inside the window must not push the deadline out.
	a.Refuse()
	current = current.Add(14*24*time.Hour + time.Minute)
	assert.NotNil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))
}

func TestAdvisor_Cooldown_ExpiryResetsRefusalCounter(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAdvisor(testLogger(), WithClock(func() time.Time { return current }), WithCooldown(time.Hour))

	a.Refuse()
	a.Refuse()
	assert.Nil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))

	current = current.Add(2 * time.Hour)
	assert.NotNil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))

	// Counter restarted: one more refusal alone must not re-arm the cooldown.
	a.Refuse()
	assert.NotNil(t, a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat))
}

func TestAdvisor_AcceptReportsLastSuggestion(t *testing.T) {
	notifier := &MockNotifier{}
	a := NewAdvisor(testLogger(), WithNotifier(notifier))

	notifier.On("Notify", "upsell_accepted", mock.MatchedBy(func(payload interface{}) bool {
		event, ok := payload.(kafka.UpsellEvent)
		return ok && event.Outcome == "accepted" &&
			event.SeatClass == domain.SeatClassTrain1st &&
			event.PriceDiff == 40.0
	})).Return().Once()

	a.Evaluate(domain.SeatClassTrain2nd, seatClasses(), domain.TicketKindSeat)
	a.Accept()

	notifier.AssertExpectations(t)
}
