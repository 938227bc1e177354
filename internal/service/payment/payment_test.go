package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/remote"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ChargeFromCredit(ctx context.Context, payload remote.CreditChargePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockGateway) Pay(ctx context.Context, payload remote.PayPayload) (*remote.PayResponse, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.PayResponse), args.Error(1)
}

func (m *MockGateway) Authenticate(ctx context.Context) (*domain.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func seatTickets() []domain.TicketRef {
	return []domain.TicketRef{
		{Kind: domain.TicketKindSeat, ID: 12},
		{Kind: domain.TicketKindTime, ID: 34},
	}
}

func TestService_BuyTickets_FromCredit(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())
	ctx := context.Background()

	gateway.On("ChargeFromCredit", ctx, remote.CreditChargePayload{Tickets: seatTickets()}).Return(nil).Once()
	gateway.On("Authenticate", ctx).Return(&domain.UserProfile{CreditPrice: 10}, nil).Once()

	result, err := service.BuyTickets(ctx, seatTickets(), Input{FromCredit: true})

	assert.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Empty(t, result.RedirectURL)
	gateway.AssertExpectations(t)
}

func TestService_BuyTickets_CreditRejectedIsNotAnError(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())

	fault := &remote.Fault{Endpoint: "/payments/credit/charge", Status: 400, Message: "insufficient credit"}
	gateway.On("ChargeFromCredit", mock.Anything, mock.Anything).Return(fault).Once()

	result, err := service.BuyTickets(context.Background(), seatTickets(), Input{FromCredit: true})

	assert.NoError(t, err)
	assert.Nil(t, result)
	gateway.AssertNotCalled(t, "Authenticate", mock.Anything)
}

func TestService_BuyTickets_CancellationIsAnError(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gateway.On("ChargeFromCredit", mock.Anything, mock.Anything).Return(ctx.Err()).Once()

	result, err := service.BuyTickets(ctx, seatTickets(), Input{FromCredit: true})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestService_BuyTickets_ExternalPayment(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())
	ctx := context.Background()

	gateway.On("Pay", ctx, mock.MatchedBy(func(payload remote.PayPayload) bool {
		return payload.CorrelationID == "tickets&SEAT=12&TIME=34" &&
			payload.PaymentMethodCode == "CARD" &&
			len(payload.FormFields) == 1 &&
			payload.FormFields[0].FieldValue == "rider@example.com"
	})).Return(&remote.PayResponse{PayRedirectURL: "https://pay.example/p/1"}, nil).Once()

	result, err := service.BuyTickets(ctx, seatTickets(), Input{
		Email:             "rider@example.com",
		PaymentMethodCode: "CARD",
	})

	assert.NoError(t, err)
	assert.False(t, result.Paid)
	assert.Equal(t, "https://pay.example/p/1", result.RedirectURL)
	gateway.AssertExpectations(t)
}

func TestService_BuyTickets_InlineSettlement(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())

	gateway.On("Pay", mock.Anything, mock.Anything).Return(&remote.PayResponse{}, nil).Once()

	result, err := service.BuyTickets(context.Background(), seatTickets(), Input{PaymentMethodCode: "CREDIT"})

	assert.NoError(t, err)
	assert.True(t, result.Paid)
}

func TestService_BuyTickets_NoTickets(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())

	result, err := service.BuyTickets(context.Background(), nil, Input{})

	assert.NoError(t, err)
	assert.Nil(t, result)
	gateway.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything)
}

func TestService_BuyTickets_TransportErrorPropagates(t *testing.T) {
	gateway := &MockGateway{}
	service := NewService(gateway, testLogger())

	gateway.On("Pay", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	result, err := service.BuyTickets(context.Background(), seatTickets(), Input{})

	assert.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.Nil(t, result)
}
