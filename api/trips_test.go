package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/service/bookingstate"
	"github.com/mzilka/tripbooker/internal/service/discount"
)

type MockDiscountApplier struct {
	mock.Mock
}

func (m *MockDiscountApplier) ApplyPercentual(ctx context.Context, dir domain.Direction, id int64) (*discount.Result, error) {
	args := m.Called(ctx, dir, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.Result), args.Error(1)
}

func (m *MockDiscountApplier) ApplyCode(ctx context.Context, dir domain.Direction, code string) (*discount.Result, error) {
	args := m.Called(ctx, dir, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.Result), args.Error(1)
}

func newTripMachine() *bookingstate.Machine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return bookingstate.NewMachine(logger)
}

func jsonRequest(method, path string, payload interface{}) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTripHandler_start(t *testing.T) {
	handler := NewTripHandler(newTripMachine(), &MockDiscountApplier{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/trips", domain.Connection{
		FromLocationID:   100,
		FromLocationType: "CITY",
		ToLocationID:     200,
		ToLocationType:   "CITY",
		DepartureDate:    "2026-09-01",
	})

	handler.start(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var trip domain.Trip
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, int64(100), trip.Connection.FromLocationID)
	assert.False(t, trip.IsReturn)
}

func TestTripHandler_get_NoTrip(t *testing.T) {
	handler := NewTripHandler(newTripMachine(), &MockDiscountApplier{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/trips", nil)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTripHandler_selectRoute(t *testing.T) {
	machine := newTripMachine()
	machine.StartTrip(domain.Connection{DepartureDate: "2026-09-01"})
	handler := NewTripHandler(machine, &MockDiscountApplier{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "direction", Value: "there"}}
	c.Request = jsonRequest("POST", "/trips/there/route", routeRequest{
		Kind:    domain.TicketKindSeat,
		RouteID: "R-1",
		Tariffs: []domain.Tariff{domain.TariffRegular},
	})

	handler.selectRoute(c)

	assert.Equal(t, http.StatusOK, w.Code)
	leg := machine.Leg(domain.DirectionThere)
	assert.NotNil(t, leg)
	assert.Equal(t, domain.StateRouteSelected, leg.State)
	assert.Equal(t, "R-1", leg.RouteID)
}

func TestTripHandler_invalidDirection(t *testing.T) {
	handler := NewTripHandler(newTripMachine(), &MockDiscountApplier{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "direction", Value: "sideways"}}
	c.Request = jsonRequest("POST", "/trips/sideways/route", routeRequest{})

	handler.selectRoute(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTripHandler_price(t *testing.T) {
	machine := newTripMachine()
	machine.StartTrip(domain.Connection{DepartureDate: "2026-09-01"})
	machine.SelectRoute(domain.DirectionThere, bookingstate.RouteSelection{
		Kind: domain.TicketKindSeat, RouteID: "R-1",
		Tariffs: []domain.Tariff{domain.TariffRegular},
	})
	machine.SelectClass(domain.DirectionThere, bookingstate.ClassSelection{
		SeatClass: domain.SeatClassTrain2nd, Price: 120,
	})
	handler := NewTripHandler(machine, &MockDiscountApplier{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/trips/price", nil)

	handler.price(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var totals map[string]float64
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.Equal(t, 120.0, totals["totalPrice"])
}

func TestTripHandler_applyCodeDiscount(t *testing.T) {
	applier := &MockDiscountApplier{}
	handler := NewTripHandler(newTripMachine(), applier)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "direction", Value: "there"}}
	c.Request = jsonRequest("POST", "/trips/there/discount/code", codeDiscountRequest{Code: "SUMMER"})

	applier.On("ApplyCode", mock.Anything, domain.DirectionThere, "SUMMER").
		Return(&discount.Result{Amount: 15, DiscountedPrice: 85, Currency: "EUR"}, nil).Once()

	handler.applyCodeDiscount(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var result discount.Result
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 85.0, result.DiscountedPrice)
	applier.AssertExpectations(t)
}

func TestTripHandler_applyCodeDiscount_NoLeg(t *testing.T) {
	applier := &MockDiscountApplier{}
	handler := NewTripHandler(newTripMachine(), applier)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "direction", Value: "there"}}
	c.Request = jsonRequest("POST", "/trips/there/discount/code", codeDiscountRequest{Code: "SUMMER"})

	applier.On("ApplyCode", mock.Anything, domain.DirectionThere, "SUMMER").Return(nil, nil).Once()

	handler.applyCodeDiscount(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTripHandler_applyPercentualDiscount_RemoteFault(t *testing.T) {
	applier := &MockDiscountApplier{}
	handler := NewTripHandler(newTripMachine(), applier)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "direction", Value: "back"}}
	c.Request = jsonRequest("POST", "/trips/back/discount/percentual", percentualDiscountRequest{ID: 7})

	applier.On("ApplyPercentual", mock.Anything, domain.DirectionBack, int64(7)).
		Return(nil, errors.New("discount expired")).Once()

	handler.applyPercentualDiscount(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTripHandler_clearDirection(t *testing.T) {
	machine := newTripMachine()
	machine.StartTrip(domain.Connection{DepartureDate: "2026-09-01"})
	machine.SelectRoute(domain.DirectionThere, bookingstate.RouteSelection{
		Kind: domain.TicketKindSeat, RouteID: "R-1",
		Tariffs: []domain.Tariff{domain.TariffRegular},
	})
	handler := NewTripHandler(machine, &MockDiscountApplier{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "direction", Value: "there"}}
	c.Request = httptest.NewRequest("DELETE", "/trips/there", nil)

	handler.clearDirection(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, machine.Trip())
}
