package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/service/upsell"
)

type MockUpsellAdvisor struct {
	mock.Mock
}

func (m *MockUpsellAdvisor) Evaluate(current domain.SeatClass, available []upsell.PriceClass, kind domain.TicketKind) *upsell.Suggestion {
	args := m.Called(current, available, kind)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*upsell.Suggestion)
}

func (m *MockUpsellAdvisor) Refuse() {
	m.Called()
}

func (m *MockUpsellAdvisor) Accept() {
	m.Called()
}

func TestUpsellHandler_evaluate(t *testing.T) {
	advisor := &MockUpsellAdvisor{}
	handler := NewUpsellHandler(advisor)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/upsell/evaluate", evaluateRequest{
		CurrentClass: domain.SeatClassTrain2nd,
		TicketKind:   domain.TicketKindSeat,
		Classes: []upsell.PriceClass{
			{SeatClassKey: domain.SeatClassTrain2nd, Kind: domain.TicketKindSeat, Price: 100},
			{SeatClassKey: domain.SeatClassTrain1st, Kind: domain.TicketKindSeat, Price: 140},
		},
	})

	advisor.On("Evaluate", domain.SeatClassTrain2nd, mock.Anything, domain.TicketKindSeat).
		Return(&upsell.Suggestion{SeatClass: domain.SeatClassTrain1st, Price: 140, PriceDiff: 40}).Once()

	handler.evaluate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Suggestion *upsell.Suggestion `json:"suggestion"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotNil(t, body.Suggestion)
	assert.Equal(t, domain.SeatClassTrain1st, body.Suggestion.SeatClass)
}

func TestUpsellHandler_evaluate_NoSuggestion(t *testing.T) {
	advisor := &MockUpsellAdvisor{}
	handler := NewUpsellHandler(advisor)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/upsell/evaluate", evaluateRequest{
		CurrentClass: domain.SeatClassTrain1st,
		TicketKind:   domain.TicketKindSeat,
	})

	advisor.On("Evaluate", domain.SeatClassTrain1st, mock.Anything, domain.TicketKindSeat).Return(nil).Once()

	handler.evaluate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body["suggestion"])
}

func TestUpsellHandler_refuseAndAccept(t *testing.T) {
	advisor := &MockUpsellAdvisor{}
	handler := NewUpsellHandler(advisor)
	advisor.On("Refuse").Return().Once()
	advisor.On("Accept").Return().Once()

	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/upsell/refuse", nil)
	handler.refuse(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/upsell/accept", nil)
	handler.accept(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	advisor.AssertExpectations(t)
}
