package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/service/reservation"
)

type SagaRunner interface {
	Run(ctx context.Context, in reservation.Input) (*reservation.Outcome, error)
}

type PurchaseHandler struct {
	saga SagaRunner
}

func NewPurchaseHandler(saga SagaRunner) *PurchaseHandler {
	return &PurchaseHandler{saga: saga}
}

func (h *PurchaseHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
}

type purchaseRequest struct {
	Email             string                   `json:"email"`
	Phone             string                   `json:"phone"`
	Passengers        []domain.PassengerFields `json:"passengers"`
	ChargeImmediately bool                     `json:"chargeImmediately"`
	Registered        bool                     `json:"registered"`
	AffiliateCode     string                   `json:"affiliateCode"`
}

func (h *PurchaseHandler) create(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.saga.Run(c.Request.Context(), reservation.Input{
		Email:             req.Email,
		Phone:             req.Phone,
		Passengers:        req.Passengers,
		ChargeImmediately: req.ChargeImmediately,
		Registered:        req.Registered,
		AffiliateCode:     req.AffiliateCode,
	})
	if err != nil {
		if errors.Is(err, reservation.ErrNoActiveTrip) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		var stepErr *reservation.StepError
		if errors.As(err, &stepErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    stepErr.Error(),
				"step":     stepErr.Step,
				"redirect": domain.RedirectNone,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, outcome)
}
