package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/service/upsell"
)

type UpsellAdvisor interface {
	Evaluate(current domain.SeatClass, available []upsell.PriceClass, kind domain.TicketKind) *upsell.Suggestion
	Refuse()
	Accept()
}

type UpsellHandler struct {
	advisor UpsellAdvisor
}

func NewUpsellHandler(advisor UpsellAdvisor) *UpsellHandler {
	return &UpsellHandler{advisor: advisor}
}

func (h *UpsellHandler) Register(router *gin.RouterGroup) {
	router.POST("/evaluate", h.evaluate)
	router.POST("/refuse", h.refuse)
	router.POST("/accept", h.accept)
}

type evaluateRequest struct {
	CurrentClass domain.SeatClass    `json:"currentClass"`
	TicketKind   domain.TicketKind   `json:"ticketKind"`
	Classes      []upsell.PriceClass `json:"classes"`
}

func (h *UpsellHandler) evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	suggestion := h.advisor.Evaluate(req.CurrentClass, req.Classes, req.TicketKind)
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

func (h *UpsellHandler) refuse(c *gin.Context) {
	h.advisor.Refuse()
	c.Status(http.StatusNoContent)
}

func (h *UpsellHandler) accept(c *gin.Context) {
	h.advisor.Accept()
	c.Status(http.StatusNoContent)
}
