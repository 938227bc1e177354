package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/service/bookingstate"
	"github.com/mzilka/tripbooker/internal/service/discount"
	"github.com/mzilka/tripbooker/internal/service/pricing"
)

// TripMachine is the interface the trip handler drives. Selection operations
// are silent no-ops when called out of order, so handlers return the
// resulting trip instead of per-operation errors.
type TripMachine interface {
	StartTrip(conn domain.Connection)
	SelectRoute(dir domain.Direction, sel bookingstate.RouteSelection)
	SelectClass(dir domain.Direction, sel bookingstate.ClassSelection)
	SelectSeats(dir domain.Direction, seats []domain.SelectedSeat)
	SelectAddons(dir domain.Direction, addons []domain.SelectedAddon)
	UpsellAddons(dir domain.Direction, sel bookingstate.UpsellSelection)
	ReplaceTariffs(dir domain.Direction, tariffs []domain.Tariff)
	Clear()
	ClearDirection(dir domain.Direction)
	Trip() *domain.Trip
	Favorites() []domain.Favorite
}

type DiscountApplier interface {
	ApplyPercentual(ctx context.Context, dir domain.Direction, id int64) (*discount.Result, error)
	ApplyCode(ctx context.Context, dir domain.Direction, code string) (*discount.Result, error)
}

type TripHandler struct {
	machine  TripMachine
	discount DiscountApplier
}

func NewTripHandler(machine TripMachine, applier DiscountApplier) *TripHandler {
	return &TripHandler{machine: machine, discount: applier}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.start)
	router.GET("/", h.get)
	router.DELETE("/", h.clear)
	router.DELETE("/:direction", h.clearDirection)
	router.GET("/price", h.price)
	router.GET("/favorites", h.favorites)
	router.POST("/:direction/route", h.selectRoute)
	router.POST("/:direction/class", h.selectClass)
	router.POST("/:direction/seats", h.selectSeats)
	router.POST("/:direction/addons", h.selectAddons)
	router.POST("/:direction/addons/upsell", h.upsellAddons)
	router.PUT("/:direction/tariffs", h.replaceTariffs)
	router.POST("/:direction/discount/code", h.applyCodeDiscount)
	router.POST("/:direction/discount/percentual", h.applyPercentualDiscount)
}

func direction(c *gin.Context) (domain.Direction, bool) {
	switch c.Param("direction") {
	case "there":
		return domain.DirectionThere, true
	case "back":
		return domain.DirectionBack, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be there or back"})
	return "", false
}

func (h *TripHandler) start(c *gin.Context) {
	var conn domain.Connection
	if err := c.ShouldBindJSON(&conn); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.StartTrip(conn)
	c.JSON(http.StatusCreated, h.machine.Trip())
}

func (h *TripHandler) get(c *gin.Context) {
	trip := h.machine.Trip()
	if trip == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active trip"})
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (h *TripHandler) clear(c *gin.Context) {
	h.machine.Clear()
	c.Status(http.StatusNoContent)
}

func (h *TripHandler) clearDirection(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	h.machine.ClearDirection(dir)
	c.Status(http.StatusNoContent)
}

func (h *TripHandler) price(c *gin.Context) {
	c.JSON(http.StatusOK, pricing.Compute(h.machine.Trip()))
}

func (h *TripHandler) favorites(c *gin.Context) {
	c.JSON(http.StatusOK, h.machine.Favorites())
}

type routeRequest struct {
	Kind          domain.TicketKind `json:"kind"`
	RouteID       string            `json:"routeId"`
	FromStationID int64             `json:"fromStationId"`
	ToStationID   int64             `json:"toStationId"`
	LineGroupCode string            `json:"lineGroupCode"`
	LineNumber    int               `json:"lineNumber"`
	FlexiType     domain.FlexiType  `json:"flexiType"`
	Tariffs       []domain.Tariff   `json:"tariffs"`
}

func (h *TripHandler) selectRoute(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.SelectRoute(dir, bookingstate.RouteSelection{
		Kind:          req.Kind,
		RouteID:       req.RouteID,
		FromStationID: req.FromStationID,
		ToStationID:   req.ToStationID,
		LineGroupCode: req.LineGroupCode,
		LineNumber:    req.LineNumber,
		FlexiType:     req.FlexiType,
		Tariffs:       req.Tariffs,
	})
	c.JSON(http.StatusOK, h.machine.Trip())
}

type classRequest struct {
	SeatClass   domain.SeatClass `json:"seatClass"`
	PriceSource string           `json:"priceSource"`
	Price       float64          `json:"price"`
	Sections    []domain.Section `json:"sections"`
}

func (h *TripHandler) selectClass(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.SelectClass(dir, bookingstate.ClassSelection{
		SeatClass:   req.SeatClass,
		PriceSource: req.PriceSource,
		Price:       req.Price,
		Sections:    req.Sections,
	})
	c.JSON(http.StatusOK, h.machine.Trip())
}

type seatsRequest struct {
	Seats []domain.SelectedSeat `json:"seats"`
}

func (h *TripHandler) selectSeats(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req seatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.SelectSeats(dir, req.Seats)
	c.JSON(http.StatusOK, h.machine.Trip())
}

type addonsRequest struct {
	Addons []domain.SelectedAddon `json:"addons"`
}

func (h *TripHandler) selectAddons(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req addonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.SelectAddons(dir, req.Addons)
	c.JSON(http.StatusOK, h.machine.Trip())
}

type upsellAddonsRequest struct {
	SeatClass   domain.SeatClass       `json:"seatClass"`
	PriceSource string                 `json:"priceSource"`
	Price       *float64               `json:"price"`
	Addons      []domain.SelectedAddon `json:"addons"`
}

func (h *TripHandler) upsellAddons(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req upsellAddonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.UpsellAddons(dir, bookingstate.UpsellSelection{
		SeatClass:      req.SeatClass,
		PriceSource:    req.PriceSource,
		Price:          req.Price,
		SelectedAddons: req.Addons,
	})
	c.JSON(http.StatusOK, h.machine.Trip())
}

type tariffsRequest struct {
	Tariffs []domain.Tariff `json:"tariffs"`
}

func (h *TripHandler) replaceTariffs(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req tariffsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.machine.ReplaceTariffs(dir, req.Tariffs)
	c.JSON(http.StatusOK, h.machine.Trip())
}

type codeDiscountRequest struct {
	Code string `json:"code"`
}

func (h *TripHandler) applyCodeDiscount(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req codeDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.discount.ApplyCode(c.Request.Context(), dir, req.Code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no priced leg to discount"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type percentualDiscountRequest struct {
	ID int64 `json:"id"`
}

func (h *TripHandler) applyPercentualDiscount(c *gin.Context) {
	dir, ok := direction(c)
	if !ok {
		return
	}
	var req percentualDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.discount.ApplyPercentual(c.Request.Context(), dir, req.ID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no priced leg to discount"})
		return
	}
	c.JSON(http.StatusOK, result)
}
