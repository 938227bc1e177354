package pricing

import (
	"github.com/mzilka/tripbooker/internal/domain"
)

// Totals is the price breakdown of a trip. All amounts are in the session
// currency; leg prices already include any applied discount.
type Totals struct {
	TherePrice   float64 `json:"therePrice"`
	BackPrice    float64 `json:"backPrice"`
	BookingPrice float64 `json:"bookingPrice"`
	AddonsPrice  float64 `json:"addonsPrice"`
	TotalPrice   float64 `json:"totalPrice"`
}

// Compute derives the breakdown from the current trip. A missing leg or an
// unpriced leg contributes zero, so the totals are well defined at every
// booking stage.
func Compute(trip *domain.Trip) Totals {
	var t Totals
	if trip == nil {
		return t
	}
	t.TherePrice = trip.There.PriceValue()
	t.BackPrice = trip.Back.PriceValue()
	t.BookingPrice = t.TherePrice + t.BackPrice
	t.AddonsPrice = addonsPrice(trip.There) + addonsPrice(trip.Back)
	t.TotalPrice = t.BookingPrice + t.AddonsPrice
	return t
}

func addonsPrice(leg *domain.Leg) float64 {
	if leg == nil {
		return 0
	}
	var sum float64
	for _, addon := range leg.SelectedAddons {
		sum += addon.Price * float64(addon.Count)
	}
	return sum
}
