package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzilka/tripbooker/internal/domain"
)

func priced(price float64, addons ...domain.SelectedAddon) *domain.Leg {
	return &domain.Leg{
		State:          domain.StateClassSelected,
		Price:          &price,
		SelectedAddons: addons,
	}
}

func TestCompute_NilAndEmptyTrips(t *testing.T) {
	assert.Equal(t, Totals{}, Compute(nil))
	assert.Equal(t, Totals{}, Compute(&domain.Trip{}))
}

func TestCompute_SingleLeg(t *testing.T) {
	trip := &domain.Trip{There: priced(120)}

	totals := Compute(trip)

	assert.Equal(t, 120.0, totals.TherePrice)
	assert.Equal(t, 0.0, totals.BackPrice)
	assert.Equal(t, 120.0, totals.BookingPrice)
	assert.Equal(t, 120.0, totals.TotalPrice)
}

func TestCompute_RoundTripWithAddons(t *testing.T) {
	trip := &domain.Trip{
		IsReturn: true,
		There: priced(100,
			domain.SelectedAddon{AddonID: 1, Price: 5, Count: 2},
			domain.SelectedAddon{AddonID: 2, Price: 3, Count: 1},
		),
		Back: priced(80,
			domain.SelectedAddon{AddonID: 1, Price: 5, Count: 1},
		),
	}

	totals := Compute(trip)

	assert.Equal(t, 100.0, totals.TherePrice)
	assert.Equal(t, 80.0, totals.BackPrice)
	assert.Equal(t, 180.0, totals.BookingPrice)
	assert.Equal(t, 18.0, totals.AddonsPrice)
	assert.Equal(t, 198.0, totals.TotalPrice)
}

func TestCompute_UnpricedLegContributesZero(t *testing.T) {
	trip := &domain.Trip{
		There: &domain.Leg{State: domain.StateRouteSelected},
		Back:  priced(60),
	}

	totals := Compute(trip)

	assert.Equal(t, 0.0, totals.TherePrice)
	assert.Equal(t, 60.0, totals.TotalPrice)
}
