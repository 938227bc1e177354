package reservation

import (
	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/remote"
)

// legRef ties a finalized leg to its direction so payload builders can reach
// direction-scoped connection data (departure dates).
type legRef struct {
	dir domain.Direction
	leg *domain.Leg
}

// plan is the partition of a trip into reservation buckets, computed once
// before any remote call.
type plan struct {
	seat      []legRef
	sro       []legRef
	timeBased []legRef

	requestedSeats []domain.SelectedSeat
	seatPrice      float64
	totalLegPrice  float64
}

func newPlan(trip *domain.Trip) plan {
	var p plan
	for _, ref := range []legRef{
		{dir: domain.DirectionThere, leg: trip.There},
		{dir: domain.DirectionBack, leg: trip.Back},
	} {
		if ref.leg == nil {
			continue
		}
		p.totalLegPrice += ref.leg.PriceValue()
		switch {
		case ref.leg.Kind.IsTimeBased():
			p.timeBased = append(p.timeBased, ref)
		case ref.leg.Kind == domain.TicketKindUnreserved:
			p.sro = append(p.sro, ref)
		default:
			p.seat = append(p.seat, ref)
			p.seatPrice += ref.leg.PriceValue()
			for _, section := range ref.leg.Sections {
				p.requestedSeats = append(p.requestedSeats, section.SelectedSeats...)
			}
		}
	}
	return p
}

// passengerRequests builds one entry per tariff. Personal fields come from
// the caller-supplied passenger list; the remote service expects contact
// email/phone on the first passenger only and rejects it elsewhere.
func passengerRequests(leg *domain.Leg, in Input) []remote.PassengerRequest {
	passengers := in.Passengers
	if len(passengers) == 0 {
		passengers = leg.Passengers
	}
	out := make([]remote.PassengerRequest, 0, len(leg.Tariffs))
	for i, tariff := range leg.Tariffs {
		req := remote.PassengerRequest{Tariff: tariff}
		if i < len(passengers) {
			req.FirstName = passengers[i].FirstName
			req.Surname = passengers[i].Surname
		}
		if i == 0 {
			req.Email = in.Email
			req.Phone = in.Phone
		}
		out = append(out, req)
	}
	return out
}

func addonRequests(addons []domain.SelectedAddon) []remote.AddonRequest {
	out := make([]remote.AddonRequest, 0, len(addons))
	for _, a := range addons {
		out = append(out, remote.AddonRequest{
			AddonID:        a.AddonID,
			Price:          a.Price,
			Currency:       a.Currency,
			ConditionsHash: a.ConditionsHash,
			Count:          a.Count,
		})
	}
	return out
}

func sectionPicks(sections []domain.Section) []remote.SectionPick {
	out := make([]remote.SectionPick, 0, len(sections))
	for _, s := range sections {
		out = append(out, remote.SectionPick{
			Section: remote.RouteSection{
				SectionID:     s.SectionID,
				FromStationID: s.FromStationID,
				ToStationID:   s.ToStationID,
			},
			SelectedSeats: s.SelectedSeats,
		})
	}
	return out
}

func seatTicketGroup(refs []legRef, in Input) remote.SeatTicketGroup {
	group := remote.SeatTicketGroup{AffiliateCode: in.AffiliateCode}
	for _, ref := range refs {
		leg := ref.leg
		group.TicketRequests = append(group.TicketRequests, remote.SeatTicketRequest{
			Passengers: passengerRequests(leg, in),
			Route: remote.RouteSpec{
				RouteID:     leg.RouteID,
				PriceSource: leg.PriceSource,
				SeatClass:   leg.SeatClass,
				Sections:    sectionPicks(leg.Sections),
			},
			SelectedAddons:        addonRequests(leg.SelectedAddons),
			PercentualDiscountIDs: leg.PercentualDiscountIDs,
			CodeDiscount:          leg.CodeDiscount,
		})
	}
	return group
}

// sroTicketGroup reduces passengers to email only; the open-seating endpoint
// refuses personal fields.
func sroTicketGroup(refs []legRef, in Input) remote.SroTicketGroup {
	var group remote.SroTicketGroup
	for _, ref := range refs {
		leg := ref.leg
		passengers := make([]remote.SroPassenger, 0, len(leg.Tariffs))
		for range leg.Tariffs {
			passengers = append(passengers, remote.SroPassenger{Email: in.Email})
		}
		group.TicketRequests = append(group.TicketRequests, remote.SroTicketRequest{
			RouteID:       leg.RouteID,
			SeatClass:     leg.SeatClass,
			PriceSourceID: leg.PriceSource,
			Passengers:    passengers,
			Sections:      sectionPicks(leg.Sections),
		})
	}
	return group
}

func timeTicketRequest(conn domain.Connection, ref legRef, tariff domain.Tariff) remote.TimeTicketRequest {
	validFrom := conn.DepartureDate
	if ref.dir == domain.DirectionBack {
		validFrom = conn.ReturnDepartureDate
	}
	return remote.TimeTicketRequest{
		LineGroupCode: ref.leg.LineGroupCode,
		LineNumber:    ref.leg.LineNumber,
		Station1ID:    ref.leg.FromStationID,
		Station2ID:    ref.leg.ToStationID,
		Tariff:        tariff,
		ValidFrom:     validFrom,
	}
}

// registeredTimeTicketGroup batches one entry per leg and tariff.
func registeredTimeTicketGroup(conn domain.Connection, refs []legRef) remote.TimeTicketGroup {
	var group remote.TimeTicketGroup
	for _, ref := range refs {
		for _, tariff := range ref.leg.Tariffs {
			group.TimeTicketRequests = append(group.TimeTicketRequests, remote.RegisteredTimeTicketRequest{
				TimeTicketRequest: timeTicketRequest(conn, ref, tariff),
				SeatClass:         ref.leg.SeatClass,
				Type:              ref.leg.FlexiType,
			})
		}
	}
	return group
}

// unregisteredTimeTicketGroup carries one entry per leg with a representative
// tariff; the anonymous endpoint identifies the buyer by email alone.
func unregisteredTimeTicketGroup(conn domain.Connection, ref legRef, email string) remote.UnregisteredTimeTicketGroup {
	tariff := domain.TariffRegular
	if len(ref.leg.Tariffs) > 0 {
		tariff = ref.leg.Tariffs[0]
	}
	return remote.UnregisteredTimeTicketGroup{
		Requests: []remote.UnregisteredTimeTicketRequest{{
			TimeTicketRequest: timeTicketRequest(conn, ref, tariff),
			Email:             email,
			SeatClassKey:      ref.leg.SeatClass,
			TimeTicketType:    ref.leg.FlexiType,
		}},
	}
}

// assignedSeats flattens the seats echoed back by the seat-ticket endpoint.
func assignedSeats(tickets []remote.CreatedTicket) []domain.SelectedSeat {
	var out []domain.SelectedSeat
	for _, ticket := range tickets {
		for _, section := range ticket.RouteSections {
			out = append(out, section.SelectedSeats...)
		}
	}
	return out
}

// reconcileSeats returns the assigned seats the caller did not ask for. An
// empty result means no surprises.
func reconcileSeats(requested, assigned []domain.SelectedSeat) []domain.SelectedSeat {
	extra := make([]domain.SelectedSeat, 0)
	for _, seat := range assigned {
		found := false
		for _, want := range requested {
			if want == seat {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, seat)
		}
	}
	return extra
}
