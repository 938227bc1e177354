package remote

import "github.com/mzilka/tripbooker/internal/domain"

// The create-reservation endpoints disagree on field names and shapes between
// ticket kinds, so each kind gets its own request type instead of one struct
// with optional fields.

type PassengerRequest struct {
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	FirstName string        `json:"firstName,omitempty"`
	Surname   string        `json:"surname,omitempty"`
	Tariff    domain.Tariff `json:"tariff"`
}

type RouteSection struct {
	SectionID     int64 `json:"sectionId"`
	FromStationID int64 `json:"fromStationId"`
	ToStationID   int64 `json:"toStationId"`
}

type SectionPick struct {
	Section       RouteSection          `json:"section"`
	SelectedSeats []domain.SelectedSeat `json:"selectedSeats"`
}

type RouteSpec struct {
	RouteID     string           `json:"routeId"`
	PriceSource string           `json:"priceSource"`
	SeatClass   domain.SeatClass `json:"seatClass"`
	Sections    []SectionPick    `json:"sections"`
}

// AddonRequest is a selected add-on with client-only fields stripped.
type AddonRequest struct {
	AddonID        int64   `json:"addonId"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	ConditionsHash string  `json:"conditionsHash"`
	Count          int     `json:"count"`
}

type SeatTicketRequest struct {
	Passengers            []PassengerRequest `json:"passengers"`
	Route                 RouteSpec          `json:"route"`
	SelectedAddons        []AddonRequest     `json:"selectedAddons"`
	PercentualDiscountIDs []int64            `json:"percentualDiscountIds"`
	CodeDiscount          string             `json:"codeDiscount,omitempty"`
}

type SeatTicketGroup struct {
	TicketRequests []SeatTicketRequest `json:"ticketRequests"`
	AffiliateCode  string              `json:"affiliateCode,omitempty"`
}

type SroPassenger struct {
	Email string `json:"email"`
}

type SroTicketRequest struct {
	RouteID       string           `json:"routeId"`
	SeatClass     domain.SeatClass `json:"seatClass"`
	PriceSourceID string           `json:"priceSourceId"`
	Passengers    []SroPassenger   `json:"passengers"`
	Sections      []SectionPick    `json:"sections"`
}

type SroTicketGroup struct {
	TicketRequests []SroTicketRequest `json:"ticketRequests"`
}

type TimeTicketRequest struct {
	LineGroupCode string        `json:"lineGroupCode"`
	LineNumber    int           `json:"lineNumber"`
	Station1ID    int64         `json:"station1Id"`
	Station2ID    int64         `json:"station2Id"`
	Tariff        domain.Tariff `json:"tariff"`
	ValidFrom     string        `json:"validFrom"`
}

type RegisteredTimeTicketRequest struct {
	TimeTicketRequest
	SeatClass domain.SeatClass `json:"seatClass"`
	Type      domain.FlexiType `json:"type"`
}

type TimeTicketGroup struct {
	TimeTicketRequests []RegisteredTimeTicketRequest `json:"timeTicketRequests"`
}

type UnregisteredTimeTicketRequest struct {
	TimeTicketRequest
	Email          string           `json:"email"`
	SeatClassKey   domain.SeatClass `json:"seatClassKey"`
	TimeTicketType domain.FlexiType `json:"timeTicketType"`
}

type UnregisteredTimeTicketGroup struct {
	Requests []UnregisteredTimeTicketRequest `json:"unregisteredTimeTicketCreateRequest"`
}

type TicketSection struct {
	Section       RouteSection          `json:"section"`
	SelectedSeats []domain.SelectedSeat `json:"selectedSeats"`
}

// CreatedTicket is one reserved ticket as echoed back by the create endpoints.
// IDs come back as strings on the wire.
type CreatedTicket struct {
	ID            string          `json:"id"`
	RouteSections []TicketSection `json:"routeSections"`
}

type SeatTicketData struct {
	Tickets []CreatedTicket `json:"tickets"`
}

// UnregisteredSeatTicketData additionally carries the bearer token that
// authenticates the freshly created anonymous session.
type UnregisteredSeatTicketData struct {
	Token   string          `json:"token"`
	Tickets []CreatedTicket `json:"tickets"`
}

type SroTicket struct {
	SroTicketID int64   `json:"sroTicketId"`
	State       string  `json:"state"`
	Price       float64 `json:"price"`
	Unpaid      float64 `json:"unpaid"`
}

type DiscountVerifyRequest struct {
	ActionPrice interface{}        `json:"actionPrice"`
	Passengers  []PassengerRequest `json:"passengers"`
	Route       RouteSpec          `json:"route"`
	TicketPrice float64            `json:"ticketPrice"`
}

type DiscountVerification struct {
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	DiscountedTicketPrice float64 `json:"discountedTicketPrice"`
}

type FormField struct {
	FieldType  string `json:"fieldType"`
	FieldValue string `json:"fieldValue"`
}

type CreditChargePayload struct {
	Tickets    []domain.TicketRef `json:"tickets"`
	FormFields []FormField        `json:"formFields,omitempty"`
}

type PayPayload struct {
	CorrelationID     string             `json:"correlationId"`
	FormFields        []FormField        `json:"formFields"`
	PaymentMethodCode string             `json:"paymentMethodCode"`
	RememberCard      bool               `json:"rememberCard"`
	Tickets           []domain.TicketRef `json:"tickets"`
}

type PayResponse struct {
	PayRedirectURL     string `json:"payRedirectUrl"`
	ServiceRedirectURL string `json:"serviceRedirectUrl"`
}
