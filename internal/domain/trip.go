package domain

// Direction labels the two legs of a trip. A one-way trip only ever has a
// "there" leg; actions addressed to "back" are re-routed by the state machine.
type Direction string

const (
	DirectionThere Direction = "there"
	DirectionBack  Direction = "back"
)

// BookingState is the monotonic progress marker of a leg. Later selections
// that invalidate earlier ones reset it.
type BookingState string

const (
	StateRouteSelected  BookingState = "ROUTE_SELECTED"
	StateClassSelected  BookingState = "CLASS_SELECTED"
	StateSeatSelected   BookingState = "SEAT_SELECTED"
	StateAddonsSelected BookingState = "ADDONS_SELECTED"
)

// TicketKind determines which reservation endpoint a leg is sent to.
type TicketKind string

const (
	TicketKindSeat       TicketKind = "SEAT"
	TicketKindUnreserved TicketKind = "UNRESERVED"
	TicketKindTime       TicketKind = "TIME"
	TicketKindFlexi      TicketKind = "FLEXI"
)

// IsTimeBased reports whether the kind is reserved through the time-ticket
// endpoints. FLEXI passes share the TIME flow.
func (k TicketKind) IsTimeBased() bool {
	return k == TicketKindTime || k == TicketKindFlexi
}

type FlexiType string

const (
	FlexiTypeFlex    FlexiType = "FLEX"
	FlexiTypeWeek    FlexiType = "WEEK"
	FlexiTypeMonth   FlexiType = "MONTH"
	FlexiTypeQuarter FlexiType = "QUARTER"
)

type Tariff string

const (
	TariffRegular       Tariff = "REGULAR"
	TariffChild         Tariff = "CHILD"
	TariffChildUnder12  Tariff = "CHILD_UNDER_12"
	TariffAttendedChild Tariff = "ATTENDED_CHILD"
	TariffStudentPass15 Tariff = "STUDENT_PASS_15"
	TariffStudentPass26 Tariff = "STUDENT_PASS_26"
	TariffIsic          Tariff = "ISIC"
	TariffEuro26        Tariff = "EURO26"
	TariffDisabled      Tariff = "DISABLED"
	TariffSenior        Tariff = "SENIOR"
)

type SeatClass string

const (
	SeatClassNo                 SeatClass = "NO"
	SeatClassC0                 SeatClass = "C0"
	SeatClassC1                 SeatClass = "C1"
	SeatClassC2                 SeatClass = "C2"
	SeatClassTrain1st           SeatClass = "TRAIN_1ST_CLASS"
	SeatClassTrain2nd           SeatClass = "TRAIN_2ND_CLASS"
	SeatClassTrainLowCost       SeatClass = "TRAIN_LOW_COST"
	SeatClassTrainStandardPlus  SeatClass = "TRAIN_STANDARD_PLUS"
	SeatClassCouchetteStandard  SeatClass = "TRAIN_COUCHETTE_STANDARD"
	SeatClassCouchetteRelax     SeatClass = "TRAIN_COUCHETTE_RELAX"
	SeatClassCouchetteBusiness  SeatClass = "TRAIN_COUCHETTE_BUSINESS"
	SeatClassCouchetteBusiness4 SeatClass = "TRAIN_COUCHETTE_BUSINESS_4"
	SeatClassBusStandard        SeatClass = "BUS_STANDARD"
	SeatClassBusRelax           SeatClass = "BUS_RELAX"
)

// SelectedSeat identifies one seat pick within a route section.
type SelectedSeat struct {
	SectionID     int64 `json:"sectionId"`
	VehicleNumber int   `json:"vehicleNumber"`
	SeatIndex     int   `json:"seatIndex"`
}

// Section is one segment of a route together with the seats picked on it.
// SelectedSeats stays nil until seat selection happens.
type Section struct {
	SectionID     int64          `json:"sectionId"`
	FromStationID int64          `json:"fromStationId"`
	ToStationID   int64          `json:"toStationId"`
	SelectedSeats []SelectedSeat `json:"selectedSeats,omitempty"`
}

// SelectedAddon is an add-on chosen for a leg. AddonCode is a client-side
// lookup key and is stripped from reservation payloads.
type SelectedAddon struct {
	AddonID        int64   `json:"addonId"`
	AddonCode      string  `json:"addonCode,omitempty"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	ConditionsHash string  `json:"conditionsHash"`
	Count          int     `json:"count"`
}

// PassengerFields is the per-passenger personal data cached on a leg and sent
// with seat reservations.
type PassengerFields struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	Surname   string `json:"surname,omitempty"`
}

// Leg is the progressive selection state of one travel direction. All fields
// past RouteID stay unset until the corresponding selection step runs.
type Leg struct {
	State BookingState `json:"state"`
	Kind  TicketKind   `json:"kind"`

	RouteID       string `json:"routeId"`
	FromStationID int64  `json:"fromStationId"`
	ToStationID   int64  `json:"toStationId"`

	// Time-ticket identity, set only for TIME/FLEXI legs.
	LineGroupCode string    `json:"lineGroupCode,omitempty"`
	LineNumber    int       `json:"lineNumber,omitempty"`
	FlexiType     FlexiType `json:"flexiType,omitempty"`

	SeatClass   SeatClass `json:"seatClass,omitempty"`
	PriceSource string    `json:"priceSource,omitempty"`
	Tariffs     []Tariff  `json:"tariffs"`
	Sections    []Section `json:"sections,omitempty"`

	SelectedAddons []SelectedAddon   `json:"selectedAddons,omitempty"`
	Passengers     []PassengerFields `json:"passengers,omitempty"`

	// Price already reflects an applied discount; DiscountAmount is
	// informational only.
	Price                 *float64 `json:"price,omitempty"`
	PercentualDiscountIDs []int64  `json:"percentualDiscountIds,omitempty"`
	CodeDiscount          string   `json:"codeDiscount,omitempty"`
	DiscountAmount        *float64 `json:"discountAmount,omitempty"`
}

// Clone returns a deep copy. Leg transitions always build a new value from a
// copy so equality checks against the previous leg stay valid.
func (l *Leg) Clone() *Leg {
	if l == nil {
		return nil
	}
	c := *l
	c.Tariffs = append([]Tariff(nil), l.Tariffs...)
	if l.Sections != nil {
		c.Sections = make([]Section, len(l.Sections))
		for i, s := range l.Sections {
			c.Sections[i] = s
			c.Sections[i].SelectedSeats = append([]SelectedSeat(nil), s.SelectedSeats...)
		}
	}
	c.SelectedAddons = append([]SelectedAddon(nil), l.SelectedAddons...)
	c.Passengers = append([]PassengerFields(nil), l.Passengers...)
	c.PercentualDiscountIDs = append([]int64(nil), l.PercentualDiscountIDs...)
	if l.Price != nil {
		p := *l.Price
		c.Price = &p
	}
	if l.DiscountAmount != nil {
		a := *l.DiscountAmount
		c.DiscountAmount = &a
	}
	return &c
}

// PriceValue returns the leg price, zero when no price has been selected yet.
func (l *Leg) PriceValue() float64 {
	if l == nil || l.Price == nil {
		return 0
	}
	return *l.Price
}

// Connection is the confirmed search query a trip was started from.
type Connection struct {
	FromLocationID      int64    `json:"fromLocationId"`
	FromLocationType    string   `json:"fromLocationType"`
	ToLocationID        int64    `json:"toLocationId"`
	ToLocationType      string   `json:"toLocationType"`
	DepartureDate       string   `json:"departureDate"`
	ReturnDepartureDate string   `json:"returnDepartureDate,omitempty"`
	Tariffs             []Tariff `json:"tariffs"`

	// IgnoreFavorite marks searches that must not touch favorite history
	// (e.g. deep links).
	IgnoreFavorite bool `json:"ignoreFavorite,omitempty"`
}

// Favorite is one remembered origin/destination pair.
type Favorite struct {
	FromLocationID   int64  `json:"fromLocationId"`
	FromLocationType string `json:"fromLocationType"`
	ToLocationID     int64  `json:"toLocationId"`
	ToLocationType   string `json:"toLocationType"`
}

// Trip owns both booking legs plus the connection they were selected from.
type Trip struct {
	Connection Connection `json:"connection"`
	IsReturn   bool       `json:"isReturn"`
	There      *Leg       `json:"there"`
	Back       *Leg       `json:"back"`
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	if t == nil {
		return nil
	}
	c := *t
	c.Connection.Tariffs = append([]Tariff(nil), t.Connection.Tariffs...)
	c.There = t.There.Clone()
	c.Back = t.Back.Clone()
	return &c
}

// Leg returns the leg stored under the given actual direction.
func (t *Trip) Leg(dir Direction) *Leg {
	if t == nil {
		return nil
	}
	if dir == DirectionBack {
		return t.Back
	}
	return t.There
}

// SetLeg stores a leg under the given actual direction.
func (t *Trip) SetLeg(dir Direction, leg *Leg) {
	if dir == DirectionBack {
		t.Back = leg
		return
	}
	t.There = leg
}
