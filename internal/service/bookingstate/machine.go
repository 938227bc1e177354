package bookingstate

import (
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/internal/domain"
	"github.com/mzilka/tripbooker/internal/kafka"
)

const defaultFavoritesLimit = 10

// Notifier receives one event per applied (non-suppressed) booking action.
type Notifier interface {
	Notify(key string, payload interface{})
}

// Snapshot is the unit of persistence: the whole trip plus favorite history.
type Snapshot struct {
	Trip      *domain.Trip      `json:"trip"`
	Favorites []domain.Favorite `json:"favorites"`
}

// TripStore persists snapshots across sessions.
type TripStore interface {
	Load() (*Snapshot, error)
	Save(Snapshot) error
}

// Machine owns the trip state. Every operation is a full-leg replace under
// one mutex: a new leg value is built from a copy of the old one, compared
// for structural equality to suppress redundant notifications, and swapped in
// whole. Out-of-order calls are defined as no-ops, never as errors.
type Machine struct {
	mu             sync.Mutex
	trip           *domain.Trip
	favorites      []domain.Favorite
	favoritesLimit int
	store          TripStore
	notifier       Notifier
	logger         *logrus.Logger
}

type MachineOption func(*Machine)

func WithStore(store TripStore) MachineOption {
	return func(m *Machine) { m.store = store }
}

func WithNotifier(notifier Notifier) MachineOption {
	return func(m *Machine) { m.notifier = notifier }
}

func WithFavoritesLimit(limit int) MachineOption {
	return func(m *Machine) {
		if limit > 0 {
			m.favoritesLimit = limit
		}
	}
}

func NewMachine(logger *logrus.Logger, opts ...MachineOption) *Machine {
	m := &Machine{
		favoritesLimit: defaultFavoritesLimit,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store != nil {
		snapshot, err := m.store.Load()
		if err != nil {
			m.logger.WithError(err).Warn("failed to restore persisted trip")
		} else if snapshot != nil {
			m.trip = snapshot.Trip
			m.favorites = snapshot.Favorites
		}
	}
	return m
}

// RouteSelection is the payload of SelectRoute. It carries the route identity
// and the tariff per passenger; everything downstream of the route is reset.
type RouteSelection struct {
	Kind          domain.TicketKind
	RouteID       string
	FromStationID int64
	ToStationID   int64
	LineGroupCode string
	LineNumber    int
	FlexiType     domain.FlexiType
	Tariffs       []domain.Tariff
}

// ClassSelection is the payload of SelectClass.
type ClassSelection struct {
	SeatClass   domain.SeatClass
	PriceSource string
	Price       float64
	Sections    []domain.Section
}

// UpsellSelection overwrites add-ons plus whatever fare fields the upsell
// carried, without touching the progress marker.
type UpsellSelection struct {
	SeatClass      domain.SeatClass
	PriceSource    string
	Price          *float64
	SelectedAddons []domain.SelectedAddon
}

// Resolve maps a requested direction to the leg it actually addresses: "back"
// only exists on round trips, everything else lands on "there". Tested once,
// trusted by every leg-scoped operation.
func (m *Machine) Resolve(dir domain.Direction) domain.Direction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveLocked(dir)
}

func (m *Machine) resolveLocked(dir domain.Direction) domain.Direction {
	if dir == domain.DirectionBack && m.trip != nil && m.trip.IsReturn {
		return domain.DirectionBack
	}
	return domain.DirectionThere
}

// StartTrip resets both legs and stores the confirmed connection. The O/D
// pair is recorded as a favorite unless the search opted out or any of the
// four route-identity fields is missing.
func (m *Machine) StartTrip(conn domain.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trip = &domain.Trip{
		Connection: conn,
		IsReturn:   conn.ReturnDepartureDate != "",
	}

	if !conn.IgnoreFavorite &&
		conn.FromLocationID != 0 && conn.FromLocationType != "" &&
		conn.ToLocationID != 0 && conn.ToLocationType != "" {
		m.recordFavoriteLocked(domain.Favorite{
			FromLocationID:   conn.FromLocationID,
			FromLocationType: conn.FromLocationType,
			ToLocationID:     conn.ToLocationID,
			ToLocationType:   conn.ToLocationType,
		})
	}

	m.committedLocked("SAVE_CONNECTION", "")
}

func (m *Machine) recordFavoriteLocked(fav domain.Favorite) {
	for i, existing := range m.favorites {
		if existing.FromLocationID == fav.FromLocationID && existing.ToLocationID == fav.ToLocationID {
			m.favorites = append(m.favorites[:i], m.favorites[i+1:]...)
			break
		}
	}
	m.favorites = append([]domain.Favorite{fav}, m.favorites...)
	if len(m.favorites) > m.favoritesLimit {
		m.favorites = m.favorites[:m.favoritesLimit]
	}
}

// SelectRoute overwrites the leg with a fresh one holding only route identity
// and tariffs. Class, seats, price, add-ons, discount and passenger data are
// all downstream of the route and start over.
func (m *Machine) SelectRoute(dir domain.Direction, sel RouteSelection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)

	next := &domain.Leg{
		State:         domain.StateRouteSelected,
		Kind:          sel.Kind,
		RouteID:       sel.RouteID,
		FromStationID: sel.FromStationID,
		ToStationID:   sel.ToStationID,
		LineGroupCode: sel.LineGroupCode,
		LineNumber:    sel.LineNumber,
		FlexiType:     sel.FlexiType,
		Tariffs:       append([]domain.Tariff(nil), sel.Tariffs...),
	}
	m.swapLocked(actual, next, "SELECT_ROUTE")
}

// SelectClass writes fare class, price and sections onto the existing leg.
// Seat picks live inside the incoming sections, so a class change implicitly
// drops previous seats. Passenger-derived data (cached passenger fields,
// add-ons, discount) is invalidated because it was priced against the old
// class.
func (m *Machine) SelectClass(dir domain.Direction, sel ClassSelection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)

	next := m.trip.Leg(actual).Clone()
	if next == nil {
		next = &domain.Leg{}
	}
	next.State = domain.StateClassSelected
	next.SeatClass = sel.SeatClass
	next.PriceSource = sel.PriceSource
	price := sel.Price
	next.Price = &price
	next.Sections = cloneSections(sel.Sections)
	next.Passengers = nil
	next.SelectedAddons = nil
	next.PercentualDiscountIDs = nil
	next.CodeDiscount = ""
	next.DiscountAmount = nil

	m.swapLocked(actual, next, "SELECT_CLASS")
}

// SelectSeats partitions the flat seat list by section and merges it into the
// leg's sections. Without a leg there is nothing to attach seats to.
func (m *Machine) SelectSeats(dir domain.Direction, seats []domain.SelectedSeat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)

	next := m.trip.Leg(actual).Clone()
	if next == nil {
		return
	}
	for i := range next.Sections {
		picked := make([]domain.SelectedSeat, 0)
		for _, seat := range seats {
			if seat.SectionID == next.Sections[i].SectionID {
				picked = append(picked, seat)
			}
		}
		next.Sections[i].SelectedSeats = picked
	}
	next.State = domain.StateSeatSelected

	m.swapLocked(actual, next, "SELECT_SEATS")
}

// SelectAddons overwrites the selected add-ons and advances the progress
// marker.
func (m *Machine) SelectAddons(dir domain.Direction, addons []domain.SelectedAddon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)

	next := m.trip.Leg(actual).Clone()
	if next == nil {
		return
	}
	next.SelectedAddons = append([]domain.SelectedAddon(nil), addons...)
	next.State = domain.StateAddonsSelected

	m.swapLocked(actual, next, "SELECT_ADDONS")
}

// UpsellAddons overwrites add-ons plus the fare fields carried by the upsell
// payload. The progress marker is preserved: an upsell may land before or
// after the explicit add-on step.
func (m *Machine) UpsellAddons(dir domain.Direction, sel UpsellSelection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)

	next := m.trip.Leg(actual).Clone()
	if next == nil {
		return
	}
	next.SelectedAddons = append([]domain.SelectedAddon(nil), sel.SelectedAddons...)
	if sel.SeatClass != "" {
		next.SeatClass = sel.SeatClass
	}
	if sel.PriceSource != "" {
		next.PriceSource = sel.PriceSource
	}
	if sel.Price != nil {
		price := *sel.Price
		next.Price = &price
	}

	m.swapLocked(actual, next, "UPSELL_ADDONS")
}

// ApplyPercentualDiscount records verified percentual discount ids. Requires
// the leg to have progressed at least to a selected route.
func (m *Machine) ApplyPercentualDiscount(dir domain.Direction, ids []int64, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyDiscountLocked(dir, func(leg *domain.Leg) {
		leg.PercentualDiscountIDs = append([]int64(nil), ids...)
		leg.DiscountAmount = &amount
	}, "SELECT_PERC_DISCOUNT")
}

// ApplyCodeDiscount records a verified discount code.
func (m *Machine) ApplyCodeDiscount(dir domain.Direction, code string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyDiscountLocked(dir, func(leg *domain.Leg) {
		leg.CodeDiscount = code
		leg.DiscountAmount = &amount
	}, "SELECT_CODE_DISCOUNT")
}

func (m *Machine) applyDiscountLocked(dir domain.Direction, mutate func(*domain.Leg), action string) {
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)
	next := m.trip.Leg(actual).Clone()
	if next == nil || next.State == "" {
		return
	}
	mutate(next)
	m.swapLocked(actual, next, action)
}

// SetPrice unconditionally overwrites the leg price. Used after discount
// verification recomputes the authoritative total.
func (m *Machine) SetPrice(dir domain.Direction, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)
	next := m.trip.Leg(actual).Clone()
	if next == nil {
		return
	}
	next.Price = &price
	m.swapLocked(actual, next, "SET_PRICE")
}

// CommitDiscount writes the discounted price and the discount identifier in
// one critical section. A reader can never observe the new price with a stale
// identifier or the other way round.
func (m *Machine) CommitDiscount(dir domain.Direction, discountedPrice, amount float64, id DiscountIdentifier) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return false
	}
	actual := m.resolveLocked(dir)
	next := m.trip.Leg(actual).Clone()
	if next == nil || next.State == "" {
		return false
	}
	next.Price = &discountedPrice
	next.DiscountAmount = &amount
	if percID, ok := id.Percentual(); ok {
		next.PercentualDiscountIDs = []int64{percID}
		next.CodeDiscount = ""
	} else {
		next.CodeDiscount = id.Code()
		next.PercentualDiscountIDs = nil
	}
	m.swapLocked(actual, next, "SELECT_DISCOUNT")
	return true
}

// ReplaceTariffs overwrites the tariff list without touching anything else.
// Used when the passenger count changes before a route is re-selected.
func (m *Machine) ReplaceTariffs(dir domain.Direction, tariffs []domain.Tariff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	actual := m.resolveLocked(dir)
	next := m.trip.Leg(actual).Clone()
	if next == nil || next.Tariffs == nil {
		return
	}
	next.Tariffs = append([]domain.Tariff(nil), tariffs...)
	m.swapLocked(actual, next, "REPLACE_TARIFFS")
}

// Clear destroys the trip entirely.
func (m *Machine) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}
	m.trip = nil
	m.committedLocked("CLEAR_BOOKING", "")
}

// ClearDirection removes one leg. Clearing "there" promotes "back" into its
// place; when nothing remains the trip is destroyed. The direction is taken
// literally here: clearing "back" on a one-way trip only drops the return
// flag instead of wiping the single remaining leg.
func (m *Machine) ClearDirection(dir domain.Direction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return
	}

	if dir == domain.DirectionThere {
		m.trip.There = m.trip.Back
	}
	if m.trip.There == nil {
		m.trip = nil
	} else if m.trip.Back != nil || m.trip.IsReturn {
		m.trip.Back = nil
		m.trip.IsReturn = false
	}
	m.committedLocked("CLEAR_BOOKING", dir)
}

// swapLocked installs the next leg value unless it is structurally identical
// to the current one; identical updates are suppressed without notification.
func (m *Machine) swapLocked(actual domain.Direction, next *domain.Leg, action string) {
	if reflect.DeepEqual(next, m.trip.Leg(actual)) {
		return
	}
	m.trip.SetLeg(actual, next)
	m.committedLocked(action, actual)
}

func (m *Machine) committedLocked(action string, dir domain.Direction) {
	if m.store != nil {
		snapshot := Snapshot{Trip: m.trip.Clone(), Favorites: append([]domain.Favorite(nil), m.favorites...)}
		if err := m.store.Save(snapshot); err != nil {
			m.logger.WithError(err).Warn("failed to persist trip snapshot")
		}
	}
	if m.notifier != nil {
		m.notifier.Notify(action, kafka.ActionEvent{
			Action:    action,
			Direction: dir,
			At:        time.Now(),
		})
	}
}

// Trip returns a deep copy of the current trip, nil when none is active.
func (m *Machine) Trip() *domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trip.Clone()
}

// Leg returns a deep copy of the leg the (resolved) direction addresses.
func (m *Machine) Leg(dir domain.Direction) *domain.Leg {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return nil
	}
	return m.trip.Leg(m.resolveLocked(dir)).Clone()
}

// Favorites returns the remembered O/D pairs, most recent first.
func (m *Machine) Favorites() []domain.Favorite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Favorite(nil), m.favorites...)
}

func cloneSections(sections []domain.Section) []domain.Section {
	if sections == nil {
		return nil
	}
	out := make([]domain.Section, len(sections))
	for i, s := range sections {
		out[i] = s
		out[i].SelectedSeats = append([]domain.SelectedSeat(nil), s.SelectedSeats...)
	}
	return out
}
