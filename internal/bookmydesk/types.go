package bookmydesk

// TokenPair is the token endpoint's response for both the password and the
// refresh_token grants.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Profile is the authenticated user's booking profile. The ID is what
// reservation ownership is matched against.
type Profile struct {
	ID        string
	Email     string
	FirstName string
	CompanyID string
}

// ReservationType distinguishes desk, home and visitor reservations.
type ReservationType string

const (
	TypeNormal  ReservationType = "normal"
	TypeHome    ReservationType = "home"
	TypeVisitor ReservationType = "visitor"
)

// ReservationStatus is the remote lifecycle state. Reserved moves to
// checkedIn and then checkedOut, or directly to cancelled/expired. The
// latter three are terminal.
type ReservationStatus string

const (
	StatusReserved   ReservationStatus = "reserved"
	StatusCheckedIn  ReservationStatus = "checkedIn"
	StatusCheckedOut ReservationStatus = "checkedOut"
	StatusCancelled  ReservationStatus = "cancelled"
	StatusExpired    ReservationStatus = "expired"
)

// Terminal reports whether the status permits no further transitions.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled || s == StatusExpired
}

// Seat is the booked spot, if any, including where it is.
type Seat struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MapID        string `json:"mapId"`
	MapName      string `json:"mapName"`
	LocationName string `json:"locationName"`
}

// Reservation as returned by the booking API. Read-only on our side.
type Reservation struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"ownerId"`
	Type           ReservationType   `json:"type"`
	Status         ReservationStatus `json:"status"`
	DateStart      string            `json:"dateStart"`
	From           string            `json:"from"`
	To             string            `json:"to"`
	CheckedInTime  *string           `json:"checkedInTime"`
	CheckedOutTime *string           `json:"checkedOutTime"`
	Seat           *Seat             `json:"seat"`
}

// StartTime prefers the actual check-in time over the booked start.
func (r *Reservation) StartTime() string {
	if r.CheckedInTime != nil {
		return *r.CheckedInTime
	}
	return r.From
}

// EndTime prefers the actual check-out time over the booked end.
func (r *Reservation) EndTime() string {
	if r.CheckedOutTime != nil {
		return *r.CheckedOutTime
	}
	return r.To
}

// LocationName returns a printable place for the reservation.
func (r *Reservation) LocationName() string {
	if r.Seat == nil {
		if r.Type == TypeHome {
			return "home"
		}
		return "unknown location"
	}
	if r.Seat.MapName != "" {
		return r.Seat.MapName
	}
	return r.Seat.LocationName
}

// Map is a floor plan within a location, listing its seats in booking order.
type Map struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Seats []Seat `json:"seats"`
}

// Location is a company office location with its floor maps.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Maps []Map  `json:"maps"`
}

// ListParams narrows a reservation listing.
type ListParams struct {
	From  string // inclusive date, YYYY-MM-DD
	To    string // inclusive date, YYYY-MM-DD
	Type  ReservationType
	MapID string
	Take  int
}

// CreateParams describes a reservation to create. SeatID is empty for home
// reservations.
type CreateParams struct {
	Type   ReservationType
	Date   string // YYYY-MM-DD
	From   string // HH:MM local
	To     string // HH:MM local
	SeatID string
}
