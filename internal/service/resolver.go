package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deskbot-io/deskbot/internal/bookmydesk"
	"github.com/deskbot-io/deskbot/internal/model"
	"go.uber.org/zap"
)

const snapshotTake = 50

// Outcome is the resolver's reply: one line per affected reservation, in
// snapshot order. A zero Outcome means "no reply needed".
type Outcome struct {
	Lines []string
}

func (o Outcome) Empty() bool {
	return len(o.Lines) == 0
}

// Report renders the outcome as a single message.
func (o Outcome) Report() string {
	return strings.Join(o.Lines, "\n")
}

func outcomeOf(lines ...string) Outcome {
	return Outcome{Lines: lines}
}

// DayStatus is the read-only classification of today's snapshot. Multiple
// flags may be set at once; the headline precedence is home > office >
// external > none.
type DayStatus struct {
	Count       int
	HasHome     bool
	HasOffice   bool
	HasExternal bool
	CheckedIn   bool
	CheckedOut  bool
	Start       string
	End         string
}

// ActionService is the reservation state machine. Given a user and an
// intent it validates the session, fetches today's snapshot and decides
// what to mutate. Delegate and visitor reservations never take part.
type ActionService struct {
	sessions         *SessionService
	gateway          Gateway
	externalLocation string
	logger           *zap.Logger
	now              func() time.Time
}

func NewActionService(sessions *SessionService, gateway Gateway, externalLocation string, logger *zap.Logger) *ActionService {
	return &ActionService{
		sessions:         sessions,
		gateway:          gateway,
		externalLocation: externalLocation,
		logger:           logger,
		now:              time.Now,
	}
}

// Handle resolves an intent against today's reservations and returns the
// user-facing report. Remote failures surface as report lines, not errors.
func (s *ActionService) Handle(ctx context.Context, user *model.User, intent model.Intent) (Outcome, error) {
	if !user.Authorized() {
		return outcomeOf("You will need to connect your booking account first. Use /connect <email>."), nil
	}

	user, err := s.sessions.EnsureValid(ctx, user)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return outcomeOf("Your session has expired. Reconnect with /connect <email>."), nil
		}
		return Outcome{}, fmt.Errorf("validate session: %w", err)
	}

	loc, err := user.Location()
	if err != nil {
		return Outcome{}, err
	}
	localNow := s.now().In(loc)

	profile, err := s.gateway.Me(ctx, *user.AccessToken)
	if err != nil {
		return errorOutcome("requesting your profile", err), nil
	}

	date := localNow.Format("2006-01-02")
	items, err := s.gateway.ListReservations(ctx, *user.AccessToken, bookmydesk.ListParams{
		From: date,
		To:   date,
		Take: snapshotTake,
	})
	if err != nil {
		return errorOutcome("requesting your reservations", err), nil
	}
	snapshot := filterSelfOwned(items, profile.ID)

	switch intent {
	case model.IntentStatusQuery:
		return s.resolveStatus(snapshot, localNow), nil
	case model.IntentMarkHome:
		return s.resolveMarkHome(ctx, user, snapshot, localNow), nil
	case model.IntentMarkOffice:
		return s.resolveMarkOffice(ctx, user, snapshot), nil
	case model.IntentMarkExternal:
		return s.resolveMarkExternal(ctx, user, profile, snapshot, localNow), nil
	case model.IntentMarkNotWorking:
		return s.resolveMarkNotWorking(ctx, user, snapshot), nil
	}
	return Outcome{}, fmt.Errorf("unhandled intent %v", intent)
}

// filterSelfOwned drops delegate and visitor reservations: only spots the
// user booked for themselves are self-serviceable.
func filterSelfOwned(items []bookmydesk.Reservation, profileID string) []bookmydesk.Reservation {
	var snapshot []bookmydesk.Reservation
	for _, r := range items {
		if r.OwnerID != profileID {
			continue
		}
		if r.Type == bookmydesk.TypeVisitor {
			continue
		}
		snapshot = append(snapshot, r)
	}
	return snapshot
}

// Classify reduces a snapshot to its status flags.
func Classify(snapshot []bookmydesk.Reservation, externalLocation string) DayStatus {
	var status DayStatus
	for _, r := range snapshot {
		status.Count++
		status.Start = r.From
		status.End = r.To

		switch {
		case r.Seat != nil && externalLocation != "" && r.Seat.MapName == externalLocation:
			status.HasExternal = true
			status.CheckedIn = r.Status == bookmydesk.StatusCheckedIn
			status.CheckedOut = r.Status == bookmydesk.StatusCheckedOut
		case r.Seat != nil && r.Type == bookmydesk.TypeNormal:
			status.HasOffice = true
			status.CheckedIn = r.Status == bookmydesk.StatusCheckedIn
			status.CheckedOut = r.Status == bookmydesk.StatusCheckedOut
		case r.Seat == nil && r.Type == bookmydesk.TypeHome:
			status.HasHome = true
		}
	}
	return status
}

func (s *ActionService) resolveStatus(snapshot []bookmydesk.Reservation, localNow time.Time) Outcome {
	status := Classify(snapshot, s.externalLocation)
	today := localNow.Format("Monday 2 January")
	window := ""
	if status.Count > 0 {
		window = fmt.Sprintf(" (%s - %s)", status.Start, status.End)
	}

	var headline string
	switch {
	case status.HasHome:
		headline = fmt.Sprintf("You have a home reservation for %s%s", today, window)
	case status.HasOffice:
		headline = fmt.Sprintf("You have an office reservation for %s%s", today, window)
	case status.HasExternal:
		headline = fmt.Sprintf("You have an external reservation outside home/office for %s%s", today, window)
	default:
		headline = fmt.Sprintf("You have no reservation (yet) for %s", today)
	}

	if status.Count > 1 {
		plural := ""
		if status.Count > 2 {
			plural = "s"
		}
		headline += fmt.Sprintf(", along with %d other reservation%s", status.Count-1, plural)
	}

	lines := []string{headline + "."}
	switch {
	case status.CheckedIn:
		lines = append(lines, "You are checked in. I can check you out with /clear if you'd like.")
	case status.CheckedOut:
		lines = append(lines, "You are checked out. There is nothing left for me to do today.")
	default:
		lines = append(lines, "Are you working today? If so, where? Try /home, /office or /extern.")
	}
	return Outcome{Lines: lines}
}

func (s *ActionService) resolveMarkHome(ctx context.Context, user *model.User, snapshot []bookmydesk.Reservation, localNow time.Time) Outcome {
	for _, r := range snapshot {
		if r.Type == bookmydesk.TypeHome {
			return outcomeOf("Left as-is, you already booked a home spot.")
		}
	}

	_, err := s.gateway.CreateReservation(ctx, *user.AccessToken, bookmydesk.CreateParams{
		Type: bookmydesk.TypeHome,
		Date: localNow.Format("2006-01-02"),
		From: "00:00",
		To:   "23:59",
	})
	if err != nil {
		return outcomeOf("Failed to book you for working at home. Please try manually.")
	}
	return outcomeOf("Booked you a home spot.")
}

func (s *ActionService) resolveMarkOffice(ctx context.Context, user *model.User, snapshot []bookmydesk.Reservation) Outcome {
	for _, r := range snapshot {
		if r.Type != bookmydesk.TypeNormal || r.Seat == nil {
			continue
		}
		return s.checkInExisting(ctx, user, &r)
	}
	return outcomeOf("No office reservation found for today. Please book a seat and check in manually.")
}

// checkInExisting is the shared four-way status handling for an already
// existing seat reservation.
func (s *ActionService) checkInExisting(ctx context.Context, user *model.User, r *bookmydesk.Reservation) Outcome {
	switch r.Status {
	case bookmydesk.StatusCheckedIn:
		return outcomeOf("Left as-is, you are already checked in.")
	case bookmydesk.StatusCheckedOut:
		return outcomeOf("Did nothing, you seem to be checked out already?")
	case bookmydesk.StatusReserved:
		if err := s.gateway.CheckInOut(ctx, *user.AccessToken, r.ID, true); err != nil {
			return outcomeOf(fmt.Sprintf("Failed to check you in for your existing reservation: %v", err))
		}
		return outcomeOf(fmt.Sprintf("Checked you in at %s.", seatLabel(r)))
	}
	// Unknown status: never mutate what we do not recognize.
	return outcomeOf("Unexpected reservation status, I left everything untouched.")
}

func (s *ActionService) resolveMarkExternal(ctx context.Context, user *model.User, profile *bookmydesk.Profile, snapshot []bookmydesk.Reservation, localNow time.Time) Outcome {
	externalMap, found, err := s.externalMap(ctx, user, profile)
	switch {
	case errors.Is(err, ErrNotConfigured):
		return outcomeOf("Sorry, working externally is not supported here.")
	case err != nil:
		return errorOutcome("requesting company information", err)
	case !found:
		return outcomeOf("Failed to find the external location or its map.")
	}

	// Already booked there? Then this is just a check-in.
	for _, r := range snapshot {
		if r.Seat == nil {
			continue
		}
		if r.Seat.MapID != externalMap.ID && r.Seat.MapName != s.externalLocation {
			continue
		}
		return s.checkInExisting(ctx, user, &r)
	}

	// Trial and error over the map's seats, in listing order. At most one
	// reservation is created per invocation.
	for _, seat := range externalMap.Seats {
		reservationID, err := s.gateway.CreateReservation(ctx, *user.AccessToken, bookmydesk.CreateParams{
			Type:   bookmydesk.TypeNormal,
			Date:   localNow.Format("2006-01-02"),
			From:   localNow.Format("15:04"),
			To:     "23:59",
			SeatID: seat.ID,
		})
		if err != nil {
			continue // seat taken, try the next one
		}

		if err := s.gateway.CheckInOut(ctx, *user.AccessToken, reservationID, true); err != nil {
			// A later /office or /extern re-discovers the reserved spot and
			// checks into it.
			return outcomeOf(fmt.Sprintf("Booked you an external spot, but failed to check you in: %v", err))
		}
		return outcomeOf("Booked you an external spot and checked you in.")
	}

	return outcomeOf("Failed to book you for working externally. Please try manually.")
}

// externalMap locates the floor map configured for external work.
// ErrNotConfigured means the feature is switched off entirely.
func (s *ActionService) externalMap(ctx context.Context, user *model.User, profile *bookmydesk.Profile) (bookmydesk.Map, bool, error) {
	if s.externalLocation == "" {
		return bookmydesk.Map{}, false, ErrNotConfigured
	}

	locations, err := s.gateway.CompanyExtended(ctx, *user.AccessToken, profile.CompanyID)
	if err != nil {
		return bookmydesk.Map{}, false, err
	}

	m, ok := findFirstMap(locations, s.externalLocation)
	return m, ok, nil
}

func (s *ActionService) resolveMarkNotWorking(ctx context.Context, user *model.User, snapshot []bookmydesk.Reservation) Outcome {
	if len(snapshot) == 0 {
		return outcomeOf("No reservations found for today anyway.")
	}

	var lines []string
	for _, r := range snapshot {
		prefix := fmt.Sprintf("%s to %s (%s): ", r.StartTime(), r.EndTime(), r.LocationName())

		switch {
		case r.Status.Terminal():
			lines = append(lines, prefix+fmt.Sprintf("left as-is (%s).", r.Status))
		case r.Status == bookmydesk.StatusCheckedIn:
			if err := s.gateway.CheckInOut(ctx, *user.AccessToken, r.ID, false); err != nil {
				lines = append(lines, prefix+fmt.Sprintf("failed to check you out: %v", err))
			} else {
				lines = append(lines, prefix+"checked you out.")
			}
		case r.Status == bookmydesk.StatusReserved:
			if err := s.gateway.DeleteReservation(ctx, *user.AccessToken, r.ID); err != nil {
				lines = append(lines, prefix+fmt.Sprintf("failed to delete your reservation: %v", err))
			} else {
				lines = append(lines, prefix+"deleted your reservation.")
			}
		default:
			lines = append(lines, prefix+"unexpected status, left untouched.")
		}
	}
	return Outcome{Lines: lines}
}

// ListUpcoming renders the next week of self-owned reservations, read-only.
func (s *ActionService) ListUpcoming(ctx context.Context, user *model.User) (Outcome, error) {
	if !user.Authorized() {
		return outcomeOf("You will need to connect your booking account first. Use /connect <email>."), nil
	}

	user, err := s.sessions.EnsureValid(ctx, user)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return outcomeOf("Your session has expired. Reconnect with /connect <email>."), nil
		}
		return Outcome{}, fmt.Errorf("validate session: %w", err)
	}

	loc, err := user.Location()
	if err != nil {
		return Outcome{}, err
	}
	localNow := s.now().In(loc)

	profile, err := s.gateway.Me(ctx, *user.AccessToken)
	if err != nil {
		return errorOutcome("requesting your profile", err), nil
	}

	items, err := s.gateway.ListReservations(ctx, *user.AccessToken, bookmydesk.ListParams{
		From: localNow.Format("2006-01-02"),
		To:   localNow.AddDate(0, 0, 7).Format("2006-01-02"),
		Take: snapshotTake,
	})
	if err != nil {
		return errorOutcome("requesting your reservations", err), nil
	}

	snapshot := filterSelfOwned(items, profile.ID)
	if len(snapshot) == 0 {
		return outcomeOf("No reservations found (or too far away)."), nil
	}

	lines := []string{"Upcoming reservations:"}
	for _, r := range snapshot {
		line := fmt.Sprintf("%s, %s - %s at %s", r.DateStart, r.StartTime(), r.EndTime(), r.LocationName())
		switch r.Status {
		case bookmydesk.StatusCheckedIn:
			line += " (checked in)"
		case bookmydesk.StatusCheckedOut:
			line += " (checked out)"
		case bookmydesk.StatusCancelled, bookmydesk.StatusExpired:
			line += fmt.Sprintf(" (%s)", r.Status)
		}
		lines = append(lines, line)
	}
	return Outcome{Lines: lines}, nil
}

func findFirstMap(locations []bookmydesk.Location, name string) (bookmydesk.Map, bool) {
	for _, loc := range locations {
		if loc.Name != name || len(loc.Maps) == 0 {
			continue
		}
		return loc.Maps[0], true
	}
	return bookmydesk.Map{}, false
}

func seatLabel(r *bookmydesk.Reservation) string {
	if r.Seat != nil && r.Seat.Name != "" {
		return r.Seat.Name
	}
	return r.LocationName()
}

func errorOutcome(while string, err error) Outcome {
	return outcomeOf(fmt.Sprintf("Sorry, an error occurred while %s: %v", while, err))
}
