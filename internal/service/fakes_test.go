package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deskbot-io/deskbot/internal/bookmydesk"
	"github.com/deskbot-io/deskbot/internal/model"
	"go.uber.org/zap"
)

// fakeGateway records every call it receives so tests can assert on exactly
// which mutations happened and in what order.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	profile      *bookmydesk.Profile
	reservations []bookmydesk.Reservation
	locations    []bookmydesk.Location

	loginPair  *bookmydesk.TokenPair
	loginErr   error
	refresh    func() (*bookmydesk.TokenPair, error)
	revokeErr  error
	listErr    error
	meErr      error
	companyErr error

	createID        string
	createErr       error
	createErrBySeat map[string]error
	checkInOutErr   error
	deleteErr       error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		profile:  &bookmydesk.Profile{ID: "me", Email: "me@example.test", CompanyID: "company-1"},
		createID: "created-1",
	}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) count(prefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, call := range g.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (g *fakeGateway) RequestLoginCode(ctx context.Context, email string) error {
	g.record("request_login:" + email)
	return nil
}

func (g *fakeGateway) TokenLogin(ctx context.Context, email, otp string) (*bookmydesk.TokenPair, error) {
	g.record("token_login:" + email)
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	if g.loginPair == nil {
		return &bookmydesk.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}, nil
	}
	return g.loginPair, nil
}

func (g *fakeGateway) TokenRefresh(ctx context.Context, refreshToken string) (*bookmydesk.TokenPair, error) {
	g.record("token_refresh")
	if g.refresh != nil {
		return g.refresh()
	}
	return &bookmydesk.TokenPair{AccessToken: "access2", RefreshToken: "refresh2", ExpiresIn: 900}, nil
}

func (g *fakeGateway) RevokeToken(ctx context.Context, accessToken string) error {
	g.record("revoke")
	return g.revokeErr
}

func (g *fakeGateway) Me(ctx context.Context, accessToken string) (*bookmydesk.Profile, error) {
	g.record("me")
	if g.meErr != nil {
		return nil, g.meErr
	}
	return g.profile, nil
}

func (g *fakeGateway) CompanyExtended(ctx context.Context, accessToken, companyID string) ([]bookmydesk.Location, error) {
	g.record("company:" + companyID)
	if g.companyErr != nil {
		return nil, g.companyErr
	}
	return g.locations, nil
}

func (g *fakeGateway) ListReservations(ctx context.Context, accessToken string, params bookmydesk.ListParams) ([]bookmydesk.Reservation, error) {
	g.record("list")
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.reservations, nil
}

func (g *fakeGateway) CreateReservation(ctx context.Context, accessToken string, params bookmydesk.CreateParams) (string, error) {
	g.record("create:" + params.SeatID)
	if err, ok := g.createErrBySeat[params.SeatID]; ok && err != nil {
		return "", err
	}
	if g.createErr != nil {
		return "", g.createErr
	}
	return g.createID, nil
}

func (g *fakeGateway) CheckInOut(ctx context.Context, accessToken, reservationID string, checkIn bool) error {
	if checkIn {
		g.record("checkin:" + reservationID)
	} else {
		g.record("checkout:" + reservationID)
	}
	return g.checkInOutErr
}

func (g *fakeGateway) DeleteReservation(ctx context.Context, accessToken, reservationID string) error {
	g.record("delete:" + reservationID)
	return g.deleteErr
}

// fakeStore is an in-memory UserStore.
type fakeStore struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
}

func newFakeStore(users ...*model.User) *fakeStore {
	s := &fakeStore{users: make(map[int64]*model.User), nextID: 1}
	for _, u := range users {
		if u.ID == 0 {
			u.ID = s.nextID
		}
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ChatID == chatID {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) UpdateProfile(ctx context.Context, user *model.User) error {
	return s.put(user)
}

func (s *fakeStore) UpdateSession(ctx context.Context, user *model.User) error {
	return s.put(user)
}

func (s *fakeStore) UpdateReminders(ctx context.Context, user *model.User) error {
	return s.put(user)
}

func (s *fakeStore) put(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) SetLastNotified(ctx context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	user.LastNotifiedAt = &at
	return nil
}

func (s *fakeStore) ListWithSession(ctx context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*model.User
	for id := int64(0); id < s.nextID; id++ {
		if u, ok := s.users[id]; ok && u.RefreshToken != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// fakeSender records deliveries and can fail per chat id.
type fakeSender struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[int64][]string), failFor: make(map[int64]error)}
}

func (s *fakeSender) Send(ctx context.Context, user *model.User, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[user.ChatID]; err != nil {
		return err
	}
	s.sent[user.ChatID] = append(s.sent[user.ChatID], text)
	return nil
}

func (s *fakeSender) sentTo(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[chatID])
}

// fakeClock is a settable clock shared across the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// connectedUser builds a user with a valid session expiring in the future.
func connectedUser(id int64, now time.Time) *model.User {
	return &model.User{
		ID:                   id,
		ChatID:               1000 + id,
		Email:                fmt.Sprintf("user%d@example.test", id),
		Timezone:             "Europe/Amsterdam",
		AccessToken:          strPtr("access"),
		AccessTokenExpiresAt: timePtr(now.Add(time.Hour)),
		RefreshToken:         strPtr("refresh"),
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }
