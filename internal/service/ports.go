package service

import (
	"context"
	"errors"
	"time"

	"github.com/deskbot-io/deskbot/internal/bookmydesk"
	"github.com/deskbot-io/deskbot/internal/model"
)

var (
	// ErrAuthExpired means a token refresh was rejected. The session has been
	// cleared and the user must log in again.
	ErrAuthExpired = errors.New("session expired, reconnect required")

	// ErrAuthFailed means a one-time login code was rejected.
	ErrAuthFailed = errors.New("login failed")

	// ErrNotConfigured means an optional feature has no configuration backing
	// it. Reported as "not supported", never as a failure.
	ErrNotConfigured = errors.New("feature not configured")
)

// Gateway is the slice of the booking API the bot needs. Implemented by
// bookmydesk.Client; faked in tests.
type Gateway interface {
	RequestLoginCode(ctx context.Context, email string) error
	TokenLogin(ctx context.Context, email, otp string) (*bookmydesk.TokenPair, error)
	TokenRefresh(ctx context.Context, refreshToken string) (*bookmydesk.TokenPair, error)
	RevokeToken(ctx context.Context, accessToken string) error

	Me(ctx context.Context, accessToken string) (*bookmydesk.Profile, error)
	CompanyExtended(ctx context.Context, accessToken, companyID string) ([]bookmydesk.Location, error)

	ListReservations(ctx context.Context, accessToken string, params bookmydesk.ListParams) ([]bookmydesk.Reservation, error)
	CreateReservation(ctx context.Context, accessToken string, params bookmydesk.CreateParams) (string, error)
	CheckInOut(ctx context.Context, accessToken, reservationID string, checkIn bool) error
	DeleteReservation(ctx context.Context, accessToken, reservationID string) error
}

// UserStore is the persistence the services depend on. Implemented by
// repository.UserRepository.
type UserStore interface {
	GetByChatID(ctx context.Context, chatID int64) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, user *model.User) error
	UpdateSession(ctx context.Context, user *model.User) error
	UpdateReminders(ctx context.Context, user *model.User) error
	SetLastNotified(ctx context.Context, userID int64, at time.Time) error
	ListWithSession(ctx context.Context) ([]*model.User, error)
}

// Sender delivers a message to a user over the chat transport.
type Sender interface {
	Send(ctx context.Context, user *model.User, text string) error
}
