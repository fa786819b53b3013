package service

import (
	"context"
	"fmt"
	"time"

	"github.com/deskbot-io/deskbot/internal/model"
	"go.uber.org/zap"
)

// SessionService keeps a user's access/refresh token pair valid. Every
// network effect is an explicit call here; nothing refreshes behind a read.
type SessionService struct {
	store    UserStore
	gateway  Gateway
	tokenTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionService(store UserStore, gateway Gateway, tokenTTL time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:    store,
		gateway:  gateway,
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// EnsureValid returns the user untouched while the stored access token is
// still valid, and refreshes otherwise.
func (s *SessionService) EnsureValid(ctx context.Context, user *model.User) (*model.User, error) {
	if !user.AccessTokenExpired(s.now()) {
		return user, nil
	}
	return s.Refresh(ctx, user)
}

// Refresh exchanges the stored refresh token for a new pair. A rejected
// refresh is terminal: all session fields are cleared, persisted, and
// ErrAuthExpired is returned. It is never retried silently.
func (s *SessionService) Refresh(ctx context.Context, user *model.User) (*model.User, error) {
	if user.RefreshToken == nil {
		return nil, ErrAuthExpired
	}

	pair, err := s.gateway.TokenRefresh(ctx, *user.RefreshToken)
	if err != nil {
		s.logger.Warn("Token refresh rejected, clearing session",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)

		user.ClearSession()
		if storeErr := s.store.UpdateSession(ctx, user); storeErr != nil {
			return nil, fmt.Errorf("clear session: %w", storeErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	user.SetSession(pair.AccessToken, pair.RefreshToken, s.expiry(pair.ExpiresIn))
	if err := s.store.UpdateSession(ctx, user); err != nil {
		return nil, fmt.Errorf("persist refreshed session: %w", err)
	}

	s.logger.Info("Session refreshed", zap.Int64("user_id", user.ID))
	return user, nil
}

// RequestLoginCode stores the email and asks the API to mail a one-time code.
func (s *SessionService) RequestLoginCode(ctx context.Context, user *model.User, email string) error {
	user.Email = email
	if err := s.store.UpdateProfile(ctx, user); err != nil {
		return fmt.Errorf("store email: %w", err)
	}

	if err := s.gateway.RequestLoginCode(ctx, email); err != nil {
		return fmt.Errorf("request login code: %w", err)
	}

	s.logger.Info("Login code requested", zap.Int64("user_id", user.ID))
	return nil
}

// Login performs the single-attempt code exchange. A requested login code
// must already be underway; a rejected code yields ErrAuthFailed.
func (s *SessionService) Login(ctx context.Context, user *model.User, otp string) (*model.User, error) {
	if user.Email == "" {
		return nil, fmt.Errorf("%w: no login code requested", ErrAuthFailed)
	}

	pair, err := s.gateway.TokenLogin(ctx, user.Email, otp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	user.SetSession(pair.AccessToken, pair.RefreshToken, s.expiry(pair.ExpiresIn))
	if err := s.store.UpdateSession(ctx, user); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.logger.Info("User connected booking account", zap.Int64("user_id", user.ID))
	return user, nil
}

// Logout revokes the session remotely on a best-effort basis and always
// clears it locally.
func (s *SessionService) Logout(ctx context.Context, user *model.User) error {
	if user.AccessToken != nil {
		if err := s.gateway.RevokeToken(ctx, *user.AccessToken); err != nil {
			s.logger.Warn("Remote token revoke failed, clearing locally anyway",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	user.ClearSession()
	if err := s.store.UpdateSession(ctx, user); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.logger.Info("User disconnected booking account", zap.Int64("user_id", user.ID))
	return nil
}

func (s *SessionService) expiry(expiresIn int) time.Time {
	ttl := s.tokenTTL
	if expiresIn > 0 {
		ttl = time.Duration(expiresIn) * time.Second
	}
	return s.now().Add(ttl)
}
