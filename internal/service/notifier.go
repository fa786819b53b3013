package service

import (
	"context"
	"time"

	"github.com/deskbot-io/deskbot/internal/model"
	"go.uber.org/zap"
)

// Notifier dispatches the daily status reminders. It is idempotent per local
// calendar day regardless of how often it runs: each user's last-notified
// stamp is persisted before the next user is processed.
type Notifier struct {
	store    UserStore
	sessions *SessionService
	actions  *ActionService
	sender   Sender
	logger   *zap.Logger
	now      func() time.Time
}

func NewNotifier(store UserStore, sessions *SessionService, actions *ActionService, sender Sender, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:    store,
		sessions: sessions,
		actions:  actions,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch sends a status summary to every user whose reminder window has
// opened today. One user's failure never aborts the batch.
func (n *Notifier) Dispatch(ctx context.Context) error {
	users, err := n.store.ListWithSession(ctx)
	if err != nil {
		return err
	}

	// Group once in memory so "local now" is computed per timezone, not per
	// user.
	buckets := make(map[string][]*model.User)
	for _, user := range users {
		buckets[user.Timezone] = append(buckets[user.Timezone], user)
	}

	for tz, bucket := range buckets {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			n.logger.Warn("Skipping users with invalid timezone",
				zap.String("timezone", tz),
				zap.Int("users", len(bucket)),
				zap.Error(err),
			)
			continue
		}

		localNow := n.now().In(loc)
		for _, user := range bucket {
			if !n.eligible(user, localNow) {
				continue
			}
			n.dispatchOne(ctx, user)
		}
	}

	return nil
}

// eligible applies the reminder rules: a time must be configured for today's
// weekday (Mon-Fri only), the local time must have passed it, and no
// notification may have been sent since local midnight.
func (n *Notifier) eligible(user *model.User, localNow time.Time) bool {
	preferred := user.ReminderFor(localNow.Weekday())
	if preferred == nil {
		return false
	}
	if !preferred.Passed(localNow) {
		return false
	}

	if user.LastNotifiedAt != nil {
		midnight := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, localNow.Location())
		if user.LastNotifiedAt.After(midnight) {
			return false
		}
	}
	return true
}

func (n *Notifier) dispatchOne(ctx context.Context, user *model.User) {
	outcome, err := n.actions.Handle(ctx, user, model.IntentStatusQuery)
	if err != nil {
		n.logger.Error("Notification status query failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return
	}
	if outcome.Empty() {
		return
	}

	if err := n.sender.Send(ctx, user, outcome.Report()); err != nil {
		n.logger.Error("Notification delivery failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return
	}

	// Persist before moving on: a crash mid-batch must not double-send to
	// users already handled.
	sentAt := n.now()
	if err := n.store.SetLastNotified(ctx, user.ID, sentAt); err != nil {
		n.logger.Error("Failed to record notification",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return
	}
	user.LastNotifiedAt = &sentAt

	n.logger.Info("Notification sent", zap.Int64("user_id", user.ID))
}

// RefreshSessions runs EnsureValid for every connected user, keeping
// sessions warm between interactions. Failures are isolated per user; a
// rejected refresh already cleared that user's session.
func (n *Notifier) RefreshSessions(ctx context.Context) error {
	users, err := n.store.ListWithSession(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		if _, err := n.sessions.EnsureValid(ctx, user); err != nil {
			n.logger.Warn("Scheduled session refresh failed",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}
