package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/deskbot-io/deskbot/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, chat_id, email, name, locale, timezone,
		access_token, access_token_expires_at, refresh_token,
		reminder_monday, reminder_tuesday, reminder_wednesday, reminder_thursday, reminder_friday,
		last_notified_at, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (chat_id, email, name, locale, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		user.ChatID,
		user.Email,
		user.Name,
		user.Locale,
		user.Timezone,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByChatID fetches a user by chat id. Returns nil when not found.
func (r *UserRepository) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by chat id: %w", err)
	}
	return user, nil
}

// UpdateProfile updates identity fields (email, name, locale, timezone).
func (r *UserRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, locale = $3, timezone = $4
		WHERE id = $5
	`

	result, err := r.pool.Exec(ctx, query, user.Email, user.Name, user.Locale, user.Timezone, user.ID)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// UpdateSession writes the session fields as a whole, including clears.
func (r *UserRepository) UpdateSession(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET access_token = $1, access_token_expires_at = $2, refresh_token = $3
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, user.AccessToken, user.AccessTokenExpiresAt, user.RefreshToken, user.ID)
	if err != nil {
		return fmt.Errorf("update user session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// UpdateReminders writes the five per-weekday reminder times.
func (r *UserRepository) UpdateReminders(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET reminder_monday = $1, reminder_tuesday = $2, reminder_wednesday = $3,
			reminder_thursday = $4, reminder_friday = $5
		WHERE id = $6
	`

	result, err := r.pool.Exec(
		ctx, query,
		dayTimeValue(user.ReminderMonday),
		dayTimeValue(user.ReminderTuesday),
		dayTimeValue(user.ReminderWednesday),
		dayTimeValue(user.ReminderThursday),
		dayTimeValue(user.ReminderFriday),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user reminders: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// SetLastNotified stamps the last automated notification time.
func (r *UserRepository) SetLastNotified(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE users SET last_notified_at = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("set last notified: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListWithSession returns every user holding an active session, i.e. a
// non-null refresh token.
func (r *UserRepository) ListWithSession(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token IS NOT NULL ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users with session: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	var mon, tue, wed, thu, fri *string

	err := row.Scan(
		&user.ID,
		&user.ChatID,
		&user.Email,
		&user.Name,
		&user.Locale,
		&user.Timezone,
		&user.AccessToken,
		&user.AccessTokenExpiresAt,
		&user.RefreshToken,
		&mon,
		&tue,
		&wed,
		&thu,
		&fri,
		&user.LastNotifiedAt,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if user.ReminderMonday, err = parseDayTime(mon); err != nil {
		return nil, err
	}
	if user.ReminderTuesday, err = parseDayTime(tue); err != nil {
		return nil, err
	}
	if user.ReminderWednesday, err = parseDayTime(wed); err != nil {
		return nil, err
	}
	if user.ReminderThursday, err = parseDayTime(thu); err != nil {
		return nil, err
	}
	if user.ReminderFriday, err = parseDayTime(fri); err != nil {
		return nil, err
	}

	return &user, nil
}

func parseDayTime(s *string) (*model.DayTime, error) {
	if s == nil {
		return nil, nil
	}
	d, err := model.ParseDayTime(*s)
	if err != nil {
		return nil, fmt.Errorf("stored reminder time: %w", err)
	}
	return &d, nil
}

func dayTimeValue(d *model.DayTime) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
