package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User is one chat identity with its booking session and reminder preferences.
// The record is created on first interaction and never deleted; disconnecting
// only clears the session fields.
type User struct {
	ID        int64      `json:"id"`
	ChatID    int64      `json:"chat_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Locale    string     `json:"locale"`
	Timezone  string     `json:"timezone"`
	CreatedAt time.Time  `json:"created_at"`

	// Session fields. A nil refresh token means the user is not connected.
	AccessToken          *string    `json:"-"`
	AccessTokenExpiresAt *time.Time `json:"-"`
	RefreshToken         *string    `json:"-"`

	// Per-weekday reminder times (local time). Nil disables the reminder.
	ReminderMonday    *DayTime `json:"reminder_monday"`
	ReminderTuesday   *DayTime `json:"reminder_tuesday"`
	ReminderWednesday *DayTime `json:"reminder_wednesday"`
	ReminderThursday  *DayTime `json:"reminder_thursday"`
	ReminderFriday    *DayTime `json:"reminder_friday"`

	LastNotifiedAt *time.Time `json:"last_notified_at"`
}

// Authorized reports whether the user has a linked booking account.
func (u *User) Authorized() bool {
	return u.RefreshToken != nil
}

// AccessTokenExpired reports whether the access token needs a refresh. A
// missing token or expiry counts as expired.
func (u *User) AccessTokenExpired(now time.Time) bool {
	if u.AccessToken == nil || u.AccessTokenExpiresAt == nil {
		return true
	}
	return !u.AccessTokenExpiresAt.After(now)
}

// ClearSession drops all session fields, leaving preferences intact.
func (u *User) ClearSession() {
	u.AccessToken = nil
	u.AccessTokenExpiresAt = nil
	u.RefreshToken = nil
}

// SetSession stores a fresh token pair with the given expiry.
func (u *User) SetSession(accessToken, refreshToken string, expiresAt time.Time) {
	u.AccessToken = &accessToken
	u.RefreshToken = &refreshToken
	u.AccessTokenExpiresAt = &expiresAt
}

// ReminderFor returns the reminder time configured for the given weekday.
// Saturday and Sunday are never eligible, regardless of stored values.
func (u *User) ReminderFor(weekday time.Weekday) *DayTime {
	switch weekday {
	case time.Monday:
		return u.ReminderMonday
	case time.Tuesday:
		return u.ReminderTuesday
	case time.Wednesday:
		return u.ReminderWednesday
	case time.Thursday:
		return u.ReminderThursday
	case time.Friday:
		return u.ReminderFriday
	}
	return nil
}

// SetReminder stores a reminder time for a weekday. Returns false for
// weekends, which cannot carry a reminder.
func (u *User) SetReminder(weekday time.Weekday, at *DayTime) bool {
	switch weekday {
	case time.Monday:
		u.ReminderMonday = at
	case time.Tuesday:
		u.ReminderTuesday = at
	case time.Wednesday:
		u.ReminderWednesday = at
	case time.Thursday:
		u.ReminderThursday = at
	case time.Friday:
		u.ReminderFriday = at
	default:
		return false
	}
	return true
}

// Location resolves the user's IANA timezone.
func (u *User) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", u.Timezone, err)
	}
	return loc, nil
}

// DayTime is a wall-clock time of day without a date, e.g. a reminder at 08:30.
type DayTime struct {
	Hour   int
	Minute int
}

// ParseDayTime parses "HH:MM" in 24-hour notation. Trailing input is
// rejected, "09:30am" is not a valid time.
func ParseDayTime(s string) (DayTime, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return DayTime{}, fmt.Errorf("parse time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return DayTime{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return DayTime{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return DayTime{}, fmt.Errorf("time %q out of range", s)
	}
	return DayTime{Hour: hour, Minute: minute}, nil
}

func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// Minutes returns the time of day as minutes since midnight.
func (d DayTime) Minutes() int {
	return d.Hour*60 + d.Minute
}

// Passed reports whether the given moment is at or past this time of day.
func (d DayTime) Passed(at time.Time) bool {
	return at.Hour()*60+at.Minute() >= d.Minutes()
}
