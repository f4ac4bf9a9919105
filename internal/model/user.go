package model

import (
	"reflect"
	"strings"
	"time"
)

// AuthUser is the identity record exposed to the rest of the application.
// Profile carries optional fields joined from the profile table; it is nil
// when no profile row exists.
type AuthUser struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Profile   map[string]any `json:"profile,omitempty"`
}

// Equal reports deep value-equality between two user snapshots. Both nil
// counts as equal. Change notifications must only fire when this is false.
func (u *AuthUser) Equal(other *AuthUser) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID &&
		u.Email == other.Email &&
		u.Username == other.Username &&
		u.CreatedAt.Equal(other.CreatedAt) &&
		u.UpdatedAt.Equal(other.UpdatedAt) &&
		reflect.DeepEqual(u.Profile, other.Profile)
}

// UsernameFromEmail derives the default username from the local part of an
// email address.
func UsernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// Session is a time-bounded proof of authentication. ExpiresAt is an
// absolute timestamp in Unix milliseconds; a session with ExpiresAt at or
// before now is treated as absent.
type Session struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UnixMilli()
}

// SessionTTL is how long a freshly created or refreshed session stays valid.
const SessionTTL = 24 * time.Hour
