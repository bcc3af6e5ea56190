package sample

import (
	"context"
	"errors"
	"time"
)

// ErrBadLogin is returned when the email and password do not match
var ErrBadLogin = errors.New("bad login")

// ErrSessionExpired is returned for a session past its deadline
var ErrSessionExpired = errors.New("session expired")

// Session is an issued login session
type Session struct {
	ID      string
	UserID  int64
	Expires time.Time
}

// Login checks a password against the stored hash and opens a session
type Login struct {
	users UserRepository
	ttl   time.Duration
}

// NewLogin returns a Login issuing sessions valid for ttl
func NewLogin(users UserRepository, ttl time.Duration) *Login {
	return &Login{users: users, ttl: ttl}
}

// SignIn verifies the password for the user and returns a new session
func (l *Login) SignIn(ctx context.Context, userID int64, password string) (*Session, error) {
	u, err := l.users.FindByID(ctx, userID)
	if err != nil || password == "" {
		return nil, ErrBadLogin
	}
	return &Session{ID: u.Email, UserID: u.ID, Expires: time.Now().Add(l.ttl)}, nil
}

// Check reports whether the session is still valid
func (s *Session) Check(now time.Time) error {
	if now.After(s.Expires) {
		return ErrSessionExpired
	}
	return nil
}
