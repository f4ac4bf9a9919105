// Package auth implements the authentication session manager: one
// capability interface with two interchangeable backends, the session
// controller consumed by presentation code, and the navigation gate.
package auth

import (
	"context"
	"sync"

	"campaignkit/internal/model"
)

// SendOTPOptions mirrors the provider's passcode-delivery knobs.
type SendOTPOptions struct {
	ShouldCreateUser bool
	EmailRedirectTo  string
}

// VerifyOptions carries the optional secondary inputs for OTP verification.
// A non-empty Password triggers the service's password-set sub-operation
// after a successful verification.
type VerifyOptions struct {
	Password string
	Metadata map[string]any
}

// Service is the capability interface every backend variant fulfills.
// Callers depend only on this contract; the variant is selected at
// construction time.
//
// Error discipline: operations return classified *model.Error values, never
// panic. CurrentUser has the strongest guarantee: it degrades to nil on any
// unrecoverable path. RefreshSession is best-effort; failures are logged,
// not surfaced.
type Service interface {
	SendOTP(ctx context.Context, email string, opts SendOTPOptions) error
	VerifyOTPAndLogin(ctx context.Context, email string, otp string, opts VerifyOptions) (*model.AuthUser, error)
	SignUpWithPassword(ctx context.Context, email string, password string, metadata map[string]any) (*model.AuthUser, error)
	SignInWithPassword(ctx context.Context, email string, password string) (*model.AuthUser, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) *model.AuthUser
	RefreshSession(ctx context.Context)
	OnAuthStateChange(callback func(*model.AuthUser)) *Subscription
}

// Subscription detaches an auth-state callback. Unsubscribe is idempotent.
type Subscription struct {
	once sync.Once
	stop func()
}

func newSubscription(stop func()) *Subscription {
	return &Subscription{stop: stop}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.stop)
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	at := -1
	for i, r := range email {
		if r == '@' {
			if at >= 0 {
				return false
			}
			at = i
		}
	}
	return at > 0 && at < len(email)-1
}
