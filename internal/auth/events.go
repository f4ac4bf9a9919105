package auth

import (
	"sync"
	"time"

	"campaignkit/internal/model"
)

// EventType identifies an auth-state notification delivered by a backend
// or synthesized by a service's own lifecycle transitions.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventUserUpdated    EventType = "USER_UPDATED"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Suppression windows for the remote event filter.
const (
	// userUpdateSettle extends suppression of USER_UPDATED past the end of
	// the service's own password-set sub-operation, absorbing the echo of
	// its own write.
	userUpdateSettle = 2 * time.Second
	// foregroundWindow suppresses SIGNED_IN fired within this interval of a
	// foreground transition; some runtimes re-announce authentication when
	// the app regains focus.
	foregroundWindow = time.Second
)

// eventFilter decides which notifications are forwarded to subscribers.
// State is owned by the service instance that created it, never shared
// package-wide.
type eventFilter struct {
	mu             sync.Mutex
	updatingUser   bool
	settleUntil    time.Time
	lastForeground time.Time
	now            func() time.Time
}

func newEventFilter(now func() time.Time) *eventFilter {
	if now == nil {
		now = time.Now
	}
	return &eventFilter{now: now}
}

// beginUserUpdate marks the service's password-set sub-operation as in
// flight. endUserUpdate closes it and opens the settling window.
func (f *eventFilter) beginUserUpdate() {
	f.mu.Lock()
	f.updatingUser = true
	f.mu.Unlock()
}

func (f *eventFilter) endUserUpdate() {
	f.mu.Lock()
	f.updatingUser = false
	f.settleUntil = f.now().Add(userUpdateSettle)
	f.mu.Unlock()
}

func (f *eventFilter) noteForeground() {
	f.mu.Lock()
	f.lastForeground = f.now()
	f.mu.Unlock()
}

// suppress reports whether the event must be dropped before it reaches any
// subscriber.
func (f *eventFilter) suppress(event EventType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch event {
	case EventUserUpdated:
		return f.updatingUser || f.now().Before(f.settleUntil)
	case EventSignedIn:
		return !f.lastForeground.IsZero() && f.now().Sub(f.lastForeground) < foregroundWindow
	}
	return false
}

// Deduplicator drops notifications whose user snapshot deep-equals the last
// delivered one, so unchanged state never reaches the controller.
type Deduplicator struct {
	mu        sync.Mutex
	delivered bool
	last      *model.AuthUser
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Changed records the snapshot and reports whether it differs from the
// previously delivered one. The first snapshot always counts as changed.
func (d *Deduplicator) Changed(user *model.AuthUser) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.delivered && user.Equal(d.last) {
		return false
	}
	d.delivered = true
	d.last = cloneUser(user)
	return true
}

func cloneUser(u *model.AuthUser) *model.AuthUser {
	if u == nil {
		return nil
	}
	out := *u
	if u.Profile != nil {
		out.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			out.Profile[k] = v
		}
	}
	return &out
}
