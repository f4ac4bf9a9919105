package auth

import (
	"context"
	"log/slog"
	"sync"

	"campaignkit/internal/model"
)

// State is the controller snapshot exposed to presentation code and the
// session gate.
type State struct {
	User             *model.AuthUser
	Loading          bool
	OperationLoading bool
	Initialized      bool
}

// Controller owns the authenticated-user state for the rest of the app.
// Start runs exactly one initialization sequence and establishes exactly
// one change subscription; Close tears it down exactly once.
type Controller struct {
	svc Service
	log *slog.Logger

	mu          sync.Mutex
	state       State
	sub         *Subscription
	started     bool
	closed      bool
	operational bool
	observers   []func(State)
}

func NewController(svc Service, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		svc:   svc,
		log:   log,
		state: State{Loading: true},
	}
}

// Start fetches the current user once, marks the controller initialized
// regardless of the outcome, then subscribes to change notifications.
// Subsequent calls are no-ops.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	user := c.svc.CurrentUser(ctx)

	c.mu.Lock()
	c.state.User = user
	c.state.Loading = false
	c.state.Initialized = true
	c.mu.Unlock()
	c.notify()

	sub := c.svc.OnAuthStateChange(func(user *model.AuthUser) {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.state.User = user
		c.mu.Unlock()
		c.notify()
	})

	c.mu.Lock()
	if c.closed {
		// Closed while subscribing; tear the subscription down immediately.
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	c.sub = sub
	c.mu.Unlock()
}

// Close detaches the change subscription. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.closed = true
	c.mu.Unlock()

	sub.Unsubscribe()
}

// State returns a copy of the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetOperationLoading reports in-progress state for long-running auth
// actions. Advisory for the UI; it is not a concurrency lock.
func (c *Controller) SetOperationLoading(loading bool) {
	c.mu.Lock()
	c.state.OperationLoading = loading
	c.mu.Unlock()
	c.notify()
}

// BeginOperation guards re-entrant auth operations: it reports false while
// another operation is outstanding. Callers that acquire it must release
// with EndOperation.
func (c *Controller) BeginOperation() bool {
	c.mu.Lock()
	if c.operational {
		c.mu.Unlock()
		return false
	}
	c.operational = true
	c.state.OperationLoading = true
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller) EndOperation() {
	c.mu.Lock()
	c.operational = false
	c.state.OperationLoading = false
	c.mu.Unlock()
	c.notify()
}

// Observe registers a listener invoked with every state change. Intended
// for the presentation layer; listeners must not block.
func (c *Controller) Observe(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	state := c.state
	observers := make([]func(State), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
