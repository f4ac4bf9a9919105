package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaignkit/internal/model"
	"campaignkit/internal/storage"
	"campaignkit/internal/transport"
)

// providerSession is the session payload returned by the identity provider.
type providerSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresAt    int64  `json:"expires_at"`
}

// authPayload is the envelope for every provider call that yields a user
// and/or a session.
type authPayload struct {
	User    *model.AuthUser  `json:"user,omitempty"`
	Session *providerSession `json:"session,omitempty"`
}

// Remote delegates to a backend identity provider over HTTP. Every call is
// bounded by a deadline keyed to its operation class, and all suppression
// state is owned by the instance.
type Remote struct {
	api    *transport.Client
	store  storage.Store
	log    *slog.Logger
	filter *eventFilter
	now    func() time.Time

	mu           sync.Mutex
	session      *model.Session
	refreshToken string

	subMu       sync.Mutex
	subscribers map[string]func(*model.AuthUser)
	dedupe      *Deduplicator
}

// RemoteOption configures the remote variant.
type RemoteOption func(*Remote)

// WithRemoteClock overrides the time source used by the event filter and
// session expiry checks.
func WithRemoteClock(now func() time.Time) RemoteOption {
	return func(r *Remote) { r.now = now }
}

// NewRemote builds the remote variant against the provider at baseURL.
// Transport options (HTTP client, timeouts) are passed through to the
// underlying client.
func NewRemote(baseURL string, store storage.Store, log *slog.Logger, transportOpts []transport.Option, opts ...RemoteOption) *Remote {
	if log == nil {
		log = slog.Default()
	}
	r := &Remote{
		store:       store,
		log:         log,
		now:         time.Now,
		subscribers: map[string]func(*model.AuthUser){},
		dedupe:      NewDeduplicator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.filter = newEventFilter(r.now)

	clientOpts := append([]transport.Option{transport.WithTokenSource(r.accessToken)}, transportOpts...)
	r.api = transport.NewClient(baseURL, clientOpts...)

	r.restoreSession()
	return r
}

// API exposes the authenticated transport client so the campaign and
// analytics layers reuse the same session.
func (r *Remote) API() *transport.Client {
	return r.api
}

func (r *Remote) accessToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.Token
}

func (r *Remote) SendOTP(ctx context.Context, email string, opts SendOTPOptions) error {
	if !validEmail(email) {
		return model.NewError(model.ErrorValidation, "email is required")
	}

	body := map[string]any{
		"email":              email,
		"should_create_user": opts.ShouldCreateUser,
	}
	if opts.EmailRedirectTo != "" {
		body["email_redirect_to"] = opts.EmailRedirectTo
	}
	return r.api.Do(ctx, r.api.Timeouts().Auth, http.MethodPost, "/auth/otp", body, nil)
}

func (r *Remote) VerifyOTPAndLogin(ctx context.Context, email string, otp string, opts VerifyOptions) (*model.AuthUser, error) {
	if !validEmail(email) || otp == "" {
		return nil, model.NewError(model.ErrorValidation, "email and otp are required")
	}

	var payload authPayload
	body := map[string]any{"email": email, "token": otp}
	if opts.Metadata != nil {
		body["metadata"] = opts.Metadata
	}
	if err := r.api.Do(ctx, r.api.Timeouts().Auth, http.MethodPost, "/auth/verify", body, &payload); err != nil {
		return nil, err
	}
	if payload.Session == nil {
		return nil, model.NewError(model.ErrorBusiness, "user not found after otp verification")
	}
	r.setSession(payload.Session)

	if opts.Password != "" {
		r.setPassword(ctx, opts.Password)
	}

	user := r.CurrentUser(ctx)
	r.dispatch(EventSignedIn, user)
	return user, nil
}

// setPassword runs the password-set sub-operation triggered by OTP
// verification. Failures are logged, never surfaced; the suppression
// window keeps the resulting USER_UPDATED echo away from subscribers.
func (r *Remote) setPassword(ctx context.Context, password string) {
	r.filter.beginUserUpdate()
	defer r.filter.endUserUpdate()

	body := map[string]any{"password": password}
	if err := r.api.Do(ctx, r.api.Timeouts().UserUpdate, http.MethodPut, "/auth/user", body, nil); err != nil {
		r.log.Warn("password update after otp verification failed", "error", err)
	}
}

func (r *Remote) SignUpWithPassword(ctx context.Context, email string, password string, metadata map[string]any) (*model.AuthUser, error) {
	if !validEmail(email) || password == "" {
		return nil, model.NewError(model.ErrorValidation, "email and password are required")
	}

	var payload authPayload
	body := map[string]any{"email": email, "password": password}
	if metadata != nil {
		body["metadata"] = metadata
	}
	if err := r.api.Do(ctx, r.api.Timeouts().Auth, http.MethodPost, "/auth/signup", body, &payload); err != nil {
		return nil, err
	}
	if payload.Session == nil {
		return nil, model.NewError(model.ErrorBusiness, "user not created during sign up")
	}
	r.setSession(payload.Session)

	user := r.CurrentUser(ctx)
	r.dispatch(EventSignedIn, user)
	return user, nil
}

func (r *Remote) SignInWithPassword(ctx context.Context, email string, password string) (*model.AuthUser, error) {
	if !validEmail(email) || password == "" {
		return nil, model.NewError(model.ErrorValidation, "email and password are required")
	}

	var payload authPayload
	if err := r.api.Do(ctx, r.api.Timeouts().Auth, http.MethodPost, "/auth/signin",
		map[string]any{"email": email, "password": password}, &payload); err != nil {
		return nil, err
	}
	if payload.Session == nil {
		return nil, model.NewError(model.ErrorBusiness, "user not found during sign in")
	}
	r.setSession(payload.Session)

	user := r.CurrentUser(ctx)
	r.dispatch(EventSignedIn, user)
	return user, nil
}

func (r *Remote) Logout(ctx context.Context) error {
	if err := r.api.Do(ctx, r.api.Timeouts().Auth, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}

	if err := r.clearSession(); err != nil {
		// The provider-side sign-out succeeded, but local state may linger.
		return model.WrapError(model.ErrorStorage, "clear persisted session", err)
	}
	r.dispatch(EventSignedOut, nil)
	return nil
}

// CurrentUser resolves the authenticated user: base identity joined with an
// optional profile row. A missing profile is not fatal. When the primary
// lookup fails with a timeout or an auth-class error, a cheaper
// session-only read is tried before degrading to nil.
func (r *Remote) CurrentUser(ctx context.Context) *model.AuthUser {
	session := r.currentSession()
	if session == nil {
		return nil
	}
	if session.Expired(r.now()) {
		if err := r.clearSession(); err != nil {
			r.log.Warn("purge expired session", "error", err)
		}
		return nil
	}

	var user model.AuthUser
	if err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodGet, "/auth/user", nil, &user); err != nil {
		switch model.TypeOf(err) {
		case model.ErrorTimeout, model.ErrorAuthRequired:
			return r.sessionFallback(ctx)
		default:
			r.log.Warn("current user lookup failed", "error", err)
			return nil
		}
	}

	r.joinProfile(ctx, &user)
	return &user
}

// sessionFallback is the cheaper read used when the primary lookup times
// out or is rejected by the auth layer.
func (r *Remote) sessionFallback(ctx context.Context) *model.AuthUser {
	var payload authPayload
	if err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodGet, "/auth/session", nil, &payload); err != nil {
		r.log.Warn("session fallback failed", "error", err)
		return nil
	}
	return payload.User
}

func (r *Remote) joinProfile(ctx context.Context, user *model.AuthUser) {
	var profile map[string]any
	err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodGet, "/profiles/"+user.ID, nil, &profile)
	if err != nil {
		// No profile table or no row for this user; the base record stands.
		r.log.Debug("profile lookup failed", "user_id", user.ID, "error", err)
		return
	}
	if username, ok := profile["username"].(string); ok && username != "" {
		user.Username = username
	}
	user.Profile = profile
}

// RefreshSession asks the provider for a fresh session in place.
// Best-effort: an absent session is a no-op and failures are only logged.
func (r *Remote) RefreshSession(ctx context.Context) {
	r.mu.Lock()
	refreshToken := r.refreshToken
	hasSession := r.session != nil
	r.mu.Unlock()

	if !hasSession || refreshToken == "" {
		return
	}

	var payload authPayload
	err := r.api.Do(ctx, r.api.Timeouts().Refresh, http.MethodPost, "/auth/refresh",
		map[string]any{"refresh_token": refreshToken}, &payload)
	if err != nil {
		r.log.Warn("session refresh failed", "error", err)
		return
	}
	if payload.Session != nil {
		r.setSession(payload.Session)
	}
}

// OnAuthStateChange registers a callback invoked after event filtering and
// snapshot deduplication.
func (r *Remote) OnAuthStateChange(callback func(*model.AuthUser)) *Subscription {
	id := uuid.NewString()

	r.subMu.Lock()
	r.subscribers[id] = callback
	r.subMu.Unlock()

	return newSubscription(func() {
		r.subMu.Lock()
		delete(r.subscribers, id)
		r.subMu.Unlock()
	})
}

// DeliverEvent feeds a runtime-pushed auth notification through the filter,
// resolving the current user for events that imply one.
func (r *Remote) DeliverEvent(ctx context.Context, event EventType) {
	if event == EventSignedOut {
		r.dispatch(event, nil)
		return
	}
	if r.filter.suppress(event) {
		r.log.Debug("auth event suppressed", "event", string(event))
		return
	}
	r.dispatch(event, r.CurrentUser(ctx))
}

// NoteForeground records a foreground/visibility transition consumed by the
// duplicate sign-in heuristic.
func (r *Remote) NoteForeground() {
	r.filter.noteForeground()
}

func (r *Remote) dispatch(event EventType, user *model.AuthUser) {
	if r.filter.suppress(event) {
		r.log.Debug("auth event suppressed", "event", string(event))
		return
	}
	if !r.dedupe.Changed(user) {
		return
	}

	r.subMu.Lock()
	callbacks := make([]func(*model.AuthUser), 0, len(r.subscribers))
	for _, cb := range r.subscribers {
		callbacks = append(callbacks, cb)
	}
	r.subMu.Unlock()

	for _, cb := range callbacks {
		cb(cloneUser(user))
	}
}

func (r *Remote) currentSession() *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	copied := *r.session
	return &copied
}

func (r *Remote) setSession(ps *providerSession) {
	session := &model.Session{
		UserID:    ps.UserID,
		Token:     ps.AccessToken,
		ExpiresAt: ps.ExpiresAt,
	}

	r.mu.Lock()
	r.session = session
	if ps.RefreshToken != "" {
		r.refreshToken = ps.RefreshToken
	}
	r.mu.Unlock()

	raw, err := json.Marshal(session)
	if err == nil {
		err = r.store.Set(storage.KeySession, raw)
	}
	if err != nil {
		r.log.Warn("persist session", "error", err)
	}
}

func (r *Remote) clearSession() error {
	r.mu.Lock()
	r.session = nil
	r.refreshToken = ""
	r.mu.Unlock()

	return r.store.Delete(storage.KeySession)
}

// restoreSession loads a previously persisted session record. Corrupted or
// expired state reads as "no session".
func (r *Remote) restoreSession() {
	raw, found, err := r.store.Get(storage.KeySession)
	if err != nil || !found {
		return
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return
	}
	if session.Expired(r.now()) {
		if err := r.store.Delete(storage.KeySession); err != nil {
			r.log.Warn("purge expired session", "error", err)
		}
		return
	}

	r.mu.Lock()
	r.session = &session
	r.mu.Unlock()
}
