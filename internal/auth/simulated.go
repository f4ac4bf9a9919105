package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campaignkit/internal/model"
	"campaignkit/internal/storage"
)

// defaultPollInterval is how often the simulated variant re-reads the
// persisted session to detect state changes. Polling stands in for the push
// notifications a real provider delivers.
const defaultPollInterval = 2 * time.Second

// Simulated is the local backend variant: no network, user directory and
// session persisted to a key-value store. OTP delivery is a formality and
// every code verifies.
type Simulated struct {
	store        storage.Store
	log          *slog.Logger
	pollInterval time.Duration
	now          func() time.Time
}

// SimulatedOption configures the simulated variant.
type SimulatedOption func(*Simulated)

// WithPollInterval overrides the change-detection poll interval.
func WithPollInterval(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.pollInterval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) { s.now = now }
}

func NewSimulated(store storage.Store, log *slog.Logger, opts ...SimulatedOption) *Simulated {
	if log == nil {
		log = slog.Default()
	}
	s := &Simulated{
		store:        store,
		log:          log,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) SendOTP(_ context.Context, email string, _ SendOTPOptions) error {
	if !validEmail(email) {
		return model.NewError(model.ErrorValidation, "email is required")
	}
	// No delivery happens locally; the code is accepted on verification.
	return nil
}

func (s *Simulated) VerifyOTPAndLogin(_ context.Context, email string, otp string, opts VerifyOptions) (*model.AuthUser, error) {
	if !validEmail(email) || otp == "" {
		return nil, model.NewError(model.ErrorValidation, "email and otp are required")
	}

	user, err := s.findUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		username := ""
		if v, ok := opts.Metadata["username"].(string); ok {
			username = v
		}
		user, err = s.createUser(email, username)
		if err != nil {
			return nil, err
		}
	}

	if opts.Password != "" {
		s.log.Debug("otp verification carried a password; a real backend would set it", "email", email)
	}

	if err := s.createSession(user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Simulated) SignUpWithPassword(_ context.Context, email string, password string, metadata map[string]any) (*model.AuthUser, error) {
	if !validEmail(email) || password == "" {
		return nil, model.NewError(model.ErrorValidation, "email and password are required")
	}

	existing, err := s.findUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewError(model.ErrorBusiness, "user already registered")
	}

	username := ""
	if v, ok := metadata["username"].(string); ok {
		username = v
	}
	user, err := s.createUser(email, username)
	if err != nil {
		return nil, err
	}
	if err := s.createSession(user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Simulated) SignInWithPassword(_ context.Context, email string, password string) (*model.AuthUser, error) {
	if !validEmail(email) || password == "" {
		return nil, model.NewError(model.ErrorValidation, "email and password are required")
	}

	user, err := s.findUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewError(model.ErrorBusiness, "no account found with this email")
	}

	if err := s.createSession(user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Simulated) Logout(_ context.Context) error {
	if err := s.store.Delete(storage.KeySession); err != nil {
		return model.WrapError(model.ErrorStorage, "clear persisted session", err)
	}
	return nil
}

// CurrentUser never fails outward: missing, corrupted or expired session
// state all read as "no user". An expired session is purged as a side
// effect of the read.
func (s *Simulated) CurrentUser(_ context.Context) *model.AuthUser {
	session, ok := s.readSession()
	if !ok {
		return nil
	}
	if session.Expired(s.now()) {
		if err := s.store.Delete(storage.KeySession); err != nil {
			s.log.Warn("purge expired session", "error", err)
		}
		return nil
	}

	user, err := s.findUserByID(session.UserID)
	if err != nil {
		s.log.Warn("read user directory", "error", err)
		return nil
	}
	return user
}

// RefreshSession extends the persisted session by the session TTL, keeping
// the same token identity. An absent session is a no-op.
func (s *Simulated) RefreshSession(_ context.Context) {
	session, ok := s.readSession()
	if !ok {
		return
	}

	session.ExpiresAt = s.now().Add(model.SessionTTL).UnixMilli()
	if err := s.writeSession(session); err != nil {
		s.log.Warn("refresh session", "error", err)
	}
}

// OnAuthStateChange polls the persisted state and invokes the callback only
// when the user snapshot changed since the last delivery.
func (s *Simulated) OnAuthStateChange(callback func(*model.AuthUser)) *Subscription {
	stop := make(chan struct{})
	dedupe := NewDeduplicator()

	check := func() {
		user := s.CurrentUser(context.Background())
		if dedupe.Changed(user) {
			callback(user)
		}
	}

	go func() {
		check()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				check()
			}
		}
	}()

	return newSubscription(func() { close(stop) })
}

func (s *Simulated) readSession() (model.Session, bool) {
	raw, found, err := s.store.Get(storage.KeySession)
	if err != nil || !found {
		return model.Session{}, false
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// Corrupted state reads as "no session".
		return model.Session{}, false
	}
	return session, true
}

func (s *Simulated) writeSession(session model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return model.WrapError(model.ErrorStorage, "encode session", err)
	}
	if err := s.store.Set(storage.KeySession, raw); err != nil {
		return model.WrapError(model.ErrorStorage, "persist session", err)
	}
	return nil
}

func (s *Simulated) createSession(userID string) error {
	now := s.now()
	return s.writeSession(model.Session{
		UserID:    userID,
		Token:     fmt.Sprintf("token_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
		ExpiresAt: now.Add(model.SessionTTL).UnixMilli(),
	})
}

func (s *Simulated) loadUsers() ([]model.AuthUser, error) {
	raw, found, err := s.store.Get(storage.KeyUsers)
	if err != nil {
		return nil, model.WrapError(model.ErrorStorage, "read user directory", err)
	}
	if !found {
		return nil, nil
	}
	var users []model.AuthUser
	if err := json.Unmarshal(raw, &users); err != nil {
		// A corrupted directory is treated as empty rather than fatal.
		return nil, nil
	}
	return users, nil
}

func (s *Simulated) saveUsers(users []model.AuthUser) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return model.WrapError(model.ErrorStorage, "encode user directory", err)
	}
	if err := s.store.Set(storage.KeyUsers, raw); err != nil {
		return model.WrapError(model.ErrorStorage, "persist user directory", err)
	}
	return nil
}

func (s *Simulated) findUserByEmail(email string) (*model.AuthUser, error) {
	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *Simulated) findUserByID(id string) (*model.AuthUser, error) {
	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *Simulated) createUser(email string, username string) (*model.AuthUser, error) {
	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}

	if username == "" {
		username = model.UsernameFromEmail(email)
	}

	now := s.now().UTC()
	user := model.AuthUser{
		ID:        testUUID(len(users)),
		Email:     email,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	users = append(users, user)
	if err := s.saveUsers(users); err != nil {
		return nil, err
	}
	return &user, nil
}

// testUUID produces deterministic, sortable ids: a zero UUID prefix with a
// 12-digit sequential suffix.
func testUUID(ordinal int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", ordinal)
}
