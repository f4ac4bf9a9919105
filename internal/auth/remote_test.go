package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campaignkit/internal/backend"
	"campaignkit/internal/model"
	"campaignkit/internal/storage"
	"campaignkit/internal/transport"
)

func startBackend(t *testing.T) (*httptest.Server, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory()
	srv, err := backend.NewServer(mem, nil, backend.Options{JWTSecret: "test-secret-test-secret"})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, mem
}

func newRemoteForTest(t *testing.T, baseURL string, opts ...RemoteOption) (*Remote, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewRemote(baseURL, store, nil, nil, opts...), store
}

func TestRemoteSignUpAndSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sign up yields a session and a joined profile", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, store := newRemoteForTest(t, ts.URL)

		user, err := svc.SignUpWithPassword(ctx, "ada@example.com", "hunter2", map[string]any{"username": "ada_l"})
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", user.Email)
		require.Equal(t, "ada_l", user.Username)
		require.NotNil(t, user.Profile)

		// Session persisted locally.
		raw, found, err := store.Get(storage.KeySession)
		require.NoError(t, err)
		require.True(t, found)
		var session model.Session
		require.NoError(t, json.Unmarshal(raw, &session))
		require.Equal(t, user.ID, session.UserID)
	})

	t.Run("duplicate sign up is a business error", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		_, err := svc.SignUpWithPassword(ctx, "dup@example.com", "pw", nil)
		require.NoError(t, err)

		_, err = svc.SignUpWithPassword(ctx, "dup@example.com", "pw", nil)
		require.Error(t, err)
		require.Equal(t, model.ErrorBusiness, model.TypeOf(err))
		require.Contains(t, err.Error(), "already registered")
	})

	t.Run("sign in with an unknown email is a business error", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		_, err := svc.SignInWithPassword(ctx, "ghost@example.com", "pw")
		require.Error(t, err)
		require.Equal(t, model.ErrorBusiness, model.TypeOf(err))
		require.Contains(t, err.Error(), "no account found with this email")
	})

	t.Run("sign in round-trip", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		created, err := svc.SignUpWithPassword(ctx, "ada@example.com", "hunter2", nil)
		require.NoError(t, err)
		require.NoError(t, svc.Logout(ctx))
		require.Nil(t, svc.CurrentUser(ctx))

		user, err := svc.SignInWithPassword(ctx, "ada@example.com", "hunter2")
		require.NoError(t, err)
		require.Equal(t, created.ID, user.ID)
	})

	t.Run("wrong password is a business error", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		_, err := svc.SignUpWithPassword(ctx, "ada@example.com", "hunter2", nil)
		require.NoError(t, err)
		require.NoError(t, svc.Logout(ctx))

		_, err = svc.SignInWithPassword(ctx, "ada@example.com", "wrong")
		require.Error(t, err)
		require.Equal(t, model.ErrorBusiness, model.TypeOf(err))
	})
}

func TestRemoteOTPFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("otp verification signs in and can set a password", func(t *testing.T) {
		t.Parallel()
		ts, mem := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		require.NoError(t, svc.SendOTP(ctx, "new@example.com", SendOTPOptions{ShouldCreateUser: true}))
		code := mem.LastOTP("new@example.com")
		require.NotEmpty(t, code)

		user, err := svc.VerifyOTPAndLogin(ctx, "new@example.com", code, VerifyOptions{Password: "fresh-pw"})
		require.NoError(t, err)
		require.Equal(t, "new@example.com", user.Email)

		// The password set during verification must work for a later sign in.
		require.NoError(t, svc.Logout(ctx))
		signedIn, err := svc.SignInWithPassword(ctx, "new@example.com", "fresh-pw")
		require.NoError(t, err)
		require.Equal(t, user.ID, signedIn.ID)
	})

	t.Run("a wrong code is rejected", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		require.NoError(t, svc.SendOTP(ctx, "x@example.com", SendOTPOptions{}))
		_, err := svc.VerifyOTPAndLogin(ctx, "x@example.com", "000000", VerifyOptions{})
		require.Error(t, err)
		require.Equal(t, model.ErrorBusiness, model.TypeOf(err))
	})
}

func TestRemoteSessionRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ts, _ := startBackend(t)
	store := storage.NewMemoryStore()

	first := NewRemote(ts.URL, store, nil, nil)
	user, err := first.SignUpWithPassword(ctx, "ada@example.com", "pw", nil)
	require.NoError(t, err)

	// A second instance over the same store picks the session back up.
	second := NewRemote(ts.URL, store, nil, nil)
	restored := second.CurrentUser(ctx)
	require.NotNil(t, restored)
	require.Equal(t, user.ID, restored.ID)
}

func TestRemoteRefreshSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("refresh replaces the access token", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, store := newRemoteForTest(t, ts.URL)

		_, err := svc.SignUpWithPassword(ctx, "ada@example.com", "pw", nil)
		require.NoError(t, err)
		before := readStoredSession(t, store)

		svc.RefreshSession(ctx)

		after := readStoredSession(t, store)
		require.NotEqual(t, before.Token, after.Token)
		require.NotNil(t, svc.CurrentUser(ctx))
	})

	t.Run("refresh without a session is a no-op", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, store := newRemoteForTest(t, ts.URL)

		svc.RefreshSession(ctx)
		_, found, err := store.Get(storage.KeySession)
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestRemoteCurrentUserFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("falls back to the session read when the user lookup hangs", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		fallbackUser := model.AuthUser{ID: "u1", Email: "slow@example.com", Username: "slow"}

		mux := http.NewServeMux()
		mux.HandleFunc("/auth/user", func(w http.ResponseWriter, r *http.Request) {
			<-release
		})
		mux.HandleFunc("/auth/session", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"user": fallbackUser})
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()
		defer close(release)

		store := storage.NewMemoryStore()
		seedSession(t, store, "u1")

		timeouts := transport.DefaultTimeouts()
		timeouts.Query = 50 * time.Millisecond
		svc := NewRemote(ts.URL, store, nil, []transport.Option{transport.WithTimeouts(timeouts)})

		user := svc.CurrentUser(ctx)
		require.NotNil(t, user)
		require.Equal(t, "slow@example.com", user.Email)
	})

	t.Run("degrades to nil when both reads fail", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer ts.Close()
		defer close(release)

		store := storage.NewMemoryStore()
		seedSession(t, store, "u1")

		timeouts := transport.DefaultTimeouts()
		timeouts.Query = 50 * time.Millisecond
		svc := NewRemote(ts.URL, store, nil, []transport.Option{transport.WithTimeouts(timeouts)})

		started := time.Now()
		require.Nil(t, svc.CurrentUser(ctx))
		require.Less(t, time.Since(started), time.Second)
	})

	t.Run("no session short-circuits without any network call", func(t *testing.T) {
		t.Parallel()
		svc, _ := newRemoteForTest(t, "http://127.0.0.1:1")
		require.Nil(t, svc.CurrentUser(ctx))
	})
}

func TestRemoteEventDelivery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("user_updated is suppressed during the settle window", func(t *testing.T) {
		t.Parallel()
		ts, mem := startBackend(t)

		clock := &fakeClock{now: time.Now()}
		var mu sync.Mutex
		now := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock.now
		}
		svc, _ := newRemoteForTest(t, ts.URL, WithRemoteClock(now))

		var cbMu sync.Mutex
		var calls []*model.AuthUser
		sub := svc.OnAuthStateChange(func(user *model.AuthUser) {
			cbMu.Lock()
			calls = append(calls, user)
			cbMu.Unlock()
		})
		defer sub.Unsubscribe()

		require.NoError(t, svc.SendOTP(ctx, "ada@example.com", SendOTPOptions{ShouldCreateUser: true}))
		code := mem.LastOTP("ada@example.com")
		user, err := svc.VerifyOTPAndLogin(ctx, "ada@example.com", code, VerifyOptions{Password: "pw"})
		require.NoError(t, err)

		cbMu.Lock()
		require.Len(t, calls, 1) // the SIGNED_IN delivery
		cbMu.Unlock()

		// The provider echoes the password write; still inside the window.
		svc.DeliverEvent(ctx, EventUserUpdated)
		cbMu.Lock()
		require.Len(t, calls, 1)
		cbMu.Unlock()

		// Window over and the snapshot materially changed: delivery resumes.
		mu.Lock()
		clock.now = clock.now.Add(2100 * time.Millisecond)
		mu.Unlock()
		require.NoError(t, mem.UpsertProfile(ctx, user.ID, map[string]any{"username": "renamed"}))

		svc.DeliverEvent(ctx, EventUserUpdated)
		cbMu.Lock()
		require.Len(t, calls, 2)
		require.Equal(t, "renamed", calls[1].Username)
		cbMu.Unlock()
	})

	t.Run("signed_in within the foreground window is suppressed", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)

		clock := &fakeClock{now: time.Now()}
		var mu sync.Mutex
		now := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock.now
		}
		svc, _ := newRemoteForTest(t, ts.URL, WithRemoteClock(now))

		_, err := svc.SignUpWithPassword(ctx, "ada@example.com", "pw", nil)
		require.NoError(t, err)

		var cbMu sync.Mutex
		count := 0
		sub := svc.OnAuthStateChange(func(*model.AuthUser) {
			cbMu.Lock()
			count++
			cbMu.Unlock()
		})
		defer sub.Unsubscribe()

		svc.NoteForeground()
		svc.DeliverEvent(ctx, EventSignedIn)
		cbMu.Lock()
		require.Equal(t, 0, count)
		cbMu.Unlock()
	})

	t.Run("logout reaches subscribers as a nil snapshot", func(t *testing.T) {
		t.Parallel()
		ts, _ := startBackend(t)
		svc, _ := newRemoteForTest(t, ts.URL)

		_, err := svc.SignUpWithPassword(ctx, "ada@example.com", "pw", nil)
		require.NoError(t, err)

		var cbMu sync.Mutex
		var calls []*model.AuthUser
		sub := svc.OnAuthStateChange(func(user *model.AuthUser) {
			cbMu.Lock()
			calls = append(calls, user)
			cbMu.Unlock()
		})
		defer sub.Unsubscribe()

		require.NoError(t, svc.Logout(ctx))

		cbMu.Lock()
		defer cbMu.Unlock()
		require.Len(t, calls, 1)
		require.Nil(t, calls[0])
	})
}

func seedSession(t *testing.T, store storage.Store, userID string) {
	t.Helper()
	raw, err := json.Marshal(model.Session{
		UserID:    userID,
		Token:     "tkn",
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(storage.KeySession, raw))
}
