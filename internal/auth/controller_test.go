package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"campaignkit/internal/model"
)

// stubService records subscriptions and lets the test drive state changes.
type stubService struct {
	mu           sync.Mutex
	user         *model.AuthUser
	callback     func(*model.AuthUser)
	unsubscribes int
}

func (s *stubService) SendOTP(context.Context, string, SendOTPOptions) error { return nil }

func (s *stubService) VerifyOTPAndLogin(context.Context, string, string, VerifyOptions) (*model.AuthUser, error) {
	return nil, nil
}

func (s *stubService) SignUpWithPassword(context.Context, string, string, map[string]any) (*model.AuthUser, error) {
	return nil, nil
}

func (s *stubService) SignInWithPassword(context.Context, string, string) (*model.AuthUser, error) {
	return nil, nil
}

func (s *stubService) Logout(context.Context) error { return nil }

func (s *stubService) CurrentUser(context.Context) *model.AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *stubService) RefreshSession(context.Context) {}

func (s *stubService) OnAuthStateChange(callback func(*model.AuthUser)) *Subscription {
	s.mu.Lock()
	s.callback = callback
	s.mu.Unlock()
	return newSubscription(func() {
		s.mu.Lock()
		s.unsubscribes++
		s.mu.Unlock()
	})
}

func (s *stubService) push(user *model.AuthUser) {
	s.mu.Lock()
	cb := s.callback
	s.mu.Unlock()
	if cb != nil {
		cb(user)
	}
}

func TestControllerStart(t *testing.T) {
	t.Parallel()

	t.Run("initial state is loading and uninitialized", func(t *testing.T) {
		t.Parallel()
		c := NewController(&stubService{}, nil)

		state := c.State()
		require.True(t, state.Loading)
		require.False(t, state.Initialized)
		require.Nil(t, state.User)
	})

	t.Run("start resolves the user and marks initialized", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{user: &model.AuthUser{ID: "u1", Email: "a@b.c"}}
		c := NewController(svc, nil)

		c.Start(context.Background())
		defer c.Close()

		state := c.State()
		require.False(t, state.Loading)
		require.True(t, state.Initialized)
		require.Equal(t, "u1", state.User.ID)
	})

	t.Run("initialized even when no user resolves", func(t *testing.T) {
		t.Parallel()
		c := NewController(&stubService{}, nil)

		c.Start(context.Background())
		defer c.Close()

		state := c.State()
		require.True(t, state.Initialized)
		require.Nil(t, state.User)
	})

	t.Run("subscription updates flow into state", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{}
		c := NewController(svc, nil)
		c.Start(context.Background())
		defer c.Close()

		svc.push(&model.AuthUser{ID: "u2"})
		require.Equal(t, "u2", c.State().User.ID)

		svc.push(nil)
		require.Nil(t, c.State().User)
	})

	t.Run("start is one-shot", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{}
		c := NewController(svc, nil)

		c.Start(context.Background())
		c.Start(context.Background())
		c.Close()

		svc.mu.Lock()
		defer svc.mu.Unlock()
		require.Equal(t, 1, svc.unsubscribes)
	})
}

func TestControllerClose(t *testing.T) {
	t.Parallel()

	t.Run("close unsubscribes exactly once", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{}
		c := NewController(svc, nil)
		c.Start(context.Background())

		c.Close()
		c.Close()

		svc.mu.Lock()
		defer svc.mu.Unlock()
		require.Equal(t, 1, svc.unsubscribes)
	})

	t.Run("updates after close are ignored", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{}
		c := NewController(svc, nil)
		c.Start(context.Background())
		c.Close()

		svc.push(&model.AuthUser{ID: "late"})
		require.Nil(t, c.State().User)
	})

	t.Run("close before start still works", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{}
		c := NewController(svc, nil)

		c.Close()
		c.Start(context.Background())

		// Either the subscription was never kept or it was torn down on the
		// spot; no callback may mutate state afterwards.
		svc.push(&model.AuthUser{ID: "late"})
		require.Nil(t, c.State().User)
	})
}

func TestControllerOperations(t *testing.T) {
	t.Parallel()

	t.Run("begin blocks re-entry until end", func(t *testing.T) {
		t.Parallel()
		c := NewController(&stubService{}, nil)

		require.True(t, c.BeginOperation())
		require.False(t, c.BeginOperation())
		require.True(t, c.State().OperationLoading)

		c.EndOperation()
		require.False(t, c.State().OperationLoading)
		require.True(t, c.BeginOperation())
		c.EndOperation()
	})

	t.Run("observers see every transition", func(t *testing.T) {
		t.Parallel()
		c := NewController(&stubService{}, nil)

		var mu sync.Mutex
		var seen []bool
		c.Observe(func(s State) {
			mu.Lock()
			seen = append(seen, s.OperationLoading)
			mu.Unlock()
		})

		c.SetOperationLoading(true)
		c.SetOperationLoading(false)

		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []bool{true, false}, seen)
	})
}
