package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campaignkit/internal/model"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestEventFilterUserUpdated(t *testing.T) {
	t.Parallel()

	t.Run("suppressed while the user update is in flight", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		filter := newEventFilter(clock.Now)

		filter.beginUserUpdate()
		require.True(t, filter.suppress(EventUserUpdated))
	})

	t.Run("suppressed during the settling window after the update ends", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		filter := newEventFilter(clock.Now)

		filter.beginUserUpdate()
		filter.endUserUpdate()

		require.True(t, filter.suppress(EventUserUpdated))

		clock.Advance(1900 * time.Millisecond)
		require.True(t, filter.suppress(EventUserUpdated))

		clock.Advance(200 * time.Millisecond)
		require.False(t, filter.suppress(EventUserUpdated))
	})

	t.Run("forwarded when no update ever happened", func(t *testing.T) {
		t.Parallel()
		filter := newEventFilter(newFakeClock().Now)
		require.False(t, filter.suppress(EventUserUpdated))
	})
}

func TestEventFilterSignedIn(t *testing.T) {
	t.Parallel()

	t.Run("suppressed within one second of a foreground transition", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		filter := newEventFilter(clock.Now)

		filter.noteForeground()
		require.True(t, filter.suppress(EventSignedIn))

		clock.Advance(999 * time.Millisecond)
		require.True(t, filter.suppress(EventSignedIn))

		clock.Advance(time.Millisecond)
		require.False(t, filter.suppress(EventSignedIn))
	})

	t.Run("forwarded when no foreground transition was recorded", func(t *testing.T) {
		t.Parallel()
		filter := newEventFilter(newFakeClock().Now)
		require.False(t, filter.suppress(EventSignedIn))
	})

	t.Run("other events pass through the foreground window", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		filter := newEventFilter(clock.Now)

		filter.noteForeground()
		require.False(t, filter.suppress(EventSignedOut))
		require.False(t, filter.suppress(EventTokenRefreshed))
	})
}

func TestDeduplicator(t *testing.T) {
	t.Parallel()

	user := func() *model.AuthUser {
		return &model.AuthUser{
			ID:       "u1",
			Email:    "a@b.c",
			Username: "a",
			Profile:  map[string]any{"plan": "pro"},
		}
	}

	t.Run("first snapshot always counts as changed, even nil", func(t *testing.T) {
		t.Parallel()
		d := NewDeduplicator()
		require.True(t, d.Changed(nil))
		require.False(t, d.Changed(nil))
	})

	t.Run("deep-equal snapshots are dropped", func(t *testing.T) {
		t.Parallel()
		d := NewDeduplicator()
		require.True(t, d.Changed(user()))
		require.False(t, d.Changed(user()))
	})

	t.Run("a changed field passes", func(t *testing.T) {
		t.Parallel()
		d := NewDeduplicator()
		require.True(t, d.Changed(user()))

		updated := user()
		updated.Username = "renamed"
		require.True(t, d.Changed(updated))
	})

	t.Run("a changed profile value passes", func(t *testing.T) {
		t.Parallel()
		d := NewDeduplicator()
		require.True(t, d.Changed(user()))

		updated := user()
		updated.Profile["plan"] = "free"
		require.True(t, d.Changed(updated))
	})

	t.Run("the kept snapshot is isolated from caller mutation", func(t *testing.T) {
		t.Parallel()
		d := NewDeduplicator()
		first := user()
		require.True(t, d.Changed(first))

		// Mutating the caller's copy must not alter the stored baseline.
		first.Profile["plan"] = "free"
		require.True(t, d.Changed(first))
	})
}
