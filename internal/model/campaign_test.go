package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	t.Parallel()

	next, ok := NextStatus(StatusDraft)
	require.True(t, ok)
	require.Equal(t, StatusActive, next)

	next, ok = NextStatus(StatusActive)
	require.True(t, ok)
	require.Equal(t, StatusPaused, next)

	next, ok = NextStatus(StatusPaused)
	require.True(t, ok)
	require.Equal(t, StatusActive, next)

	next, ok = NextStatus(StatusCompleted)
	require.False(t, ok)
	require.Equal(t, StatusCompleted, next)
}

func TestCampaignPatchApply(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Campaign{
		ID:        "c1",
		UserID:    "u1",
		Name:      "original",
		Platform:  "Meta",
		Budget:    100,
		Status:    StatusDraft,
		Keywords:  []string{"a"},
		CreatedAt: created,
	}

	name := "renamed"
	budget := 250.0
	status := StatusActive
	patch := CampaignPatch{Name: &name, Budget: &budget, Status: &status, Keywords: []string{"b", "c"}}
	patch.Apply(&c)

	require.Equal(t, "renamed", c.Name)
	require.Equal(t, 250.0, c.Budget)
	require.Equal(t, StatusActive, c.Status)
	require.Equal(t, []string{"b", "c"}, c.Keywords)

	// Untouched fields and store-owned fields survive.
	require.Equal(t, "Meta", c.Platform)
	require.Equal(t, "c1", c.ID)
	require.Equal(t, "u1", c.UserID)
	require.Equal(t, created, c.CreatedAt)

	// A nil-pointer patch changes nothing.
	CampaignPatch{}.Apply(&c)
	require.Equal(t, "renamed", c.Name)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	require.Equal(t, AnalyticsSummary{}, Summarize(nil))

	records := []AnalyticsRecord{
		{Impressions: 1000, Clicks: 50, Conversions: 5, Cost: 100, CTR: 5.0, ROAS: 2.0},
		{Impressions: 3000, Clicks: 150, Conversions: 15, Cost: 300, CTR: 5.0, ROAS: 4.0},
	}
	summary := Summarize(records)
	require.Equal(t, int64(4000), summary.TotalImpressions)
	require.Equal(t, int64(200), summary.TotalClicks)
	require.Equal(t, int64(20), summary.TotalConversions)
	require.Equal(t, 400.0, summary.TotalCost)
	require.Equal(t, 5.0, summary.AvgCTR)
	require.Equal(t, 3.0, summary.AvgROAS)
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := Session{ExpiresAt: now.UnixMilli()}

	// Expiry exactly at now counts as expired.
	require.True(t, session.Expired(now))
	require.True(t, session.Expired(now.Add(time.Millisecond)))
	require.False(t, session.Expired(now.Add(-time.Millisecond)))
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	err := NewError(ErrorValidation, "bad input")
	require.Equal(t, ErrorValidation, TypeOf(err))
	require.Equal(t, "validation: bad input", err.Error())

	wrapped := WrapError(ErrorStorage, "persist", ErrNoSession)
	require.Equal(t, ErrorStorage, TypeOf(wrapped))
	require.ErrorIs(t, wrapped, ErrNoSession)

	// Unclassified errors read as network failures.
	require.Equal(t, ErrorNetwork, TypeOf(ErrUserNotFound))
}
