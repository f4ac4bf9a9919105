package campaign

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"campaignkit/internal/auth"
	"campaignkit/internal/backend"
	"campaignkit/internal/model"
	"campaignkit/internal/storage"
	"campaignkit/internal/transport"
)

type nobody struct{}

func (nobody) CurrentUser(context.Context) *model.AuthUser { return nil }

func startCampaignBackend(t *testing.T) string {
	t.Helper()
	srv, err := backend.NewServer(backend.NewMemory(), nil, backend.Options{JWTSecret: "test-secret-test-secret"})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

// newAuthedRepository signs a user up through the remote auth service and
// returns a repository bound to that session.
func newAuthedRepository(t *testing.T, baseURL string, email string) *RemoteRepository {
	t.Helper()

	svc := auth.NewRemote(baseURL, storage.NewMemoryStore(), nil, nil)
	_, err := svc.SignUpWithPassword(context.Background(), email, "pw", nil)
	require.NoError(t, err)

	return NewRemoteRepository(svc.API(), svc)
}

func TestRepositoryRequiresUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewRemoteRepository(transport.NewClient("http://127.0.0.1:1"), nobody{})

	_, err := repo.GetAll(ctx)
	require.Error(t, err)
	require.Equal(t, model.ErrorAuthRequired, model.TypeOf(err))
	require.Contains(t, err.Error(), "user not authenticated")

	_, err = repo.Create(ctx, model.CampaignDraft{Name: "x", Platform: "y"})
	require.Equal(t, model.ErrorAuthRequired, model.TypeOf(err))

	err = repo.Delete(ctx, "c1")
	require.Equal(t, model.ErrorAuthRequired, model.TypeOf(err))
}

func TestRepositoryCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create assigns id, timestamps and the draft default status", func(t *testing.T) {
		t.Parallel()
		repo := newAuthedRepository(t, startCampaignBackend(t), "ada@example.com")

		created, err := repo.Create(ctx, model.CampaignDraft{Name: "Promo", Platform: "Google Ads", Budget: 1000})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		require.Equal(t, model.StatusDraft, created.Status)
		require.False(t, created.CreatedAt.IsZero())
		require.False(t, created.UpdatedAt.IsZero())
	})

	t.Run("get all orders by creation time descending", func(t *testing.T) {
		t.Parallel()
		repo := newAuthedRepository(t, startCampaignBackend(t), "ada@example.com")

		for _, name := range []string{"first", "second", "third"} {
			_, err := repo.Create(ctx, model.CampaignDraft{Name: name, Platform: "Meta"})
			require.NoError(t, err)
		}

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "third", all[0].Name)
		require.Equal(t, "first", all[2].Name)
		require.False(t, all[0].CreatedAt.Before(all[1].CreatedAt))
	})

	t.Run("update patches fields and refreshes updated_at", func(t *testing.T) {
		t.Parallel()
		repo := newAuthedRepository(t, startCampaignBackend(t), "ada@example.com")

		created, err := repo.Create(ctx, model.CampaignDraft{Name: "Promo", Platform: "Meta", Budget: 100})
		require.NoError(t, err)

		budget := 250.0
		updated, err := repo.Update(ctx, created.ID, model.CampaignPatch{Budget: &budget})
		require.NoError(t, err)
		require.Equal(t, 250.0, updated.Budget)
		require.Equal(t, "Promo", updated.Name)
		require.Equal(t, created.CreatedAt, updated.CreatedAt)
		require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("update status round-trips", func(t *testing.T) {
		t.Parallel()
		repo := newAuthedRepository(t, startCampaignBackend(t), "ada@example.com")

		created, err := repo.Create(ctx, model.CampaignDraft{Name: "Promo", Platform: "Meta"})
		require.NoError(t, err)

		updated, err := repo.UpdateStatus(ctx, created.ID, model.StatusActive)
		require.NoError(t, err)
		require.Equal(t, model.StatusActive, updated.Status)

		fetched, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, model.StatusActive, fetched.Status)
	})

	t.Run("delete removes the campaign", func(t *testing.T) {
		t.Parallel()
		repo := newAuthedRepository(t, startCampaignBackend(t), "ada@example.com")

		created, err := repo.Create(ctx, model.CampaignDraft{Name: "Promo", Platform: "Meta"})
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, created.ID))

		_, err = repo.GetByID(ctx, created.ID)
		require.Error(t, err)
		require.Equal(t, model.ErrorBusiness, model.TypeOf(err))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Empty(t, all)
	})

	t.Run("validation happens before any dispatch", func(t *testing.T) {
		t.Parallel()
		repo := newAuthedRepository(t, startCampaignBackend(t), "ada@example.com")

		_, err := repo.Create(ctx, model.CampaignDraft{Platform: "Meta"})
		require.Equal(t, model.ErrorValidation, model.TypeOf(err))

		_, err = repo.GetByID(ctx, "")
		require.Equal(t, model.ErrorValidation, model.TypeOf(err))

		bad := model.CampaignStatus("archived")
		_, err = repo.Update(ctx, "c1", model.CampaignPatch{Status: &bad})
		require.Equal(t, model.ErrorValidation, model.TypeOf(err))
	})

	t.Run("campaigns are scoped to their owner", func(t *testing.T) {
		t.Parallel()
		base := startCampaignBackend(t)
		repo := newAuthedRepository(t, base, "ada@example.com")
		other := newAuthedRepository(t, base, "bob@example.com")

		created, err := repo.Create(ctx, model.CampaignDraft{Name: "Private", Platform: "Meta"})
		require.NoError(t, err)

		all, err := other.GetAll(ctx)
		require.NoError(t, err)
		require.Empty(t, all)

		_, err = other.GetByID(ctx, created.ID)
		require.Error(t, err)
	})
}
