// Package campaign implements the user-scoped campaign repository and the
// in-memory cache the presentation layer reads and mutates through.
package campaign

import (
	"context"
	"net/http"

	"campaignkit/internal/model"
	"campaignkit/internal/transport"
)

// UserSource answers who the authenticated user is. The auth controller and
// every auth service variant satisfy it.
type UserSource interface {
	CurrentUser(ctx context.Context) *model.AuthUser
}

// Repository is user-scoped CRUD against the remote campaign store. Any
// call made without a valid session fails with an auth_required error.
// GetAll orders by creation time descending. Create assigns id and
// timestamps; Update refreshes updated_at and returns the full entity.
type Repository interface {
	GetAll(ctx context.Context) ([]model.Campaign, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	Create(ctx context.Context, draft model.CampaignDraft) (*model.Campaign, error)
	Update(ctx context.Context, id string, patch model.CampaignPatch) (*model.Campaign, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error)
}

// RemoteRepository talks to the backend campaign store over HTTP. The
// backend scopes every operation to the bearer token's user; the local
// session check only short-circuits the obvious unauthenticated case.
type RemoteRepository struct {
	api   *transport.Client
	users UserSource
}

func NewRemoteRepository(api *transport.Client, users UserSource) *RemoteRepository {
	return &RemoteRepository{api: api, users: users}
}

func (r *RemoteRepository) requireUser(ctx context.Context) error {
	if r.users.CurrentUser(ctx) == nil {
		return model.NewError(model.ErrorAuthRequired, "user not authenticated")
	}
	return nil
}

func (r *RemoteRepository) GetAll(ctx context.Context) ([]model.Campaign, error) {
	if err := r.requireUser(ctx); err != nil {
		return nil, err
	}

	var campaigns []model.Campaign
	if err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodGet, "/campaigns", nil, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *RemoteRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if err := r.requireUser(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, model.NewError(model.ErrorValidation, "campaign id is required")
	}

	var campaign model.Campaign
	if err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodGet, "/campaigns/"+id, nil, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *RemoteRepository) Create(ctx context.Context, draft model.CampaignDraft) (*model.Campaign, error) {
	if err := r.requireUser(ctx); err != nil {
		return nil, err
	}
	if draft.Name == "" || draft.Platform == "" {
		return nil, model.NewError(model.ErrorValidation, "name and platform are required")
	}
	if draft.Status != "" && !draft.Status.Valid() {
		return nil, model.NewError(model.ErrorValidation, "invalid campaign status")
	}

	var campaign model.Campaign
	if err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodPost, "/campaigns", draft, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *RemoteRepository) Update(ctx context.Context, id string, patch model.CampaignPatch) (*model.Campaign, error) {
	if err := r.requireUser(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, model.NewError(model.ErrorValidation, "campaign id is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, model.NewError(model.ErrorValidation, "invalid campaign status")
	}

	var campaign model.Campaign
	if err := r.api.Do(ctx, r.api.Timeouts().Query, http.MethodPut, "/campaigns/"+id, patch, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *RemoteRepository) Delete(ctx context.Context, id string) error {
	if err := r.requireUser(ctx); err != nil {
		return err
	}
	if id == "" {
		return model.NewError(model.ErrorValidation, "campaign id is required")
	}

	return r.api.Do(ctx, r.api.Timeouts().Query, http.MethodDelete, "/campaigns/"+id, nil, nil)
}

func (r *RemoteRepository) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error) {
	return r.Update(ctx, id, model.CampaignPatch{Status: &status})
}
