// Package analytics consumes the read-only performance aggregation service.
// Records arrive already aggregated per campaign and day; the client only
// folds them into user-level summaries.
package analytics

import (
	"context"
	"net/http"
	"net/url"

	"campaignkit/internal/campaign"
	"campaignkit/internal/model"
	"campaignkit/internal/transport"
)

type Client struct {
	api   *transport.Client
	users campaign.UserSource
}

func NewClient(api *transport.Client, users campaign.UserSource) *Client {
	return &Client{api: api, users: users}
}

func (c *Client) requireUser(ctx context.Context) error {
	if c.users.CurrentUser(ctx) == nil {
		return model.NewError(model.ErrorAuthRequired, "user not authenticated")
	}
	return nil
}

// GetByCampaign returns the records for one campaign, newest date first.
func (c *Client) GetByCampaign(ctx context.Context, campaignID string) ([]model.AnalyticsRecord, error) {
	if err := c.requireUser(ctx); err != nil {
		return nil, err
	}
	if campaignID == "" {
		return nil, model.NewError(model.ErrorValidation, "campaign id is required")
	}

	var records []model.AnalyticsRecord
	path := "/analytics?campaign_id=" + url.QueryEscape(campaignID)
	if err := c.api.Do(ctx, c.api.Timeouts().Query, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetSummary aggregates every record owned by the caller. Zero records
// yields an all-zero summary, not an error.
func (c *Client) GetSummary(ctx context.Context) (model.AnalyticsSummary, error) {
	if err := c.requireUser(ctx); err != nil {
		return model.AnalyticsSummary{}, err
	}

	var records []model.AnalyticsRecord
	if err := c.api.Do(ctx, c.api.Timeouts().Query, http.MethodGet, "/analytics", nil, &records); err != nil {
		return model.AnalyticsSummary{}, err
	}
	return model.Summarize(records), nil
}
