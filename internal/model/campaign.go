package model

import "time"

type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusActive    CampaignStatus = "active"
	StatusPaused    CampaignStatus = "paused"
	StatusCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// NextStatus is the toggle transition table used by the cache helper.
// completed is terminal: ok is false and the status is returned unchanged.
func NextStatus(s CampaignStatus) (next CampaignStatus, ok bool) {
	switch s {
	case StatusDraft:
		return StatusActive, true
	case StatusActive:
		return StatusPaused, true
	case StatusPaused:
		return StatusActive, true
	default:
		return s, false
	}
}

// Campaign is owned by exactly one user. ID is assigned by the repository
// on create and immutable afterwards; UpdatedAt is refreshed by the
// repository on every successful update.
type Campaign struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Name           string         `json:"name"`
	Platform       string         `json:"platform"`
	Budget         float64        `json:"budget"`
	DailyBudget    *float64       `json:"daily_budget,omitempty"`
	Status         CampaignStatus `json:"status"`
	Objective      string         `json:"objective,omitempty"`
	TargetAudience map[string]any `json:"target_audience,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	StartDate      string         `json:"start_date,omitempty"`
	EndDate        string         `json:"end_date,omitempty"`
	CreativeURLs   []string       `json:"creative_urls,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CampaignDraft is the input accepted by create. Status defaults to draft
// when empty.
type CampaignDraft struct {
	Name           string         `json:"name"`
	Platform       string         `json:"platform"`
	Budget         float64        `json:"budget"`
	DailyBudget    *float64       `json:"daily_budget,omitempty"`
	Status         CampaignStatus `json:"status,omitempty"`
	Objective      string         `json:"objective,omitempty"`
	TargetAudience map[string]any `json:"target_audience,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	StartDate      string         `json:"start_date,omitempty"`
	EndDate        string         `json:"end_date,omitempty"`
	CreativeURLs   []string       `json:"creative_urls,omitempty"`
}

// CampaignPatch is the partial input accepted by update. Nil pointers leave
// the corresponding field untouched; nil slices and maps likewise.
type CampaignPatch struct {
	Name           *string         `json:"name,omitempty"`
	Platform       *string         `json:"platform,omitempty"`
	Budget         *float64        `json:"budget,omitempty"`
	DailyBudget    *float64        `json:"daily_budget,omitempty"`
	Status         *CampaignStatus `json:"status,omitempty"`
	Objective      *string         `json:"objective,omitempty"`
	TargetAudience map[string]any  `json:"target_audience,omitempty"`
	Keywords       []string        `json:"keywords,omitempty"`
	StartDate      *string         `json:"start_date,omitempty"`
	EndDate        *string         `json:"end_date,omitempty"`
	CreativeURLs   []string        `json:"creative_urls,omitempty"`
}

// Apply copies the patch onto a campaign. It does not touch ID, UserID or
// the timestamps; the store owns those.
func (p CampaignPatch) Apply(c *Campaign) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Platform != nil {
		c.Platform = *p.Platform
	}
	if p.Budget != nil {
		c.Budget = *p.Budget
	}
	if p.DailyBudget != nil {
		c.DailyBudget = p.DailyBudget
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Objective != nil {
		c.Objective = *p.Objective
	}
	if p.TargetAudience != nil {
		c.TargetAudience = p.TargetAudience
	}
	if p.Keywords != nil {
		c.Keywords = p.Keywords
	}
	if p.StartDate != nil {
		c.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = *p.EndDate
	}
	if p.CreativeURLs != nil {
		c.CreativeURLs = p.CreativeURLs
	}
}
