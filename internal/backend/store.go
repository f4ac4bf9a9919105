// Package backend implements the development backend the remote variant
// talks to: an HTTP identity provider plus the campaign and analytics
// store, with interchangeable in-memory and Postgres persistence.
package backend

import (
	"context"
	"time"

	"campaignkit/internal/model"
)

// UserRecord is the stored identity row. PasswordHash is empty for users
// created through the OTP flow until they set a password.
type UserRecord struct {
	model.AuthUser
	PasswordHash string
}

// Store is the persistence contract shared by the memory and postgres
// implementations. Lookups return (nil, nil) for absent rows; sentinel
// errors are reserved for rows that must exist.
type Store interface {
	CreateUser(ctx context.Context, u UserRecord) error
	UserByEmail(ctx context.Context, email string) (*UserRecord, error)
	UserByID(ctx context.Context, id string) (*UserRecord, error)
	SetPassword(ctx context.Context, userID string, passwordHash string) error
	TouchUser(ctx context.Context, userID string, updatedAt time.Time) error

	Profile(ctx context.Context, userID string) (map[string]any, error)
	UpsertProfile(ctx context.Context, userID string, profile map[string]any) error

	SaveOTP(ctx context.Context, email string, code string, expiresAt time.Time) error
	ConsumeOTP(ctx context.Context, email string, code string, now time.Time) (bool, error)

	SaveRefreshToken(ctx context.Context, token string, userID string) error
	ConsumeRefreshToken(ctx context.Context, token string) (string, error)
	DeleteRefreshTokens(ctx context.Context, userID string) error

	CreateCampaign(ctx context.Context, c model.Campaign) error
	CampaignsByUser(ctx context.Context, userID string) ([]model.Campaign, error)
	CampaignByID(ctx context.Context, userID string, id string) (*model.Campaign, error)
	UpdateCampaign(ctx context.Context, c model.Campaign) error
	DeleteCampaign(ctx context.Context, userID string, id string) error

	AnalyticsByUser(ctx context.Context, userID string) ([]model.AnalyticsRecord, error)
	AnalyticsByCampaign(ctx context.Context, userID string, campaignID string) ([]model.AnalyticsRecord, error)
	InsertAnalytics(ctx context.Context, records []model.AnalyticsRecord) error
}
