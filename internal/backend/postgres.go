package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignkit/internal/model"
)

// Postgres is the pgx-backed Store used when the devserver is configured
// with a database URL.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateUser(ctx context.Context, u UserRecord) error {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`, u.Email).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("check email exists: %w", err)
	}
	if exists {
		return model.ErrUserAlreadyExists
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at, updated_at
		 FROM users WHERE lower(email) = lower($1)`, email))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*UserRecord, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at, updated_at
		 FROM users WHERE id = $1`, id))
}

func (p *Postgres) scanUser(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) SetPassword(ctx context.Context, userID string, passwordHash string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, passwordHash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) TouchUser(ctx context.Context, userID string, updatedAt time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET updated_at = $2 WHERE id = $1`, userID, updatedAt)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) Profile(ctx context.Context, userID string) (map[string]any, error) {
	var data map[string]any
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM profiles WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return data, nil
}

func (p *Postgres) UpsertProfile(ctx context.Context, userID string, profile map[string]any) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, data) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data`,
		userID, profile)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (p *Postgres) SaveOTP(ctx context.Context, email string, code string, expiresAt time.Time) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO otp_codes (email, code, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`,
		email, code, expiresAt)
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (p *Postgres) ConsumeOTP(ctx context.Context, email string, code string, now time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM otp_codes WHERE email = $1 AND code = $2 AND expires_at > $3`,
		email, code, now)
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) SaveRefreshToken(ctx context.Context, token string, userID string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, created_at) VALUES ($1, $2, now())`,
		token, userID)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (p *Postgres) ConsumeRefreshToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := p.pool.QueryRow(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1 RETURNING user_id`, token).
		Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("consume refresh token: %w", err)
	}
	return userID, nil
}

func (p *Postgres) DeleteRefreshTokens(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}

func (p *Postgres) CreateCampaign(ctx context.Context, c model.Campaign) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO campaigns (id, user_id, name, platform, budget, daily_budget, status,
		                        objective, target_audience, keywords, start_date, end_date,
		                        creative_urls, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, c.UserID, c.Name, c.Platform, c.Budget, c.DailyBudget, c.Status,
		c.Objective, c.TargetAudience, c.Keywords, c.StartDate, c.EndDate,
		c.CreativeURLs, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

const campaignColumns = `id, user_id, name, platform, budget, daily_budget, status,
       objective, target_audience, keywords, start_date, end_date,
       creative_urls, created_at, updated_at`

func (p *Postgres) CampaignsByUser(ctx context.Context, userID string) ([]model.Campaign, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := make([]model.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) CampaignByID(ctx context.Context, userID string, id string) (*model.Campaign, error) {
	c, err := scanCampaign(p.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 AND user_id = $2`,
		id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCampaign(row pgx.Row) (model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Platform, &c.Budget, &c.DailyBudget,
		&c.Status, &c.Objective, &c.TargetAudience, &c.Keywords, &c.StartDate,
		&c.EndDate, &c.CreativeURLs, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Campaign{}, err
	}
	if err != nil {
		return model.Campaign{}, fmt.Errorf("scan campaign: %w", err)
	}
	return c, nil
}

func (p *Postgres) UpdateCampaign(ctx context.Context, c model.Campaign) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE campaigns SET name = $3, platform = $4, budget = $5, daily_budget = $6,
		        status = $7, objective = $8, target_audience = $9, keywords = $10,
		        start_date = $11, end_date = $12, creative_urls = $13, updated_at = $14
		 WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.Name, c.Platform, c.Budget, c.DailyBudget, c.Status,
		c.Objective, c.TargetAudience, c.Keywords, c.StartDate, c.EndDate,
		c.CreativeURLs, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCampaignNotFound
	}
	return nil
}

func (p *Postgres) DeleteCampaign(ctx context.Context, userID string, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM campaigns WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCampaignNotFound
	}
	return nil
}

const analyticsColumns = `id, campaign_id, user_id, impressions, clicks, conversions,
       cost, ctr, roas, date, created_at`

func (p *Postgres) AnalyticsByUser(ctx context.Context, userID string) ([]model.AnalyticsRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+analyticsColumns+` FROM campaign_analytics
		 WHERE user_id = $1 ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}
	return collectAnalytics(rows)
}

func (p *Postgres) AnalyticsByCampaign(ctx context.Context, userID string, campaignID string) ([]model.AnalyticsRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+analyticsColumns+` FROM campaign_analytics
		 WHERE user_id = $1 AND campaign_id = $2 ORDER BY date DESC`, userID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list campaign analytics: %w", err)
	}
	return collectAnalytics(rows)
}

func collectAnalytics(rows pgx.Rows) ([]model.AnalyticsRecord, error) {
	defer rows.Close()

	out := make([]model.AnalyticsRecord, 0)
	for rows.Next() {
		var r model.AnalyticsRecord
		err := rows.Scan(&r.ID, &r.CampaignID, &r.UserID, &r.Impressions, &r.Clicks,
			&r.Conversions, &r.Cost, &r.CTR, &r.ROAS, &r.Date, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan analytics record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertAnalytics(ctx context.Context, records []model.AnalyticsRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO campaign_analytics (id, campaign_id, user_id, impressions, clicks,
			                                 conversions, cost, ctr, roas, date, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			r.ID, r.CampaignID, r.UserID, r.Impressions, r.Clicks, r.Conversions,
			r.Cost, r.CTR, r.ROAS, r.Date, r.CreatedAt)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert analytics: %w", err)
	}
	return nil
}
