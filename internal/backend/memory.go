package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"campaignkit/internal/model"
)

// Memory is the in-process Store used by tests and as the devserver
// default when no database is configured.
type Memory struct {
	mu            sync.Mutex
	users         map[string]UserRecord
	profiles      map[string]map[string]any
	otps          map[string]otpEntry
	refreshTokens map[string]string
	campaigns     map[string]model.Campaign
	analytics     []model.AnalyticsRecord
}

type otpEntry struct {
	code      string
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:         map[string]UserRecord{},
		profiles:      map[string]map[string]any{},
		otps:          map[string]otpEntry{},
		refreshTokens: map[string]string{},
		campaigns:     map[string]model.Campaign{},
	}
}

func (m *Memory) CreateUser(_ context.Context, u UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return model.ErrUserAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := u
	return &copied, nil
}

func (m *Memory) SetPassword(_ context.Context, userID string, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

func (m *Memory) TouchUser(_ context.Context, userID string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.UpdatedAt = updatedAt
	m.users[userID] = u
	return nil
}

func (m *Memory) Profile(_ context.Context, userID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := make(map[string]any, len(profile))
	for k, v := range profile {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) UpsertProfile(_ context.Context, userID string, profile map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make(map[string]any, len(profile))
	for k, v := range profile {
		stored[k] = v
	}
	m.profiles[userID] = stored
	return nil
}

func (m *Memory) SaveOTP(_ context.Context, email string, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.otps[email] = otpEntry{code: code, expiresAt: expiresAt}
	return nil
}

func (m *Memory) ConsumeOTP(_ context.Context, email string, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.otps[email]
	if !ok || entry.code != code || now.After(entry.expiresAt) {
		return false, nil
	}
	delete(m.otps, email)
	return true, nil
}

// LastOTP exposes the pending code for an email. Test helper only.
func (m *Memory) LastOTP(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otps[email].code
}

func (m *Memory) SaveRefreshToken(_ context.Context, token string, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshTokens[token] = userID
	return nil
}

func (m *Memory) ConsumeRefreshToken(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.refreshTokens[token]
	if !ok {
		return "", model.ErrNoSession
	}
	delete(m.refreshTokens, token)
	return userID, nil
}

func (m *Memory) DeleteRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, owner := range m.refreshTokens {
		if owner == userID {
			delete(m.refreshTokens, token)
		}
	}
	return nil
}

func (m *Memory) CreateCampaign(_ context.Context, c model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.campaigns[c.ID] = c
	return nil
}

func (m *Memory) CampaignsByUser(_ context.Context, userID string) ([]model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Campaign, 0)
	for _, c := range m.campaigns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CampaignByID(_ context.Context, userID string, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	copied := c
	return &copied, nil
}

func (m *Memory) UpdateCampaign(_ context.Context, c model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.campaigns[c.ID]
	if !ok || existing.UserID != c.UserID {
		return model.ErrCampaignNotFound
	}
	m.campaigns[c.ID] = c
	return nil
}

func (m *Memory) DeleteCampaign(_ context.Context, userID string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok || c.UserID != userID {
		return model.ErrCampaignNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *Memory) AnalyticsByUser(_ context.Context, userID string) ([]model.AnalyticsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.AnalyticsRecord, 0)
	for _, r := range m.analytics {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortAnalytics(out)
	return out, nil
}

func (m *Memory) AnalyticsByCampaign(_ context.Context, userID string, campaignID string) ([]model.AnalyticsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.AnalyticsRecord, 0)
	for _, r := range m.analytics {
		if r.UserID == userID && r.CampaignID == campaignID {
			out = append(out, r)
		}
	}
	sortAnalytics(out)
	return out, nil
}

func (m *Memory) InsertAnalytics(_ context.Context, records []model.AnalyticsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analytics = append(m.analytics, records...)
	return nil
}

func sortAnalytics(records []model.AnalyticsRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
}
