package backend

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"campaignkit/internal/model"
)

func (s *Server) handleListAnalytics(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var (
		records []model.AnalyticsRecord
		err     error
	)
	if campaignID := r.URL.Query().Get("campaign_id"); campaignID != "" {
		records, err = s.store.AnalyticsByCampaign(r.Context(), claims.Subject, campaignID)
	} else {
		records, err = s.store.AnalyticsByUser(r.Context(), claims.Subject)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleSeedAnalytics fabricates a week of performance data for every
// campaign the caller owns. Development convenience only.
func (s *Server) handleSeedAnalytics(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	campaigns, err := s.store.CampaignsByUser(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	now := s.now().UTC()
	records := make([]model.AnalyticsRecord, 0, len(campaigns)*7)
	for _, c := range campaigns {
		records = append(records, mockWeek(c, now)...)
	}
	if err := s.store.InsertAnalytics(r.Context(), records); err != nil {
		writeError(w, err)
		return
	}

	s.log.Info("analytics seeded", "user_id", claims.Subject, "records", len(records))
	writeJSON(w, http.StatusOK, map[string]any{"inserted": len(records)})
}

// mockWeek produces one record per day for the last seven days, oldest
// first. Clicks track impressions and conversions track clicks so the
// derived CTR and ROAS stay plausible.
func mockWeek(c model.Campaign, now time.Time) []model.AnalyticsRecord {
	records := make([]model.AnalyticsRecord, 0, 7)
	for day := 6; day >= 0; day-- {
		impressions := 1000 + rand.Int63n(10000)
		clicks := impressions * (3 + rand.Int63n(5)) / 100
		conversions := clicks * (8 + rand.Int63n(8)) / 100
		cost := float64(clicks) * (0.5 + rand.Float64()*1.5)

		ctr := 0.0
		if impressions > 0 {
			ctr = float64(clicks) / float64(impressions) * 100
		}

		records = append(records, model.AnalyticsRecord{
			ID:          uuid.NewString(),
			CampaignID:  c.ID,
			UserID:      c.UserID,
			Impressions: impressions,
			Clicks:      clicks,
			Conversions: conversions,
			Cost:        cost,
			CTR:         ctr,
			ROAS:        1.5 + rand.Float64()*3,
			Date:        now.AddDate(0, 0, -day).Format("2006-01-02"),
			CreatedAt:   now,
		})
	}
	return records
}
