package model

import "time"

// AnalyticsRecord is one day of aggregated performance for a campaign. The
// records are produced by the backend; the client consumes them read-only.
type AnalyticsRecord struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	UserID      string    `json:"user_id"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
	Cost        float64   `json:"cost"`
	CTR         float64   `json:"ctr"`
	ROAS        float64   `json:"roas"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnalyticsSummary aggregates all records owned by a user. Zero records
// yields the zero value.
type AnalyticsSummary struct {
	TotalImpressions int64   `json:"totalImpressions"`
	TotalClicks      int64   `json:"totalClicks"`
	TotalConversions int64   `json:"totalConversions"`
	TotalCost        float64 `json:"totalCost"`
	AvgCTR           float64 `json:"avgCTR"`
	AvgROAS          float64 `json:"avgROAS"`
}

// Summarize folds a record set into totals and averages.
func Summarize(records []AnalyticsRecord) AnalyticsSummary {
	var s AnalyticsSummary
	if len(records) == 0 {
		return s
	}
	var ctr, roas float64
	for _, r := range records {
		s.TotalImpressions += r.Impressions
		s.TotalClicks += r.Clicks
		s.TotalConversions += r.Conversions
		s.TotalCost += r.Cost
		ctr += r.CTR
		roas += r.ROAS
	}
	s.AvgCTR = ctr / float64(len(records))
	s.AvgROAS = roas / float64(len(records))
	return s
}
