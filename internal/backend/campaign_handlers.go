package backend

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campaignkit/internal/model"
)

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var draft model.CampaignDraft
	if !decodeBody(w, r, &draft) {
		return
	}
	if strings.TrimSpace(draft.Name) == "" || strings.TrimSpace(draft.Platform) == "" {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "name and platform are required")
		return
	}
	if draft.Budget < 0 {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "budget must not be negative")
		return
	}

	status := draft.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown campaign status")
		return
	}

	now := s.now().UTC()
	campaign := model.Campaign{
		ID:             uuid.NewString(),
		UserID:         claims.Subject,
		Name:           draft.Name,
		Platform:       draft.Platform,
		Budget:         draft.Budget,
		DailyBudget:    draft.DailyBudget,
		Status:         status,
		Objective:      draft.Objective,
		TargetAudience: draft.TargetAudience,
		Keywords:       draft.Keywords,
		StartDate:      draft.StartDate,
		EndDate:        draft.EndDate,
		CreativeURLs:   draft.CreativeURLs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateCampaign(r.Context(), campaign); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	campaign, err := s.store.CampaignByID(r.Context(), claims.Subject, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if campaign == nil {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var patch model.CampaignPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown campaign status")
		return
	}
	if patch.Budget != nil && *patch.Budget < 0 {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "budget must not be negative")
		return
	}

	campaign, err := s.store.CampaignByID(r.Context(), claims.Subject, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if campaign == nil {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "campaign not found")
		return
	}

	patch.Apply(campaign)
	campaign.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCampaign(r.Context(), *campaign); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := s.store.DeleteCampaign(r.Context(), claims.Subject, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
