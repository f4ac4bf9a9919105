package backend

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"campaignkit/internal/model"
)

type authResponse struct {
	User    *model.AuthUser `json:"user,omitempty"`
	Session *Session        `json:"session,omitempty"`
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email            string `json:"email"`
		ShouldCreateUser bool   `json:"should_create_user"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}

	code, err := otpCode()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SaveOTP(r.Context(), payload.Email, code, s.now().Add(s.otpTTL)); err != nil {
		writeError(w, err)
		return
	}

	// No mail delivery in the development backend; the code goes to the log.
	s.log.Info("otp code issued", "email", payload.Email, "code", code)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string         `json:"email"`
		Token    string         `json:"token"`
		Metadata map[string]any `json:"metadata"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)

	ok, err := s.store.ConsumeOTP(r.Context(), payload.Email, payload.Token, s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "INVALID_OTP", "invalid or expired verification code")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), payload.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		created, err := s.createUser(r.Context(), payload.Email, "", payload.Metadata)
		if err != nil {
			writeError(w, err)
			return
		}
		user = created
	}

	s.respondWithSession(w, user.AuthUser)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Metadata map[string]any `json:"metadata"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "email and password are required")
		return
	}

	existing, err := s.store.UserByEmail(r.Context(), payload.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		writeAPIError(w, http.StatusConflict, "ALREADY_EXISTS", "user already registered")
		return
	}

	user, err := s.createUser(r.Context(), payload.Email, payload.Password, payload.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	s.respondWithSession(w, user.AuthUser)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	user, err := s.store.UserByEmail(r.Context(), strings.TrimSpace(payload.Email))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", "no account found with this email")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)) != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", "invalid email or password")
		return
	}

	s.respondWithSession(w, user.AuthUser)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	payload.RefreshToken = strings.TrimSpace(payload.RefreshToken)
	if payload.RefreshToken == "" {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "refresh_token is required")
		return
	}

	userID, err := s.store.ConsumeRefreshToken(r.Context(), payload.RefreshToken)
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token is invalid")
		return
	}
	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user not found")
		return
	}

	s.respondWithSession(w, user.AuthUser)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	if err := s.store.DeleteRefreshTokens(r.Context(), claims.Subject); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	user, err := s.store.UserByID(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user.AuthUser)
}

// handleSession is the cheaper session-only read the client falls back to
// when the full user lookup times out.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	user := model.AuthUser{
		ID:       claims.Subject,
		Email:    claims.Email,
		Username: model.UsernameFromEmail(claims.Email),
	}
	writeJSON(w, http.StatusOK, authResponse{User: &user})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	if payload.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.store.SetPassword(r.Context(), claims.Subject, string(hash)); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := s.store.TouchUser(r.Context(), claims.Subject, s.now().UTC()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	profile, err := s.store.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if profile == nil {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) createUser(ctx context.Context, email string, password string, metadata map[string]any) (*UserRecord, error) {
	username := model.UsernameFromEmail(email)
	if v, ok := metadata["username"].(string); ok && v != "" {
		username = v
	}

	hash := ""
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(hashed)
	}

	now := s.now().UTC()
	user := UserRecord{
		AuthUser: model.AuthUser{
			ID:        uuid.NewString(),
			Email:     email,
			Username:  username,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	// Mirror the account into a profile row so the client's profile join has
	// something to find.
	profile := map[string]any{"id": user.ID, "username": username, "email": email}
	for k, v := range metadata {
		if k == "username" {
			continue
		}
		profile[k] = v
	}
	if err := s.store.UpsertProfile(ctx, user.ID, profile); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Server) respondWithSession(w http.ResponseWriter, user model.AuthUser) {
	session, err := s.tokens.Session(user, s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SaveRefreshToken(context.Background(), session.RefreshToken, user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: &user, Session: &session})
}

func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
