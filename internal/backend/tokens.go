package backend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"campaignkit/internal/model"
)

// tokenClaims is the JWT payload for access tokens.
type tokenClaims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates the provider's access tokens. Refresh
// tokens are opaque and tracked in the store.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
}

func NewTokenManager(secret string, accessTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL}, nil
}

// Session mints an access token plus an opaque refresh token for the user.
// ExpiresAt is in Unix milliseconds to match the client's session record.
func (m *TokenManager) Session(user model.AuthUser, now time.Time) (Session, error) {
	expiresAt := now.Add(m.accessTTL)
	claims := tokenClaims{
		Email: user.Email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}

	return Session{
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		UserID:       user.ID,
		ExpiresAt:    expiresAt.UnixMilli(),
	}, nil
}

// Validate parses an access token and returns its claims.
func (m *TokenManager) Validate(tokenString string) (*tokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, model.ErrNoSession
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.Type != "access" {
		return nil, model.ErrNoSession
	}
	return claims, nil
}

// Session is the payload returned to clients on every successful
// authentication.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresAt    int64  `json:"expires_at"`
}
