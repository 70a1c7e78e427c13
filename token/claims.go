package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

// Claims holds the access token claims the client cares about.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	SessionID string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token is past its expiry at now. Tokens without exp never expire here.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// ParseClaims reads the claims of rawToken without checking its signature.
// Signature checks belong to the provider (or a Verifier); this is only used for bookkeeping such as expiry.
func ParseClaims(rawToken string) (*Claims, error) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", apperrors.ErrInvalidToken)
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)
	sessionID, _ := mapClaims["session_id"].(string)

	claims := &Claims{
		Subject:   sub,
		Email:     email,
		Role:      role,
		SessionID: sessionID,
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}
