package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the portal reads from a backend-issued token.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
	Role      string
}

// Expired reports whether the token carries an expiry that has passed.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// InspectToken reads claims without verifying the signature. Validity is
// decided by the backend on every call.
func InspectToken(token string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("inspect token: %w", err)
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		out.Subject = stringClaim(claims, "user_id")
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	out.Role = stringClaim(claims, "role")
	return out, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
