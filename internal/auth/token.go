package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies access tokens. The signing key comes
// from configuration, loaded once at startup.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// Claims identify the authenticated actor
type Claims struct {
	ActorID   int64  `json:"actor_id"`
	ActorType string `json:"actor_type"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenIssuer creates a token issuer with the given signing key and
// token lifetime
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given actor
func (t *TokenIssuer) Issue(actorID int64, actorType, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		ActorID:   actorID,
		ActorType: actorType,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a token, returning its claims
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
