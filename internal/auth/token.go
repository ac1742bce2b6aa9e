package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

// TokenManager signs and verifies the bearer tokens that carry the
// caller identity. The core never sees the token, only the resulting
// domain.Identity.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

type claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Sign issues a token for the identity, valid for ttl.
func (m *TokenManager) Sign(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: id.UserID,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token and returns the identity
// it carries. Any parse or validation failure maps to ErrUnauthenticated.
func (m *TokenManager) Verify(tokenString string) (domain.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	if c.UserID == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	role := domain.Role(c.Role)
	switch role {
	case domain.RoleClient, domain.RoleManager, domain.RoleOwner, domain.RoleAdmin:
	default:
		role = domain.RoleClient
	}
	return domain.Identity{UserID: c.UserID, Role: role}, nil
}
