// Package identity is the consumed slice of the portal's authentication
// subsystem: access-token validation, the token revocation list, and the
// feature-permission check that gates administrative claim operations.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"kvartal/internal/platform/middleware"
)

// Validator verifies HMAC-signed access tokens issued by the identity
// service.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

type accessClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// ValidateToken parses and verifies the token, insisting on HS256.
func (v *Validator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &middleware.TokenClaims{
		UserID:    claims.Subject,
		ActorName: claims.Name,
		JTI:       claims.ID,
	}, nil
}
