package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kvartal/pkg/domain"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	validator := NewValidator(testSigningKey)
	userID := id.NewUserID()

	token := signToken(t, testSigningKey, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        "jti-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Anna Petrova",
	})

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "Anna Petrova", claims.ActorName)
	assert.Equal(t, "jti-123", claims.JTI)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	validator := NewValidator(testSigningKey)
	token := signToken(t, "another-key", jwt.RegisteredClaims{
		Subject:   id.NewUserID().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err := validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	validator := NewValidator(testSigningKey)
	token := signToken(t, testSigningKey, jwt.RegisteredClaims{
		Subject:   id.NewUserID().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	_, err := validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRequiresSubject(t *testing.T) {
	validator := NewValidator(testSigningKey)
	token := signToken(t, testSigningKey, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err := validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	validator := NewValidator(testSigningKey)
	_, err := validator.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
