package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func testUser() *models.User {
	return &models.User{ID: "5b1c4b0e-9b7e-4c55-8a57-3f7f3c7d2a10", Username: "alice", Role: models.RoleAdmin}
}

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", 30*time.Minute)

	token, err := m.Issue(testUser())
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, testUser().ID, claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }
	token, err := m.Issue(testUser())
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("one", time.Minute).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   testUser().ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hashed, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hashed)
	assert.NoError(t, h.Compare(hashed, "hunter22"))
	assert.Error(t, h.Compare(hashed, "hunter23"))
}
