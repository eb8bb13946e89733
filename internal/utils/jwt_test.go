package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/errutil"
	"github.com/example/farmfresh/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func testUser() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: "user-123", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		Role:      models.RoleFarmer,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	}
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer, err := NewTokenIssuer("super-secret", clock.Now)
	require.NoError(t, err)

	tok, err := issuer.Issue(testUser())
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, models.RoleFarmer, claims.UserType)
	assert.Equal(t, "Ada", claims.FirstName)
	assert.True(t, claims.AccountCreatedAt.Equal(testUser().CreatedAt))
	assert.Equal(t, SessionTokenTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenIssuer_ValidForExactlyOneHour(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	clock := &fakeClock{t: issued}
	issuer, err := NewTokenIssuer("super-secret", clock.Now)
	require.NoError(t, err)

	tok, err := issuer.Issue(testUser())
	require.NoError(t, err)

	clock.t = issued.Add(59*time.Minute + 59*time.Second)
	_, err = issuer.Verify(tok)
	require.NoError(t, err)

	clock.t = issued.Add(SessionTokenTTL)
	_, err = issuer.Verify(tok)
	errutil.AssertErrorCode(t, err, errutil.CodeTokenExpired)

	clock.t = issued.Add(2 * time.Hour)
	_, err = issuer.Verify(tok)
	errutil.AssertErrorCode(t, err, errutil.CodeTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	a, err := NewTokenIssuer("right-secret", nil)
	require.NoError(t, err)
	b, err := NewTokenIssuer("wrong-secret", nil)
	require.NoError(t, err)

	tok, err := a.Issue(testUser())
	require.NoError(t, err)

	_, err = b.Verify(tok)
	errutil.AssertErrorCode(t, err, errutil.CodeTokenInvalid)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer, err := NewTokenIssuer("k", nil)
	require.NoError(t, err)

	_, err = issuer.Verify("not.a.jwt")
	errutil.AssertErrorCode(t, err, errutil.CodeTokenInvalid)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	issuer, err := NewTokenIssuer("k", nil)
	require.NoError(t, err)

	claims := &SessionClaims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	errutil.AssertErrorCode(t, err, errutil.CodeTokenInvalid)
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", nil)
	require.Error(t, err)
}
