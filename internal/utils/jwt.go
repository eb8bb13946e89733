package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/example/farmfresh/internal/errutil"
	"github.com/example/farmfresh/internal/models"
)

// SessionTokenTTL is the fixed lifetime of a session token.
const SessionTokenTTL = time.Hour

// SessionClaims is what a session token asserts about its holder.
type SessionClaims struct {
	UserID           string      `json:"id"`
	Email            string      `json:"email"`
	UserType         models.Role `json:"userType"`
	FirstName        string      `json:"firstName"`
	LastName         string      `json:"lastName"`
	AccountCreatedAt time.Time   `json:"createdAt"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. A nil clock means time.Now.
func NewTokenIssuer(secret string, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, oops.Code(errutil.CodeInternal).Errorf("jwt secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), now: now}, nil
}

// Issue creates a signed session token for u valid for SessionTokenTTL.
func (i *TokenIssuer) Issue(u *models.User) (string, error) {
	issuedAt := i.now()
	claims := &SessionClaims{
		UserID:           u.ID,
		Email:            u.Email,
		UserType:         u.Role,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		AccountCreatedAt: u.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(SessionTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", errutil.Internal("SignToken", err)
	}
	return signed, nil
}

// Verify validates the token and returns its claims. Expired tokens fail with
// TOKEN_EXPIRED, everything else with TOKEN_INVALID.
func (i *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(errutil.CodeTokenExpired).Wrapf(err, "token expired")
		}
		return nil, oops.Code(errutil.CodeTokenInvalid).Wrapf(err, "invalid token")
	}
	if !token.Valid || claims.UserID == "" {
		return nil, oops.Code(errutil.CodeTokenInvalid).Errorf("invalid token")
	}
	return claims, nil
}
