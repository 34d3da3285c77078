// Package token issues and verifies the signed, time-limited credentials the
// account flows depend on: email-verification tokens, password-reset tokens,
// and post-login access tokens. All three are HS256 JWTs over one shared secret.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/onboardhq/account-service/internal/core/domain"
)

const (
	VerificationTTL = 24 * time.Hour
	ResetTTL        = 5 * time.Minute
	AccessTTL       = 5 * time.Minute
)

type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// IssueVerification returns a token proving control of the given email.
func (i *Issuer) IssueVerification(email string) (string, error) {
	return i.sign(jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(VerificationTTL).Unix(),
	})
}

// IssueReset returns a short-lived token bound to the account id.
func (i *Issuer) IssueReset(accountID string) (string, error) {
	return i.sign(jwt.MapClaims{
		"sub": accountID,
		"exp": time.Now().Add(ResetTTL).Unix(),
	})
}

// IssueAccess returns the login token carrying the user's identity claims.
func (i *Issuer) IssueAccess(a *domain.Account) (string, error) {
	return i.sign(jwt.MapClaims{
		"sub":      a.ID,
		"username": a.Username,
		"email":    a.Email,
		"admin":    a.IsAdmin,
		"exp":      time.Now().Add(AccessTTL).Unix(),
	})
}

// Verify checks signature and expiry and returns the claims. Any failure is
// reported as domain.ErrTokenExpired; callers do not distinguish a forged
// token from a stale one.
func (i *Issuer) Verify(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrTokenExpired
	}
	return claims, nil
}

func (i *Issuer) sign(claims jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}
