package grant

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// AssertionLifetime is the validity window of a signed assertion,
// the maximum accepted by the authorization server.
const AssertionLifetime = time.Hour

var unixEpoch = time.Unix(0, 0)

// Claims is the payload of a JWT Bearer assertion
type Claims struct {
	Issuer    string `json:"iss"`
	Subject   string `json:"sub,omitempty"`
	Scope     string `json:"scope"`
	Audience  string `json:"aud"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

// NewClaims returns claims issued at now, expiring after AssertionLifetime.
// Fails with KindClock if now precedes the Unix epoch.
func NewClaims(creds *Credentials, scope, audience string, now time.Time) (*Claims, error) {
	if now.Before(unixEpoch) {
		return nil, newError(KindClock, errors.Errorf("clock is before the Unix epoch: %s", now.UTC().Format(time.RFC3339)))
	}

	iat := now.Unix()
	return &Claims{
		Issuer:    creds.identity,
		Subject:   creds.subject,
		Scope:     scope,
		Audience:  audience,
		IssuedAt:  iat,
		ExpiresAt: iat + int64(AssertionLifetime/time.Second),
	}, nil
}

// GetExpirationTime implements jwt.Claims
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

// GetIssuedAt implements jwt.Claims
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims
func (c *Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims
func (c *Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements jwt.Claims
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}
