package grant

import (
	"time"

	"golang.org/x/oauth2"
)

// TimeNowFn to override in unit tests
var TimeNowFn = time.Now

// AccessToken is a bearer credential issued by the token endpoint
type AccessToken struct {
	// Value is the opaque bearer token
	Value string
	// TokenType as reported by the server, typically "Bearer"
	TokenType string
	// Expires is the instant of receipt plus the server-reported lifetime
	Expires time.Time
}

// Expired returns true if the token is no longer usable
func (t AccessToken) Expired() bool {
	return t.ExpiredAt(TimeNowFn())
}

// ExpiredAt returns true if now is at or after the expiry instant
func (t AccessToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.Expires)
}

// OAuth2Token returns the token in golang.org/x/oauth2 form
func (t AccessToken) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.Value,
		TokenType:   t.TokenType,
		Expiry:      t.Expires,
	}
}
