package cli

import (
	"crypto"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/certutil"
	"github.com/effective-security/jwtbearer/grant"
	jose "github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCmd obtains an access token
type TokenCmd struct{}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	Expires     string `json:"expires"`
}

// Run the command
func (a *TokenCmd) Run(ctx *Cli) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	tok, err := client.GetToken(ctx.Context())
	if err != nil {
		return errors.WithMessage(err, "failed to get token")
	}

	return ctx.WriteJSON(tokenResult{
		AccessToken: tok.Value,
		TokenType:   tok.TokenType,
		Expires:     tok.Expires.UTC().Format(time.RFC3339),
	})
}

// AssertionCmd prints a signed assertion without exchanging it
type AssertionCmd struct {
	Claims *bool `help:"print the decoded header and claims, true by default"`
}

type assertionResult struct {
	Assertion string         `json:"assertion"`
	Header    map[string]any `json:"header"`
	Claims    *grant.Claims  `json:"claims"`
}

// Run the command
func (a *AssertionCmd) Run(ctx *Cli) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	assertion, err := client.Assertion()
	if err != nil {
		return err
	}

	if a.Claims != nil && !*a.Claims {
		fmt.Fprintln(ctx.Writer(), assertion)
		return nil
	}

	claims := &grant.Claims{}
	token, _, err := jwt.NewParser().ParseUnverified(assertion, claims)
	if err != nil {
		return errors.WithMessage(err, "failed to parse assertion")
	}

	return ctx.WriteJSON(assertionResult{
		Assertion: assertion,
		Header:    token.Header,
		Claims:    claims,
	})
}

// PubKeyCmd prints the public key of the signer
type PubKeyCmd struct {
	Format string `help:"output format (pem|jwk)" enum:"pem,jwk" default:"pem"`
}

// Run the command
func (a *PubKeyCmd) Run(ctx *Cli) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	creds := client.Credentials()
	pub := creds.Public()

	if a.Format == "jwk" {
		jwk := jose.JSONWebKey{
			Key:       pub,
			KeyID:     creds.KeyID(),
			Algorithm: "RS256",
			Use:       "sig",
		}
		if jwk.KeyID == "" {
			tp, err := jwk.Thumbprint(crypto.SHA256)
			if err != nil {
				return errors.WithStack(err)
			}
			jwk.KeyID = base64.RawURLEncoding.EncodeToString(tp)
		}
		return ctx.WriteJSON(&jwk)
	}

	pem, err := certutil.EncodePublicKeyToPEM(pub)
	if err != nil {
		return err
	}
	_, _ = ctx.Writer().Write(pem)
	return nil
}
