package cli

import (
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/effective-security/jwtbearer/certutil"
	"github.com/effective-security/jwtbearer/grant"
	jose "github.com/go-jose/go-jose/v3"
)

func (s *testSuite) TestToken() {
	cmd := TokenCmd{}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"access_token": "tok123"`, `"token_type": "Bearer"`, `"expires": "`)

	var res tokenResult
	s.Require().NoError(json.Unmarshal(s.Out.Bytes(), &res))
	s.Equal("tok123", res.AccessToken)

	// cached by the client
	s.Out.Reset()
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"access_token": "tok123"`)
	s.EqualValues(1, atomic.LoadInt32(&s.calls))
}

func (s *testSuite) TestTokenServerDown() {
	s.server.Close()

	cmd := TokenCmd{}
	err := cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to get token: transport: failed to request token")
	s.Equal(grant.KindTransport, grant.KindOf(err))
}

func (s *testSuite) TestAssertion() {
	cmd := AssertionCmd{}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"alg": "RS256"`, `"iss": "svc@example.com"`, `"scope": "scope.a scope.b"`, `"aud": "`+s.server.URL+`"`)
	s.HasNoText(`"sub"`, `"kid"`)
	s.EqualValues(0, atomic.LoadInt32(&s.calls))

	var res assertionResult
	s.Require().NoError(json.Unmarshal(s.Out.Bytes(), &res))
	s.Equal(int64(3600), res.Claims.ExpiresAt-res.Claims.IssuedAt)
	s.Len(strings.Split(res.Assertion, "."), 3)

	s.Out.Reset()
	f := false
	cmd = AssertionCmd{Claims: &f}
	s.Require().NoError(cmd.Run(s.ctl))
	s.Equal(res.Assertion[:20], s.Out.String()[:20])
	s.HasNoText(`"iss"`)
}

func (s *testSuite) TestPubKey() {
	cmd := PubKeyCmd{Format: "pem"}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("-----BEGIN PUBLIC KEY-----")

	pub, err := certutil.ParsePublicKeyPEM(s.Out.Bytes())
	s.Require().NoError(err)
	ki, err := certutil.NewKeyInfo(pub)
	s.Require().NoError(err)
	s.Equal("RSA", ki.Type)
	s.Equal(2048, ki.KeySize)

	s.Out.Reset()
	cmd = PubKeyCmd{Format: "jwk"}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"kty": "RSA"`, `"alg": "RS256"`, `"use": "sig"`, `"kid": "`)

	var jwk jose.JSONWebKey
	s.Require().NoError(json.Unmarshal(s.Out.Bytes(), &jwk))
	s.True(jwk.Valid())
	s.True(jwk.IsPublic())
	s.NotEmpty(jwk.KeyID)
}

func (s *testSuite) TestClientErrors() {
	c := &Cli{Cfg: "testdata/missing.yaml"}
	_, err := c.Client()
	s.Error(err)

	err = (&TokenCmd{}).Run(c)
	s.Error(err)
	err = (&AssertionCmd{}).Run(c)
	s.Error(err)
	err = (&PubKeyCmd{}).Run(c)
	s.Error(err)
}
