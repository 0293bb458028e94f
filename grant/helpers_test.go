package grant_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/grant"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

// testKey returns an RSA key shared by the package tests
func testKey(t *testing.T) *rsa.PrivateKey {
	keyOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	})
	return rsaKey
}

func testCredentials(t *testing.T, opts ...grant.CredentialsOption) *grant.Credentials {
	creds, err := grant.NewCredentials("svc@example.com", testKey(t), opts...)
	require.NoError(t, err)
	return creds
}

// fixedClock sets grant.TimeNowFn for the test
func fixedClock(t *testing.T, now time.Time) *time.Time {
	current := now
	save := grant.TimeNowFn
	grant.TimeNowFn = func() time.Time { return current }
	t.Cleanup(func() { grant.TimeNowFn = save })
	return &current
}

type failingSigner struct {
	crypto.Signer
}

func (failingSigner) Sign(io.Reader, []byte, crypto.SignerOpts) ([]byte, error) {
	return nil, errors.New("hsm offline")
}
