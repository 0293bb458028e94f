package cryptoprov_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/jwtbearer/cryptoprov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKey(t *testing.T) (string, *rsa.PrivateKey) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	file := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(file, pemKey, 0600))
	return file, key
}

func TestParseKeyURI(t *testing.T) {
	_, err := cryptoprov.ParseKeyURI(" ")
	assert.EqualError(t, err, "key location is required")

	u, err := cryptoprov.ParseKeyURI("/tmp/key.pem")
	require.NoError(t, err)
	assert.Equal(t, cryptoprov.SchemeFile, u.Scheme)
	assert.Equal(t, "/tmp/key.pem", u.Key)

	u, err = cryptoprov.ParseKeyURI("file:///tmp/key.pem")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/key.pem", u.Key)

	u, err = cryptoprov.ParseKeyURI(`C:\keys\key.pem`)
	require.NoError(t, err)
	assert.Equal(t, cryptoprov.SchemeFile, u.Scheme)
	assert.Equal(t, `C:\keys\key.pem`, u.Key)

	u, err = cryptoprov.ParseKeyURI("./keys/a:b.pem")
	require.NoError(t, err)
	assert.Equal(t, cryptoprov.SchemeFile, u.Scheme)

	_, err = cryptoprov.ParseKeyURI("unknown:thing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signer loader not registered: unknown, registered: ")
	assert.Contains(t, err.Error(), cryptoprov.SchemeFile)

	err = cryptoprov.Register("test", func(context.Context, *cryptoprov.KeyURI) (crypto.Signer, error) {
		return nil, nil
	})
	require.NoError(t, err)

	u, err = cryptoprov.ParseKeyURI("test:key/1?region=us-west-2&endpoint=http://localhost")
	require.NoError(t, err)
	assert.Equal(t, "test", u.Scheme)
	assert.Equal(t, "key/1", u.Key)
	assert.Equal(t, "us-west-2", u.Attributes.Get("region"))
	assert.Equal(t, "http://localhost", u.Attributes.Get("endpoint"))
	assert.Equal(t, "test:key/1?endpoint=http%3A%2F%2Flocalhost&region=us-west-2", u.String())

	_, err = cryptoprov.ParseKeyURI("test:?region=1")
	assert.EqualError(t, err, `missing key in "test:?region=1"`)

	_, err = cryptoprov.ParseKeyURI("test:key?a=%zz")
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	loader := func(context.Context, *cryptoprov.KeyURI) (crypto.Signer, error) {
		return nil, nil
	}
	require.NoError(t, cryptoprov.Register("reg", loader))
	assert.Contains(t, cryptoprov.Registered(), "reg")
	assert.Contains(t, cryptoprov.Registered(), cryptoprov.SchemeFile)

	err := cryptoprov.Register("reg", loader)
	assert.EqualError(t, err, "already registered: reg")
}

func TestLoadSigner(t *testing.T) {
	ctx := context.Background()
	file, key := writeKey(t)

	s, err := cryptoprov.LoadSigner(ctx, file)
	require.NoError(t, err)
	assert.True(t, key.Equal(s))

	s, err = cryptoprov.LoadSigner(ctx, "file://"+file)
	require.NoError(t, err)
	assert.True(t, key.Equal(s))

	_, err = cryptoprov.LoadSigner(ctx, "not_found")
	assert.EqualError(t, err, "load key file: open not_found: no such file or directory")
}

func TestNewSignerFromPEM(t *testing.T) {
	file, key := writeKey(t)
	pemKey, err := os.ReadFile(file)
	require.NoError(t, err)

	s, err := cryptoprov.NewSignerFromPEM(pemKey)
	require.NoError(t, err)
	assert.True(t, key.Equal(s))

	_, err = cryptoprov.NewSignerFromPEM([]byte("invalid"))
	assert.EqualError(t, err, "unable to decode private key")
}
