package credentials_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/effective-security/jwtbearer/credentials"
	"github.com/effective-security/jwtbearer/grant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := credentials.LoadConfig("testdata/client.yaml")
	require.NoError(t, err)
	assert.Equal(t, "svc@example.com", cfg.Identity)
	assert.Equal(t, "user@example.com", cfg.Subject)
	assert.Equal(t, "key1", cfg.KeyID)
	assert.Equal(t, filepath.Join("testdata", "rsa2048.key"), cfg.Key)
	assert.Equal(t, []string{
		"https://www.googleapis.com/auth/cloud-platform",
		"https://www.googleapis.com/auth/devstorage.read_only",
	}, cfg.Scopes)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.TokenURL)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)

	c, err := cfg.NewClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://www.googleapis.com/auth/cloud-platform https://www.googleapis.com/auth/devstorage.read_only", c.Scope())
	assert.Equal(t, "https://oauth2.googleapis.com/token", c.TokenURL())
	assert.Equal(t, "svc@example.com", c.Credentials().Identity())
	assert.Equal(t, "user@example.com", c.Credentials().Subject())
	assert.Equal(t, "key1", c.Credentials().KeyID())
}

func TestLoadConfigJSON(t *testing.T) {
	cfg, err := credentials.LoadConfig("testdata/client.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "service_account.json"), cfg.KeyFile)
	assert.Empty(t, cfg.Key)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, credentials.DefaultTimeout, d)

	c, err := cfg.NewClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, grant.DefaultTokenURL, c.TokenURL())
	assert.Equal(t, saEmail, c.Credentials().Identity())
	assert.Equal(t, saKeyID, c.Credentials().KeyID())
	assert.Empty(t, c.Credentials().Subject())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := credentials.LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = credentials.LoadConfig("testdata/corrupted.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode file: testdata/corrupted.yaml")

	_, err = credentials.LoadConfig("testdata/bad_timeout.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration: testdata/bad_timeout.yaml: invalid timeout")
}

func TestConfigTimeout(t *testing.T) {
	for _, v := range []string{"soon", "0s", "-1m"} {
		_, err := (&credentials.Config{Timeout: v}).TimeoutDuration()
		assert.Error(t, err, v)
	}
}

func TestConfigCredentialsErrors(t *testing.T) {
	ctx := context.Background()

	_, err := (&credentials.Config{Key: "testdata/rsa2048.key"}).Credentials(ctx)
	assert.EqualError(t, err, "identity is required with key")

	_, err = (&credentials.Config{Identity: "svc@example.com", Key: "testdata/missing.key"}).Credentials(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load signer")

	t.Setenv(credentials.EnvApplicationCredentials, "")
	_, err = (&credentials.Config{}).NewClient(ctx)
	assert.EqualError(t, err, "key file is not specified and GOOGLE_APPLICATION_CREDENTIALS is not set")

	_, err = (&credentials.Config{Identity: "svc@example.com", Key: "testdata/rsa2048.key", Timeout: "soon"}).NewClient(ctx)
	assert.Error(t, err)
}

func TestConfigDefaultCredentials(t *testing.T) {
	t.Setenv(credentials.EnvApplicationCredentials, saFile)

	cfg := &credentials.Config{
		Identity: "override@example.com",
		KeyID:    "override",
	}
	creds, err := cfg.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "override@example.com", creds.Identity())
	assert.Equal(t, "override", creds.KeyID())
}

func TestConfigClientGetToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, grant.GrantType, r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok123","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	key, err := os.ReadFile("testdata/rsa2048.key")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signer.key"), key, 0600))

	cfgFile := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"identity: svc@example.com\nkey: signer.key\ntoken_url: "+srv.URL+"\nscopes: [scope.a]\n"), 0600))

	cfg, err := credentials.LoadConfig(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "signer.key"), cfg.Key)

	c, err := cfg.NewClient(context.Background())
	require.NoError(t, err)

	tok, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok123", tok.Value)
	assert.False(t, tok.Expired())
}

func TestConfigWeakKey(t *testing.T) {
	cfg := &credentials.Config{
		Identity: "svc@example.com",
		Key:      "testdata/rsa1024.key",
		TokenURL: "http://localhost:1/token",
	}
	c, err := cfg.NewClient(context.Background())
	require.NoError(t, err)

	_, err = c.GetToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, grant.KindSigning, grant.KindOf(err))
	assert.Contains(t, err.Error(), "unsupported RSA key size: 1024")
}

func TestConfigUnregisteredKeyScheme(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"identity: svc@example.com\nkey: awskms:arn:aws:kms:us-east-1:123456789012:key/1234\n"), 0600))

	_, err := credentials.LoadConfig(cfgFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration: "+cfgFile+": signer loader not registered: awskms, registered: file")

	cfg := &credentials.Config{
		Identity: "svc@example.com",
		Key:      "gcpkms:projects/p/locations/global/keyRings/r/cryptoKeys/k/cryptoKeyVersions/1",
	}
	_, err = cfg.Credentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load signer: signer loader not registered: gcpkms")
}
