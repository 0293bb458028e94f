package credentials

import (
	"context"
	"crypto"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/cryptoprov"
	"github.com/effective-security/jwtbearer/grant"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout of the token request
const DefaultTimeout = 30 * time.Second

// Config of the token client.
//
// The signing key is either `key`, a P12 file or a key URI resolved by cryptoprov,
// or a service account `key_file`. If neither is set,
// the key file from GOOGLE_APPLICATION_CREDENTIALS is used.
type Config struct {
	// Identity is the `iss` claim, required with `key`
	Identity string `json:"identity,omitempty" yaml:"identity,omitempty"`
	// Subject is the optional `sub` claim
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	// KeyID is the optional `kid` header
	KeyID string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	// Key is the key URI, such as a PEM file path, `awskms:<id>` or `gcpkms:<name>`.
	// KMS schemes are available when cryptoprov/awskmscrypto or cryptoprov/gcpkmscrypto is imported.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
	// KeyPassword of a P12 `key`, DefaultP12Password if not set
	KeyPassword string `json:"key_password,omitempty" yaml:"key_password,omitempty"`
	// KeyFile is the path of a service account JSON key file
	KeyFile string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	// Scopes to request
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	// TokenURL is the token endpoint and assertion audience
	TokenURL string `json:"token_url,omitempty" yaml:"token_url,omitempty"`
	// Timeout of the token request, as Go duration
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LoadConfig loads the client configuration from YAML or JSON file.
// Relative `key` and `key_file` paths are resolved against the config folder.
func LoadConfig(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := new(Config)
	if strings.HasSuffix(file, ".json") {
		err = json.Unmarshal(b, cfg)
	} else {
		err = yaml.Unmarshal(b, cfg)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode file: %s", file)
	}

	dir := filepath.Dir(file)
	cfg.KeyFile = resolvePath(dir, cfg.KeyFile)
	if cfg.Key != "" && !IsP12(cfg.Key) {
		k, err := cryptoprov.ParseKeyURI(cfg.Key)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid configuration: %s", file)
		}
		if k.Scheme == cryptoprov.SchemeFile {
			cfg.Key = resolvePath(dir, k.Key)
		}
	} else {
		cfg.Key = resolvePath(dir, cfg.Key)
	}

	if _, err = cfg.TimeoutDuration(); err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration: %s", file)
	}
	return cfg, nil
}

func resolvePath(dir, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	if _, err := os.Stat(file); err == nil {
		return file
	}
	return filepath.Join(dir, file)
}

// TimeoutDuration returns the parsed Timeout, or DefaultTimeout
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, errors.WithMessagef(err, "invalid timeout")
	}
	if d <= 0 {
		return 0, errors.Errorf("invalid timeout: %s", c.Timeout)
	}
	return d, nil
}

// Credentials returns grant.Credentials for the configured key
func (c *Config) Credentials(ctx context.Context) (*grant.Credentials, error) {
	if c.Key != "" {
		if c.Identity == "" {
			return nil, errors.New("identity is required with key")
		}
		var s crypto.Signer
		var err error
		if IsP12(c.Key) {
			s, err = LoadP12Key(c.Key, c.KeyPassword)
		} else {
			s, err = cryptoprov.LoadSigner(ctx, c.Key)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load signer")
		}
		return grant.NewCredentials(c.Identity, s,
			grant.WithKeyID(c.KeyID),
			grant.WithSubject(c.Subject),
		)
	}

	kf, err := LoadKeyFile(c.KeyFile)
	if err != nil {
		return nil, err
	}
	s, err := kf.Signer()
	if err != nil {
		return nil, err
	}
	return grant.NewCredentials(
		values.Select(c.Identity != "", c.Identity, kf.ClientEmail),
		s,
		grant.WithKeyID(values.Select(c.KeyID != "", c.KeyID, kf.PrivateKeyID)),
		grant.WithSubject(c.Subject),
	)
}

// NewClient returns grant.Client for the configuration.
// The options are applied after the configured ones.
func (c *Config) NewClient(ctx context.Context, opts ...grant.Option) (*grant.Client, error) {
	creds, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	timeout, err := c.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	all := []grant.Option{
		grant.WithTokenURL(values.Select(c.TokenURL != "", c.TokenURL, grant.DefaultTokenURL)),
		grant.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	return grant.New(creds, c.Scopes, append(all, opts...)...)
}
