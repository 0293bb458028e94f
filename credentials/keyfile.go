package credentials

import (
	"crypto"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/cryptoprov"
	"github.com/effective-security/jwtbearer/grant"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/jwtbearer", "credentials")

const (
	// EnvApplicationCredentials is the environment variable
	// with the path of the default service account key file
	EnvApplicationCredentials = "GOOGLE_APPLICATION_CREDENTIALS"

	// TypeServiceAccount is the only supported key file type
	TypeServiceAccount = "service_account"
)

// KeyFile is a Google service account JSON key file
type KeyFile struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// LoadKeyFile loads service account key file.
// If file is empty, the path is taken from GOOGLE_APPLICATION_CREDENTIALS.
func LoadKeyFile(file string) (*KeyFile, error) {
	if file == "" {
		file = os.Getenv(EnvApplicationCredentials)
		if file == "" {
			return nil, errors.Errorf("key file is not specified and %s is not set", EnvApplicationCredentials)
		}
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	kf, err := ParseKeyFile(b)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load key file: %s", file)
	}

	logger.KV(xlog.DEBUG, "file", file, "client_email", kf.ClientEmail, "key_id", kf.PrivateKeyID)
	return kf, nil
}

// ParseKeyFile parses service account JSON key
func ParseKeyFile(b []byte) (*KeyFile, error) {
	kf := new(KeyFile)
	if err := json.Unmarshal(b, kf); err != nil {
		return nil, errors.WithMessage(err, "failed to decode key file")
	}
	if kf.Type != TypeServiceAccount {
		return nil, errors.Errorf("unsupported credentials type: %q", kf.Type)
	}
	if kf.ClientEmail == "" {
		return nil, errors.New("missing client_email")
	}
	if kf.PrivateKey == "" {
		return nil, errors.New("missing private_key")
	}
	return kf, nil
}

// Signer returns the private key of the service account
func (kf *KeyFile) Signer() (crypto.Signer, error) {
	s, err := cryptoprov.NewSignerFromPEM([]byte(kf.PrivateKey))
	if err != nil {
		return nil, errors.WithMessage(err, "invalid private_key")
	}
	return s, nil
}

// Credentials returns grant.Credentials for the service account,
// with private_key_id as the assertion key ID.
// A non-empty subject is the user to impersonate.
func (kf *KeyFile) Credentials(subject string) (*grant.Credentials, error) {
	s, err := kf.Signer()
	if err != nil {
		return nil, err
	}
	return grant.NewCredentials(kf.ClientEmail, s,
		grant.WithKeyID(kf.PrivateKeyID),
		grant.WithSubject(subject),
	)
}
