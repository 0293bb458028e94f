package credentials

import (
	"crypto"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/pkcs12"
)

// DefaultP12Password is the password of P12 keys issued for service accounts
const DefaultP12Password = "notasecret"

// IsP12 returns true if the file name has .p12 or .pfx extension
func IsP12(file string) bool {
	f := strings.ToLower(file)
	return strings.HasSuffix(f, ".p12") || strings.HasSuffix(f, ".pfx")
}

// LoadP12Key returns the private key from a PKCS#12 file.
// If password is empty, DefaultP12Password is used.
func LoadP12Key(file, password string) (crypto.Signer, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if password == "" {
		password = DefaultP12Password
	}

	//nolint:staticcheck
	key, _, err := pkcs12.Decode(b, password)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode P12 key: %s", file)
	}

	s, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Errorf("unsupported P12 key: %T", key)
	}
	return s, nil
}
