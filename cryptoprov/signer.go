package cryptoprov

import (
	"context"
	"crypto"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/certutil"
)

// NewSignerFromFile returns crypto.Signer from PEM encoded key file
func NewSignerFromFile(keyFile string) (crypto.Signer, error) {
	s, err := certutil.LoadPrivateKey(keyFile, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "load key file")
	}
	return s, nil
}

// NewSignerFromPEM returns crypto.Signer from PEM encoded key
func NewSignerFromPEM(keyPEM []byte) (crypto.Signer, error) {
	s, err := certutil.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func fileLoader(_ context.Context, keyURI *KeyURI) (crypto.Signer, error) {
	return NewSignerFromFile(keyURI.Key)
}
