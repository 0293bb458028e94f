package grant

import (
	"crypto"
	"crypto/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/certutil"
	"github.com/effective-security/jwtbearer/metricskey"
	"github.com/golang-jwt/jwt/v5"
)

// MinRSAKeySize is the smallest RSA modulus accepted for RS256
const MinRSAKeySize = 2048

// signingMethodRS256 signs with any crypto.Signer holding an RSA key,
// so that keys in KMS can be used in place of *rsa.PrivateKey.
type signingMethodRS256 struct{}

var rs256 jwt.SigningMethod = signingMethodRS256{}

func (signingMethodRS256) Alg() string {
	return jwt.SigningMethodRS256.Alg()
}

// Sign implements jwt.SigningMethod
func (signingMethodRS256) Sign(signingString string, key any) ([]byte, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Wrapf(jwt.ErrInvalidKeyType, "RS256 requires crypto.Signer, got %T", key)
	}

	h := crypto.SHA256.New()
	h.Write([]byte(signingString))

	sig, err := signer.Sign(rand.Reader, h.Sum(nil), crypto.SHA256)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return sig, nil
}

// Verify implements jwt.SigningMethod
func (signingMethodRS256) Verify(signingString string, sig []byte, key any) error {
	return jwt.SigningMethodRS256.Verify(signingString, sig, key)
}

// SignAssertion returns the compact RS256 JWT proving creds' identity
// and requested scope to the token endpoint at audience.
func SignAssertion(creds *Credentials, scope, audience string, now time.Time) (string, error) {
	defer metricskey.PerfAssertionSign.MeasureSince(time.Now(), "RS256")

	claims, err := NewClaims(creds, scope, audience, now)
	if err != nil {
		return "", err
	}

	if err = checkRS256Key(creds.Public()); err != nil {
		return "", newError(KindSigning, err)
	}

	token := jwt.NewWithClaims(rs256, claims)
	if creds.keyID != "" {
		token.Header["kid"] = creds.keyID
	}

	assertion, err := token.SignedString(creds.signer)
	if err != nil {
		return "", newError(KindSigning, errors.WithMessage(err, "failed to sign assertion"))
	}
	return assertion, nil
}

func checkRS256Key(pub crypto.PublicKey) error {
	ki, err := certutil.NewKeyInfo(pub)
	if err != nil {
		return err
	}
	if ki.Type != "RSA" {
		return errors.Errorf("RS256 requires RSA key, got %s", ki.Type)
	}
	if ki.KeySize < MinRSAKeySize {
		return errors.Errorf("unsupported RSA key size: %d", ki.KeySize)
	}
	return nil
}
