package gcpkmscrypto

import (
	"context"
	"crypto"
	"crypto/rsa"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/metricskey"
	"github.com/effective-security/xlog"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

type algorithmSpec struct {
	pss  bool
	hash crypto.Hash
}

// signingAlgorithms lists the supported RSA key version algorithms
var signingAlgorithms = map[kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm]algorithmSpec{
	kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_2048_SHA256: {hash: crypto.SHA256},
	kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_3072_SHA256: {hash: crypto.SHA256},
	kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_4096_SHA256: {hash: crypto.SHA256},
	kmspb.CryptoKeyVersion_RSA_SIGN_PKCS1_4096_SHA512: {hash: crypto.SHA512},
	kmspb.CryptoKeyVersion_RSA_SIGN_PSS_2048_SHA256:   {pss: true, hash: crypto.SHA256},
	kmspb.CryptoKeyVersion_RSA_SIGN_PSS_3072_SHA256:   {pss: true, hash: crypto.SHA256},
	kmspb.CryptoKeyVersion_RSA_SIGN_PSS_4096_SHA256:   {pss: true, hash: crypto.SHA256},
	kmspb.CryptoKeyVersion_RSA_SIGN_PSS_4096_SHA512:   {pss: true, hash: crypto.SHA512},
}

func padding(pss bool) string {
	if pss {
		return "PSS"
	}
	return "PKCS1"
}

func crc32c(data []byte) int64 {
	return int64(crc32.Checksum(data, crc32cTable))
}

// Signer implements crypto.Signer with a Cloud KMS key version
type Signer struct {
	keyName   string
	algorithm kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm
	pubKey    crypto.PublicKey
	kmsClient KmsClient
}

// NewSigner creates new signer
func NewSigner(keyName string, algorithm kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm, publicKey crypto.PublicKey, kmsClient KmsClient) crypto.Signer {
	logger.KV(xlog.DEBUG, "name", keyName, "algo", algorithm.String())
	return &Signer{
		keyName:   keyName,
		algorithm: algorithm,
		pubKey:    publicKey,
		kmsClient: kmsClient,
	}
}

// KeyName returns the resource name of the key version
func (s *Signer) KeyName() string {
	return s.keyName
}

// Algorithm returns the key version algorithm
func (s *Signer) Algorithm() kmspb.CryptoKeyVersion_CryptoKeyVersionAlgorithm {
	return s.algorithm
}

// Public returns public key for the signer
func (s *Signer) Public() crypto.PublicKey {
	return s.pubKey
}

func (s *Signer) String() string {
	return fmt.Sprintf("name=%s, algo=%s", s.keyName, s.algorithm)
}

// Sign implements signing operation.
// The padding and hash in opts must match the key version algorithm.
func (s *Signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "sign")

	spec, ok := signingAlgorithms[s.algorithm]
	if !ok {
		return nil, errors.Errorf("unsupported key algorithm %s, name=%s", s.algorithm, s.keyName)
	}
	_, pss := opts.(*rsa.PSSOptions)
	if pss != spec.pss || opts.HashFunc() != spec.hash {
		return nil, errors.Errorf("%s %v signature is not supported by key %s, algo=%s",
			padding(pss), opts.HashFunc(), s.keyName, s.algorithm)
	}

	d := &kmspb.Digest{}
	switch spec.hash {
	case crypto.SHA256:
		d.Digest = &kmspb.Digest_Sha256{Sha256: digest}
	default:
		d.Digest = &kmspb.Digest_Sha512{Sha512: digest}
	}

	req := &kmspb.AsymmetricSignRequest{
		Name:         s.keyName,
		Digest:       d,
		DigestCrc32C: wrapperspb.Int64(crc32c(digest)),
	}
	resp, err := s.kmsClient.AsymmetricSign(context.Background(), req)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to sign")
	}

	if !resp.VerifiedDigestCrc32C {
		return nil, errors.Errorf("sign request corrupted in-transit: %s", s.keyName)
	}
	if resp.Name != s.keyName {
		return nil, errors.Errorf("unexpected key in sign response: %s", resp.Name)
	}
	if resp.SignatureCrc32C == nil || crc32c(resp.Signature) != resp.SignatureCrc32C.Value {
		return nil, errors.Errorf("sign response corrupted in-transit: %s", s.keyName)
	}
	return resp.Signature, nil
}
