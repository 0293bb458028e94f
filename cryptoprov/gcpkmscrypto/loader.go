package gcpkmscrypto

import (
	"context"
	"crypto"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/certutil"
	"github.com/effective-security/jwtbearer/cryptoprov"
	"github.com/effective-security/jwtbearer/metricskey"
	"github.com/effective-security/xlog"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/jwtbearer", "gcpkmscrypto")

const (
	// ProviderName specifies a provider name
	ProviderName = "GCPKMS"
	// Scheme of the key URI:
	// gcpkms:projects/<p>/locations/<l>/keyRings/<r>/cryptoKeys/<k>/cryptoKeyVersions/<v>?endpoint=<host:port>&credentials=<file>
	Scheme = "gcpkms"
)

func init() {
	_ = cryptoprov.Register(Scheme, Loader)
}

// KmsClient interface
type KmsClient interface {
	GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...gax.CallOption) (*kmspb.PublicKey, error)
	AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...gax.CallOption) (*kmspb.AsymmetricSignResponse, error)
}

// KmsClientFactory override for unittest
var KmsClientFactory = func(ctx context.Context, opts ...option.ClientOption) (KmsClient, error) {
	c, err := kms.NewKeyManagementClient(ctx, opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return c, nil
}

// Loader implements cryptoprov.SignerLoader
func Loader(ctx context.Context, keyURI *cryptoprov.KeyURI) (crypto.Signer, error) {
	var opts []option.ClientOption
	if endpoint := keyURI.Attributes.Get("endpoint"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if file := keyURI.Attributes.Get("credentials"); file != "" {
		//nolint:staticcheck
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := KmsClientFactory(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return GetKey(ctx, client, keyURI.Key)
}

// GetKey returns crypto.Signer for the key version
func GetKey(ctx context.Context, client KmsClient, keyName string) (crypto.Signer, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "getkey")

	logger.KV(xlog.DEBUG, "api", "GetKey", "name", keyName)

	resp, err := client.GetPublicKey(ctx, &kmspb.GetPublicKeyRequest{Name: keyName})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get public key, name=%s", keyName)
	}
	if resp.PemCrc32C != nil && crc32c([]byte(resp.Pem)) != resp.PemCrc32C.Value {
		return nil, errors.Errorf("public key corrupted in-transit, name=%s", keyName)
	}

	if _, ok := signingAlgorithms[resp.Algorithm]; !ok {
		return nil, errors.Errorf("unsupported key algorithm %s, name=%s", resp.Algorithm, keyName)
	}

	pub, err := certutil.ParsePublicKeyPEM([]byte(resp.Pem))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse public key, name=%s", keyName)
	}

	return NewSigner(keyName, resp.Algorithm, pub, client), nil
}
