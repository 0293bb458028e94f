package awskmscrypto

import (
	"context"
	"crypto"
	"crypto/x509"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/cryptoprov"
	"github.com/effective-security/jwtbearer/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/jwtbearer", "awskmscrypto")

const (
	// ProviderName specifies a provider name
	ProviderName = "AWSKMS"
	// Scheme of the key URI: awskms:<key-id|alias|arn>?region=<region>&endpoint=<url>
	Scheme = "awskms"
)

func init() {
	_ = cryptoprov.Register(Scheme, Loader)
}

// KmsClient interface
type KmsClient interface {
	GetPublicKey(context.Context, *kms.GetPublicKeyInput, ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(context.Context, *kms.SignInput, ...func(*kms.Options)) (*kms.SignOutput, error)
}

// KmsClientFactory override for unittest
var KmsClientFactory = func(cfg aws.Config, optFns ...func(*kms.Options)) KmsClient {
	return kms.NewFromConfig(cfg, optFns...)
}

// Loader implements cryptoprov.SignerLoader
func Loader(ctx context.Context, keyURI *cryptoprov.KeyURI) (crypto.Signer, error) {
	client, err := newClient(ctx, keyURI.Attributes.Get("region"), keyURI.Attributes.Get("endpoint"))
	if err != nil {
		return nil, err
	}
	return GetKey(ctx, client, keyURI.Key)
}

func newClient(ctx context.Context, region, endpoint string) (KmsClient, error) {
	var awsops []func(*awsconfig.LoadOptions) error

	if region != "" {
		awsops = append(awsops, awsconfig.WithRegion(region))
	}

	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	token := os.Getenv("AWS_SESSION_TOKEN")
	if id != "" && secret != "" {
		awsops = append(awsops, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, token)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsops...)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var kmsops []func(*kms.Options)
	if endpoint != "" {
		kmsops = append(kmsops, func(o *kms.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return KmsClientFactory(cfg, kmsops...), nil
}

// GetKey returns crypto.Signer for the KMS key
func GetKey(ctx context.Context, client KmsClient, keyID string) (crypto.Signer, error) {
	defer metricskey.PerfCryptoOperation.MeasureSince(time.Now(), ProviderName, "getkey")

	logger.KV(xlog.DEBUG, "api", "GetKey", "keyID", keyID)

	resp, err := client.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: &keyID})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get public key, id=%s", keyID)
	}

	pub, err := x509.ParsePKIXPublicKey(resp.PublicKey)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse public key, id=%s", keyID)
	}

	return NewSigner(aws.ToString(resp.KeyId), keyID, resp.SigningAlgorithms, pub, client), nil
}
