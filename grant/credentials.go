package grant

import (
	"crypto"

	"github.com/cockroachdb/errors"
)

// Credentials is the identity material used to sign assertions.
// It is immutable once created.
type Credentials struct {
	identity string
	subject  string
	keyID    string
	signer   crypto.Signer
}

// CredentialsOption configures optional Credentials fields
type CredentialsOption func(*Credentials)

// WithSubject sets the `sub` claim, the user to impersonate
// with domain-wide delegation.
func WithSubject(subject string) CredentialsOption {
	return func(c *Credentials) {
		c.subject = subject
	}
}

// WithKeyID sets the `kid` header of the assertion
func WithKeyID(kid string) CredentialsOption {
	return func(c *Credentials) {
		c.keyID = kid
	}
}

// NewCredentials returns Credentials for identity, signed with signer.
func NewCredentials(identity string, signer crypto.Signer, opts ...CredentialsOption) (*Credentials, error) {
	if identity == "" {
		return nil, errors.New("identity is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}

	c := &Credentials{
		identity: identity,
		signer:   signer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Identity returns the issuer of assertions, such as a service account email
func (c *Credentials) Identity() string {
	return c.identity
}

// Subject returns the impersonated subject, if any
func (c *Credentials) Subject() string {
	return c.subject
}

// KeyID returns the key ID placed in the assertion header, if any
func (c *Credentials) KeyID() string {
	return c.keyID
}

// Public returns the public key of the signer
func (c *Credentials) Public() crypto.PublicKey {
	return c.signer.Public()
}
