// Package cryptoprov resolves key URIs to crypto.Signer, so that assertion
// signing works the same way for keys held in memory and in a cloud KMS.
//
// A key URI is either a path to a PEM encoded private key, optionally prefixed
// with `file:`, or `<scheme>:<key>` for a registered loader:
//   - `awskms:` AWS KMS, registered by the awskmscrypto subpackage
//   - `gcpkms:` Google Cloud KMS, registered by the gcpkmscrypto subpackage
//
// Loaders register themselves from init, so importing the subpackage
// for side effects is enough to enable the scheme.
package cryptoprov
