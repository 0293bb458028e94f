package cryptoprov

import (
	"context"
	"crypto"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/jwtbearer", "cryptoprov")

// SchemeFile is the scheme of PEM encoded key files
const SchemeFile = "file"

// SignerLoader returns crypto.Signer for the key URI
type SignerLoader func(ctx context.Context, keyURI *KeyURI) (crypto.Signer, error)

// KeyURI is a parsed key location: `<scheme>:<key>[?attr=value&...]`
type KeyURI struct {
	// Scheme selects the loader
	Scheme string
	// Key is the scheme specific key identifier, such as a path, ARN or resource name
	Key string
	// Attributes are the optional query parameters
	Attributes url.Values
}

// String returns the URI
func (u *KeyURI) String() string {
	s := u.Scheme + ":" + u.Key
	if len(u.Attributes) > 0 {
		s += "?" + u.Attributes.Encode()
	}
	return s
}

// ParseKeyURI returns KeyURI; a value without a scheme is a file path.
// A scheme with no registered loader is an error.
func ParseKeyURI(location string) (*KeyURI, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("key location is required")
	}

	scheme, rest, found := strings.Cut(location, ":")
	if !found || !isScheme(scheme) {
		return &KeyURI{Scheme: SchemeFile, Key: location}, nil
	}
	if !isRegistered(scheme) {
		return nil, errors.Errorf("signer loader not registered: %s, registered: %s",
			scheme, strings.Join(Registered(), ","))
	}
	if scheme == SchemeFile {
		return &KeyURI{Scheme: SchemeFile, Key: strings.TrimPrefix(rest, "//")}, nil
	}

	key, query, _ := strings.Cut(rest, "?")
	attrs, err := url.ParseQuery(query)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid key attributes: %q", location)
	}
	if key == "" {
		return nil, errors.Errorf("missing key in %q", location)
	}

	return &KeyURI{
		Scheme:     scheme,
		Key:        key,
		Attributes: attrs,
	}, nil
}

var (
	lockLoaders sync.RWMutex
	loaders     = map[string]SignerLoader{
		SchemeFile: fileLoader,
	}
)

// Register signer loader by URI scheme
func Register(scheme string, loader SignerLoader) error {
	lockLoaders.Lock()
	defer lockLoaders.Unlock()

	if _, ok := loaders[scheme]; ok {
		return errors.Errorf("already registered: %s", scheme)
	}

	loaders[scheme] = loader
	return nil
}

// Registered returns registered schemes
func Registered() []string {
	lockLoaders.RLock()
	defer lockLoaders.RUnlock()

	list := make([]string, 0, len(loaders))
	for m := range loaders {
		list = append(list, m)
	}
	sort.Strings(list)
	return list
}

// isScheme returns true for a URI scheme of two or more characters,
// so that Windows drive letters stay file paths
func isScheme(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func isRegistered(scheme string) bool {
	lockLoaders.RLock()
	defer lockLoaders.RUnlock()
	_, ok := loaders[scheme]
	return ok
}

// LoadSigner returns crypto.Signer for the key location
func LoadSigner(ctx context.Context, location string) (crypto.Signer, error) {
	keyURI, err := ParseKeyURI(location)
	if err != nil {
		return nil, err
	}

	lockLoaders.RLock()
	loader, ok := loaders[keyURI.Scheme]
	lockLoaders.RUnlock()
	if !ok {
		return nil, errors.Errorf("signer loader not registered: %s", keyURI.Scheme)
	}

	logger.KV(xlog.DEBUG, "scheme", keyURI.Scheme, "key", keyURI.Key)

	signer, err := loader(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	return signer, nil
}
