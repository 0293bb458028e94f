package grant

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"golang.org/x/oauth2"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/jwtbearer", "grant")

// Client obtains access tokens with the JWT Bearer grant
// and caches the current one until it expires.
// It is safe for concurrent use.
type Client struct {
	creds     *Credentials
	scope     string
	tokenURL  string
	exchanger Exchanger
	cache     *Cache
}

// Option configures Client
type Option func(*options)

type options struct {
	tokenURL   string
	httpClient *http.Client
	exchanger  Exchanger
}

// WithTokenURL overrides DefaultTokenURL.
// The URL is used both as the endpoint and as the assertion audience.
func WithTokenURL(tokenURL string) Option {
	return func(o *options) {
		o.tokenURL = tokenURL
	}
}

// WithHTTPClient sets the HTTP client for the token request
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithExchanger replaces the HTTP exchange with a custom Exchanger
func WithExchanger(exchanger Exchanger) Option {
	return func(o *options) {
		o.exchanger = exchanger
	}
}

// New returns Client for creds, requesting scopes joined by a single space
func New(creds *Credentials, scopes []string, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, errors.New("credentials are required")
	}

	o := &options{
		tokenURL: DefaultTokenURL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tokenURL == "" {
		return nil, errors.New("token URL is required")
	}

	c := &Client{
		creds:     creds,
		scope:     strings.Join(scopes, " "),
		tokenURL:  o.tokenURL,
		exchanger: o.exchanger,
		cache:     NewCache(),
	}
	if c.exchanger == nil {
		c.exchanger = NewHTTPExchanger(o.tokenURL, o.httpClient)
	}

	logger.KV(xlog.DEBUG, "identity", creds.identity, "token_url", c.tokenURL, "scope", c.scope)
	return c, nil
}

// Scope returns the space-separated scopes requested by the client
func (c *Client) Scope() string {
	return c.scope
}

// TokenURL returns the token endpoint and assertion audience
func (c *Client) TokenURL() string {
	return c.tokenURL
}

// Credentials returns the client's credentials
func (c *Client) Credentials() *Credentials {
	return c.creds
}

// Cached returns the cached token, if any, without fetching
func (c *Client) Cached() (AccessToken, bool) {
	return c.cache.Current()
}

// GetToken returns the cached token if it has not expired,
// otherwise signs a new assertion and exchanges it.
// Failures are returned as *Error; the next call starts over.
func (c *Client) GetToken(ctx context.Context) (AccessToken, error) {
	return c.cache.GetOrFetch(ctx, func() time.Time { return TimeNowFn() }, c.fetch)
}

// Assertion returns a freshly signed assertion without exchanging it
func (c *Client) Assertion() (string, error) {
	return SignAssertion(c.creds, c.scope, c.tokenURL, TimeNowFn())
}

func (c *Client) fetch(ctx context.Context) (AccessToken, error) {
	assertion, err := c.Assertion()
	if err != nil {
		logger.KV(xlog.ERROR, "identity", c.creds.identity, "err", err.Error())
		return AccessToken{}, err
	}

	logger.KV(xlog.DEBUG, "status", "fetching", "identity", c.creds.identity, "token_url", c.tokenURL)

	tok, err := c.exchanger.Exchange(ctx, assertion)
	if err != nil {
		if KindOf(err) == KindUnknown {
			err = newError(KindTransport, err)
		}
		logger.KV(xlog.ERROR, "identity", c.creds.identity, "token_url", c.tokenURL, "err", err.Error())
		return AccessToken{}, err
	}

	logger.KV(xlog.DEBUG, "status", "fetched", "identity", c.creds.identity, "expires", tok.Expires)
	return tok, nil
}

// TokenSource returns oauth2.TokenSource backed by the client's cache
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, client: c}
}

type tokenSource struct {
	ctx    context.Context
	client *Client
}

// Token implements oauth2.TokenSource
func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.client.GetToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return tok.OAuth2Token(), nil
}
