package grant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/jwtbearer/metricskey"
	"github.com/effective-security/xlog"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/oauth2"
)

const (
	// DefaultTokenURL is the Google OAuth2 token endpoint
	DefaultTokenURL = "https://www.googleapis.com/oauth2/v4/token"
	// GrantType is the RFC 7523 JWT Bearer grant type
	GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	maxResponseSize = 1 << 20
)

// Exchanger exchanges a signed assertion for an AccessToken.
// A single call performs at most one round trip and does not retry.
type Exchanger interface {
	Exchange(ctx context.Context, assertion string) (AccessToken, error)
}

// ExchangerFunc is an adapter to use ordinary functions as Exchanger
type ExchangerFunc func(ctx context.Context, assertion string) (AccessToken, error)

// Exchange implements Exchanger
func (f ExchangerFunc) Exchange(ctx context.Context, assertion string) (AccessToken, error) {
	return f(ctx, assertion)
}

// HTTPExchanger posts assertions to a token endpoint
type HTTPExchanger struct {
	tokenURL string
	client   *http.Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   *int64 `json:"expires_in"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	URI         string `json:"error_uri"`
}

// NewHTTPExchanger returns HTTPExchanger for tokenURL.
// If client is nil, the client from the request context under oauth2.HTTPClient
// or http.DefaultClient is used.
func NewHTTPExchanger(tokenURL string, client *http.Client) *HTTPExchanger {
	return &HTTPExchanger{
		tokenURL: tokenURL,
		client:   client,
	}
}

// TokenURL returns the token endpoint
func (e *HTTPExchanger) TokenURL() string {
	return e.tokenURL
}

// CreateTokenRequest returns a form-encoded POST request for the assertion
func (e *HTTPExchanger) CreateTokenRequest(ctx context.Context, assertion string) (*http.Request, error) {
	v := url.Values{
		"grant_type": {GrantType},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(v.Encode()))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Exchange implements Exchanger
func (e *HTTPExchanger) Exchange(ctx context.Context, assertion string) (AccessToken, error) {
	req, err := e.CreateTokenRequest(ctx, assertion)
	if err != nil {
		return AccessToken{}, newError(KindTransport, err)
	}

	started := time.Now()
	resp, err := ctxhttp.Do(ctx, e.httpClient(ctx), req)
	if err != nil {
		metricskey.PerfTokenExchange.MeasureSince(started, "error")
		return AccessToken{}, newError(KindTransport, errors.WithMessagef(err, "failed to request token"))
	}
	// sampled after the response, so the cached lifetime errs on the short side
	receivedAt := TimeNowFn()
	defer func() { _ = resp.Body.Close() }()

	metricskey.PerfTokenExchange.MeasureSince(started, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return AccessToken{}, newError(KindTransport, errors.WithMessagef(err, "failed to read token response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return AccessToken{}, serverError(resp.StatusCode, body)
	}

	return decodeTokenResponse(body, receivedAt)
}

func (e *HTTPExchanger) httpClient(ctx context.Context) *http.Client {
	if e.client != nil {
		return e.client
	}
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	return http.DefaultClient
}

func decodeTokenResponse(body []byte, receivedAt time.Time) (AccessToken, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return AccessToken{}, newError(KindDecode, errors.WithMessagef(err, "failed to decode token response"))
	}
	if tr.AccessToken == "" {
		return AccessToken{}, newError(KindDecode, errors.New("missing access_token in token response"))
	}
	if tr.ExpiresIn == nil {
		return AccessToken{}, newError(KindDecode, errors.New("missing expires_in in token response"))
	}
	if *tr.ExpiresIn < 0 {
		return AccessToken{}, newError(KindDecode, errors.Errorf("invalid expires_in in token response: %d", *tr.ExpiresIn))
	}

	return AccessToken{
		Value:     tr.AccessToken,
		TokenType: tr.TokenType,
		Expires:   receivedAt.Add(time.Duration(*tr.ExpiresIn) * time.Second),
	}, nil
}

func serverError(status int, body []byte) error {
	e := &Error{
		Kind:       KindServer,
		StatusCode: status,
	}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		e.Code = er.Error
		e.Description = er.Description
	}
	e.err = errors.Errorf("token endpoint returned %d %s", status, http.StatusText(status))

	logger.KV(xlog.ERROR, "status", status, "error", e.Code, "description", e.Description)
	return e
}
