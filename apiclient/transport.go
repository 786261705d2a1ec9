// Package apiclient wires the session controller into the HTTP
// transport: an outbound hook that injects the current bearer token
// and an inbound hook that drives a bounded one-shot refresh-and-retry
// on authorization failures.
package apiclient

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenGetter obtains a bearer token, optionally forcing a refresh.
// It is the session controller's GetAccessToken, injected explicitly
// so no process-wide registry is needed.
type TokenGetter func(ctx context.Context, forceRefresh bool) (string, error)

// AuthErrorHandler is invoked after a retried request still fails
// authorization. It is the session controller's HandleAuthError.
type AuthErrorHandler func(ctx context.Context) error

// Transport is an http.RoundTripper that attaches bearer credentials
// to requests for protected endpoints and retries an unauthorized
// response exactly once with a force-refreshed credential.
type Transport struct {
	base            http.RoundTripper
	getToken        TokenGetter
	handleAuthError AuthErrorHandler
	publicPrefixes  []string
	logger          zerolog.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// TransportOption defines a function type to modify the Transport instance.
type TransportOption func(*Transport)

// WithBase sets the underlying round tripper. Defaults to
// http.DefaultTransport.
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

// WithPublicPrefixes marks request paths that never carry a credential
// and never enter the retry protocol.
func WithPublicPrefixes(prefixes ...string) TransportOption {
	return func(t *Transport) {
		t.publicPrefixes = prefixes
	}
}

// WithLogger sets the transport's logger.
func WithLogger(logger zerolog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates a Transport with the controller hooks injected
// as constructor parameters.
func NewTransport(getToken TokenGetter, handleAuthError AuthErrorHandler, options ...TransportOption) (*Transport, error) {
	if getToken == nil {
		return nil, errors.New("[NewTransport] getToken is required")
	}
	if handleAuthError == nil {
		return nil, errors.New("[NewTransport] handleAuthError is required")
	}

	t := &Transport{
		base:            http.DefaultTransport,
		getToken:        getToken,
		handleAuthError: handleAuthError,
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// Client returns an *http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements the outbound and inbound hooks. For protected
// endpoints the request is sent with the current token; when token
// acquisition fails the request proceeds without a credential rather
// than blocking, and the inbound side deals with the resulting 401.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.isPublic(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	outbound, err := t.withToken(req, false)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", req.URL.Path).Msg("token acquisition failed, sending request without credential")
		outbound = req
	}

	resp, err := t.base.RoundTrip(outbound)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One-shot retry: this request has not been retried yet. Resubmit
	// the exact original request once with a force-refreshed token.
	retried, retryErr := t.withToken(req, true)
	if retryErr != nil {
		t.failAuthorization(ctx)
		return resp, nil
	}

	drainAndClose(resp)
	retryResp, err := t.base.RoundTrip(retried)
	if err != nil {
		t.failAuthorization(ctx)
		return nil, errors.Wrap(err, "[Transport.RoundTrip] retry")
	}
	if retryResp.StatusCode == http.StatusUnauthorized {
		// Already retried once; the bound is reached.
		t.failAuthorization(ctx)
	}
	return retryResp, nil
}

// withToken clones req and attaches a bearer token obtained with the
// given refresh flag. The clone keeps the original request intact for
// a potential resubmission.
func (t *Transport) withToken(req *http.Request, forceRefresh bool) (*http.Request, error) {
	token, err := t.getToken(req.Context(), forceRefresh)
	if err != nil {
		return nil, err
	}
	outbound := cloneRequest(req)
	if outbound == nil {
		return nil, errors.New("[Transport.withToken] request body cannot be resubmitted")
	}
	outbound.Header.Set("Authorization", "Bearer "+token)
	return outbound, nil
}

func (t *Transport) failAuthorization(ctx context.Context) {
	if err := t.handleAuthError(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("auth error handler failed")
	}
}

func (t *Transport) isPublic(path string) bool {
	for _, prefix := range t.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// cloneRequest returns a resubmittable copy of req, or nil when the
// body cannot be replayed.
func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone
	}
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil
	}
	clone.Body = body
	return clone
}

func drainAndClose(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
