package apiclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chetanran/devsecops-sec-dashboard/apiclient"
	"github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/stretchr/testify/require"
)

// tokenScript scripts successive GetAccessToken results.
type tokenScript struct {
	tokens     []string
	errs       []error
	calls      atomic.Int32
	forceFlags []bool
}

func (s *tokenScript) get(ctx context.Context, forceRefresh bool) (string, error) {
	i := int(s.calls.Add(1)) - 1
	s.forceFlags = append(s.forceFlags, forceRefresh)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.tokens) {
		return s.tokens[i], nil
	}
	return s.tokens[len(s.tokens)-1], nil
}

type authErrorSpy struct {
	calls atomic.Int32
}

func (s *authErrorSpy) handle(ctx context.Context) error {
	s.calls.Add(1)
	return nil
}

func newTestTransport(t *testing.T, script *tokenScript, spy *authErrorSpy, options ...apiclient.TransportOption) *apiclient.Transport {
	t.Helper()
	transport, err := apiclient.NewTransport(script.get, spy.handle, options...)
	require.NoError(t, err)
	return transport
}

func TestPublicEndpointSkipsAuthentication(t *testing.T) {
	var sawAuthHeader atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuthHeader.Store(r.Header.Get("Authorization") != "")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"token-1"}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy, apiclient.WithPublicPrefixes("/healthz")).Client()

	resp, err := client.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, sawAuthHeader.Load())
	require.Zero(t, script.calls.Load(), "public endpoints never trigger token acquisition")
}

func TestProtectedEndpointCarriesBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"token-1"}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Get(server.URL + "/api/findings/cloud")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnauthorizedRetriedOnceWithRefreshedToken(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			require.Equal(t, "Bearer stale-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"stale-token", "fresh-token"}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Get(server.URL + "/api/findings/cloud")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), requests.Load())
	require.Equal(t, []bool{false, true}, script.forceFlags, "the retry must force a refresh")
	require.Zero(t, spy.calls.Load())
}

func TestSecondUnauthorizedStopsRetrying(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"token-1", "token-2"}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Get(server.URL + "/api/findings/cloud")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(2), requests.Load(), "exactly one retry, never more")
	require.Equal(t, int32(1), spy.calls.Load(), "exhausted retry triggers the auth error handler")
}

func TestAcquisitionFailureSendsRequestWithoutCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// First acquisition fails, the forced retry acquisition succeeds.
	script := &tokenScript{tokens: []string{"", "fresh-token"}, errs: []error{errors.ErrTransientAcquisition, nil}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Get(server.URL + "/api/findings/cloud")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshFailureFailsTheCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"stale-token"}, errs: []error{nil, errors.ErrInteractionRequired}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Get(server.URL + "/api/findings/cloud")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(1), spy.calls.Load())
}

func TestRetryReplaysRequestBody(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, `{"severity":"HIGH"}`, string(body))
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"stale-token", "fresh-token"}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Post(server.URL+"/api/upload/checkov", "application/json", strings.NewReader(`{"severity":"HIGH"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), requests.Load())
}

func TestNonAuthorizationFailuresPassThrough(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	script := &tokenScript{tokens: []string{"token-1"}}
	spy := &authErrorSpy{}
	client := newTestTransport(t, script, spy).Client()

	resp, err := client.Get(server.URL + "/api/findings/cloud")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, int32(1), requests.Load(), "only authorization failures enter the retry protocol")
	require.Zero(t, spy.calls.Load())
}
