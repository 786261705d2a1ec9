package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/internal/config"
	dberrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Error codes with which the provider signals that silent acquisition
// cannot succeed and a user-visible flow is needed.
var interactionRequiredCodes = map[string]struct{}{
	"interaction_required": {},
	"login_required":       {},
	"consent_required":     {},
	"invalid_grant":        {},
}

// OIDCClient implements Client against a standard OIDC provider using
// the authorization code flow with PKCE for interactive sign-in and
// the refresh-token grant for silent acquisition.
type OIDCClient struct {
	provider     *oidc.Provider
	oauth2Config *oauth2.Config
	logger       zerolog.Logger
	openURL      func(url string) error

	mu      sync.Mutex
	account *Account
	token   *oauth2.Token
}

var _ Client = (*OIDCClient)(nil)

// OIDCClientOption defines a function type to modify the OIDCClient instance.
type OIDCClientOption func(*OIDCClient)

// WithOpenURL sets the function used to hand the authorization URL to
// the user. The default prints it for the user to open.
func WithOpenURL(open func(url string) error) OIDCClientOption {
	return func(c *OIDCClient) {
		c.openURL = open
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger zerolog.Logger) OIDCClientOption {
	return func(c *OIDCClient) {
		c.logger = logger
	}
}

// NewOIDCClient discovers the provider's endpoints and prepares the
// OAuth2 configuration. No network flow is started until sign-in.
func NewOIDCClient(ctx context.Context, cfg config.IdentityConfig, options ...OIDCClientOption) (*OIDCClient, error) {
	provider, err := oidc.NewProvider(ctx, cfg.GetIssuerURL())
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCClient] oidc.NewProvider")
	}

	scopes := append([]string{oidc.ScopeOpenID, "profile", "email", "offline_access"}, cfg.GetScopes()...)
	c := &OIDCClient{
		provider: provider,
		oauth2Config: &oauth2.Config{
			ClientID:    cfg.GetClientID(),
			Endpoint:    provider.Endpoint(),
			RedirectURL: cfg.GetRedirectURL(),
			Scopes:      scopes,
		},
		logger: zerolog.Nop(),
	}
	c.openURL = func(authURL string) error {
		fmt.Printf("Open the following URL to sign in:\n\n  %s\n\n", authURL)
		return nil
	}

	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *OIDCClient) SignInInteractive(ctx context.Context) (*Account, error) {
	account, token, err := c.runAuthCodeFlow(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCClient.SignInInteractive]")
	}

	c.mu.Lock()
	c.account = account
	c.token = token
	c.mu.Unlock()
	return account, nil
}

func (c *OIDCClient) SignOutInteractive(ctx context.Context, account Account) error {
	c.mu.Lock()
	c.account = nil
	c.token = nil
	c.mu.Unlock()

	// Azure AD style front-channel logout; the browser session at the
	// provider outlives our local token drop otherwise.
	logoutURL, err := c.endSessionURL()
	if err != nil {
		c.logger.Warn().Err(err).Msg("no end-session endpoint, local sign-out only")
		return nil
	}
	if err := c.openURL(logoutURL); err != nil {
		return errors.Wrap(err, "[OIDCClient.SignOutInteractive] openURL")
	}
	return nil
}

func (c *OIDCClient) AcquireSilently(ctx context.Context, account Account, scopes []string, forceRefresh bool) (*Credential, error) {
	c.mu.Lock()
	stored := c.token
	c.mu.Unlock()

	if stored == nil || stored.RefreshToken == "" {
		return nil, errors.Wrap(dberrors.ErrInteractionRequired, "no refresh token held")
	}

	current := *stored
	if forceRefresh {
		// An already-expired Expiry makes the token source go to the
		// network instead of returning the cached access token.
		current.Expiry = time.Unix(1, 0)
	}

	refreshed, err := c.oauth2Config.TokenSource(ctx, &current).Token()
	if err != nil {
		return nil, classifyAcquisitionError(err)
	}

	c.mu.Lock()
	c.token = refreshed
	c.mu.Unlock()

	return &Credential{Token: refreshed.AccessToken, ExpiresAt: refreshed.Expiry}, nil
}

func (c *OIDCClient) AcquireInteractive(ctx context.Context, account Account, scopes []string) error {
	_, err := c.SignInInteractive(ctx)
	return err
}

func (c *OIDCClient) Accounts() []Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return nil
	}
	return []Account{*c.account}
}

// runAuthCodeFlow drives an authorization code + PKCE flow through a
// short-lived local callback listener.
func (c *OIDCClient) runAuthCodeFlow(ctx context.Context) (*Account, *oauth2.Token, error) {
	state := uuid.New().String()
	nonce := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	redirectURL, err := url.Parse(c.oauth2Config.RedirectURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse redirect URL")
	}

	listener, err := net.Listen("tcp", redirectURL.Host)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listen on redirect host")
	}
	defer listener.Close()

	type callbackResult struct {
		code string
		err  error
	}
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirectURL.Path, func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.FormValue("error"); errParam != "" {
			http.Error(w, "Sign-in failed", http.StatusBadRequest)
			results <- callbackResult{err: errors.Errorf("authorization failed: %s - %s", errParam, r.FormValue("error_description"))}
			return
		}
		if r.FormValue("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			results <- callbackResult{err: errors.New("state mismatch")}
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this window.")
		results <- callbackResult{code: r.FormValue("code")}
	})

	server := &http.Server{Handler: mux}
	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	authURL := c.oauth2Config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	)
	if err := c.openURL(authURL); err != nil {
		return nil, nil, errors.Wrap(err, "openURL")
	}

	var code string
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case result := <-results:
		if result.err != nil {
			return nil, nil, result.err
		}
		code = result.code
	}

	token, err := c.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, nil, errors.Wrap(err, "code exchange")
	}

	account, err := c.verifyIDToken(ctx, token, nonce)
	if err != nil {
		return nil, nil, err
	}
	return account, token, nil
}

func (c *OIDCClient) verifyIDToken(ctx context.Context, token *oauth2.Token, nonce string) (*Account, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no ID token in response")
	}

	idToken, err := c.provider.Verifier(&oidc.Config{ClientID: c.oauth2Config.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "ID token verification")
	}

	var claims struct {
		Nonce             string `json:"nonce"`
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
		Name              string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "extract claims")
	}
	if claims.Nonce != nonce {
		return nil, errors.New("nonce mismatch")
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}
	return &Account{ID: claims.Sub, Username: username, Name: claims.Name}, nil
}

func (c *OIDCClient) endSessionURL() (string, error) {
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := c.provider.Claims(&claims); err != nil {
		return "", errors.Wrap(err, "provider claims")
	}
	if claims.EndSessionEndpoint == "" {
		return "", errors.New("provider advertises no end_session_endpoint")
	}
	return claims.EndSessionEndpoint, nil
}

// classifyAcquisitionError maps provider responses onto the error
// taxonomy: OAuth error codes that demand a user-visible flow become
// ErrInteractionRequired, everything else stays retryable.
func classifyAcquisitionError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if _, required := interactionRequiredCodes[retrieveErr.ErrorCode]; required {
			return errors.Wrap(dberrors.ErrInteractionRequired, retrieveErr.ErrorCode)
		}
	}
	return errors.Wrap(dberrors.ErrTransientAcquisition, err.Error())
}
