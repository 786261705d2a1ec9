// Package session owns the authenticated-session state machine: the
// principal projection, login/logout, the single token choke point for
// outbound calls, the proactive refresh loop, and cross-tab logout
// observation.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/identity"
	dberrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/chetanran/devsecops-sec-dashboard/session/expiry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is the persisted session state. Authenticating is not a State:
// it is an orthogonal in-progress flag that never gates token access.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// DefaultRefreshInterval is how often the proactive refresh loop
// checks whether the credential is inside the refresh window.
const DefaultRefreshInterval = 60 * time.Second

// Controller drives the session lifecycle. All outbound API calls
// obtain their bearer token through GetAccessToken.
type Controller struct {
	client          identity.Client
	provider        *identity.Provider
	tracker         *expiry.Tracker
	logger          zerolog.Logger
	refreshInterval time.Duration

	mu             sync.Mutex
	principal      *Principal
	authenticating bool
	refreshCancel  context.CancelFunc
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithRefreshInterval overrides the proactive refresh tick (primarily
// for testing).
func WithRefreshInterval(interval time.Duration) ControllerOption {
	return func(c *Controller) {
		c.refreshInterval = interval
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController initializes a Controller with required dependencies.
func NewController(client identity.Client, provider *identity.Provider, tracker *expiry.Tracker, options ...ControllerOption) (*Controller, error) {
	if client == nil {
		return nil, errors.New("[NewController] client is required")
	}
	if provider == nil {
		return nil, errors.New("[NewController] provider is required")
	}
	if tracker == nil {
		return nil, errors.New("[NewController] tracker is required")
	}

	c := &Controller{
		client:          client,
		provider:        provider,
		tracker:         tracker,
		logger:          zerolog.Nop(),
		refreshInterval: DefaultRefreshInterval,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Login initiates interactive sign-in. Identity-provider errors are
// propagated unchanged and leave local state untouched; the identity
// layer owns redirect state.
func (c *Controller) Login(ctx context.Context) error {
	c.mu.Lock()
	c.authenticating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.authenticating = false
		c.mu.Unlock()
	}()

	if _, err := c.client.SignInInteractive(ctx); err != nil {
		return err
	}

	c.reducePrincipal()

	// Prime the tracker so the countdown works before the first API
	// call. A failure here is not a failed login; the next
	// GetAccessToken will acquire again.
	if _, err := c.provider.Acquire(ctx, false); err != nil {
		c.logger.Warn().Err(err).Msg("initial credential acquisition failed after sign-in")
	}

	c.startRefreshLoop()
	return nil
}

// Logout clears the tracked expiry, then cancels the refresh loop,
// then runs interactive sign-out. The ordering matters: a crash
// mid-sign-out must never leave a proactive-refresh timer running
// against a cleared session.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.tracker.Clear(); err != nil {
		return errors.Wrap(err, "[Controller.Logout] tracker.Clear")
	}
	c.stopRefreshLoop()

	account := c.currentAccount()
	if account != nil {
		if err := c.client.SignOutInteractive(ctx, *account); err != nil {
			c.reducePrincipal()
			return errors.Wrap(err, "[Controller.Logout] SignOutInteractive")
		}
	}
	c.reducePrincipal()
	return nil
}

// GetAccessToken is the single choke point every outbound call passes
// through. With no principal it fails immediately with ErrNoPrincipal
// and no network round-trip. A Redirecting acquisition surfaces as
// ErrInteractionRequired: the call is terminal, do not retry.
func (c *Controller) GetAccessToken(ctx context.Context, forceRefresh bool) (string, error) {
	c.mu.Lock()
	hasPrincipal := c.principal != nil
	c.mu.Unlock()
	if !hasPrincipal {
		return "", dberrors.ErrNoPrincipal
	}

	acquisition, err := c.provider.Acquire(ctx, forceRefresh)
	if err != nil {
		return "", err
	}
	if acquisition.Outcome == identity.OutcomeRedirecting {
		return "", dberrors.ErrInteractionRequired
	}
	return acquisition.Credential.Token, nil
}

// HandleAuthError recovers from a terminal authorization failure:
// clear the tracked expiry and start a fresh interactive login. Called
// by the request pipeline after a retried request still fails
// authorization.
func (c *Controller) HandleAuthError(ctx context.Context) error {
	if err := c.tracker.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("clearing expiry during auth error handling failed")
	}
	return c.Login(ctx)
}

// Close tears the session context down, cancelling the refresh loop.
// Idempotent.
func (c *Controller) Close() {
	c.stopRefreshLoop()
}

// IsAuthenticated reports whether a principal is present.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal != nil
}

// Authenticating reports whether an interactive flow is in progress.
func (c *Controller) Authenticating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticating
}

// Principal returns the current principal, or nil when signed out.
func (c *Controller) Principal() *Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == nil {
		return nil
	}
	principal := *c.principal
	return &principal
}

// State returns the persisted session state.
func (c *Controller) State() State {
	if c.IsAuthenticated() {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// reducePrincipal recomputes the principal from the client's account
// list. Session state is derived here and nowhere else.
func (c *Controller) reducePrincipal() {
	principal := principalFromAccounts(c.client.Accounts())
	c.mu.Lock()
	c.principal = principal
	c.mu.Unlock()
}

func (c *Controller) currentAccount() *identity.Account {
	accounts := c.client.Accounts()
	if len(accounts) == 0 {
		return nil
	}
	return &accounts[0]
}

// startRefreshLoop starts the proactive refresh goroutine. At most one
// loop exists per session lifetime; starting while one is already
// running is a no-op.
func (c *Controller) startRefreshLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.refreshCancel = cancel
	go c.refreshLoop(ctx)
}

// stopRefreshLoop cancels the refresh loop. Cancelling an absent or
// already-cancelled loop is a no-op.
func (c *Controller) stopRefreshLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshCancel == nil {
		return
	}
	c.refreshCancel()
	c.refreshCancel = nil
}

func (c *Controller) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.observeExternalLogout() {
				return
			}
			if !c.tracker.ShouldProactivelyRefresh() {
				continue
			}
			// A single failed refresh never terminates the loop; the
			// next tick tries again.
			if _, err := c.GetAccessToken(ctx, true); err != nil {
				c.logger.Warn().Err(err).Msg("proactive refresh failed")
			}
		}
	}
}

// observeExternalLogout detects a logout performed by another tab:
// this process still holds a principal but the shared store has been
// cleared. The observer follows the logout locally without initiating
// its own interactive sign-out.
func (c *Controller) observeExternalLogout() bool {
	c.mu.Lock()
	hasPrincipal := c.principal != nil
	c.mu.Unlock()

	if !hasPrincipal || c.tracker.HasRecord() {
		return false
	}

	c.logger.Info().Msg("session cleared by another tab, following logout")
	c.mu.Lock()
	c.principal = nil
	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshCancel = nil
	}
	c.mu.Unlock()
	return true
}
