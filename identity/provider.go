package identity

import (
	"context"

	dberrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/chetanran/devsecops-sec-dashboard/session/expiry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Outcome tags the result of an acquisition attempt. Redirecting is a
// terminal state for the call: an interactive flow has been started
// and callers must stop processing rather than resolve or reject.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeRedirecting
)

// Acquisition is the tagged result of Provider.Acquire.
type Acquisition struct {
	Outcome    Outcome
	Credential *Credential // set only when Outcome == OutcomeSucceeded
}

// Provider acquires bearer credentials for the active account and
// keeps the expiry tracker in sync with every successful acquisition.
type Provider struct {
	client  Client
	tracker *expiry.Tracker
	scopes  []string
	logger  zerolog.Logger
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

// WithLogger sets the provider's logger.
func WithLogger(logger zerolog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider for the given client and scopes.
func NewProvider(client Client, tracker *expiry.Tracker, scopes []string, options ...ProviderOption) (*Provider, error) {
	if client == nil {
		return nil, errors.New("[NewProvider] client is required")
	}
	if tracker == nil {
		return nil, errors.New("[NewProvider] tracker is required")
	}

	p := &Provider{
		client:  client,
		tracker: tracker,
		scopes:  scopes,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Acquire obtains a bearer credential for the first known account.
//
// An expired token is never silently reused: when forceRefresh is
// false but the tracker reports the credential expired, the call
// escalates to a forced refresh internally. The effective refresh flag
// also turns on when the remaining lifetime is inside the proactive
// refresh window.
//
// Failure modes:
//   - ErrNoPrincipal: no account exists, the caller must initiate an
//     interactive login. No network round-trip is made.
//   - OutcomeRedirecting: silent acquisition is structurally impossible;
//     an interactive re-authentication has been started as a side
//     effect and this call is terminal.
//   - ErrTransientAcquisition: network or provider-side blip,
//     retryable at the caller's discretion.
func (p *Provider) Acquire(ctx context.Context, forceRefresh bool) (*Acquisition, error) {
	accounts := p.client.Accounts()
	if len(accounts) == 0 {
		return nil, dberrors.ErrNoPrincipal
	}
	account := accounts[0]

	if !forceRefresh && p.tracker.IsExpired() {
		forceRefresh = true
	}
	effectiveRefresh := forceRefresh || p.tracker.ShouldProactivelyRefresh()

	credential, err := p.client.AcquireSilently(ctx, account, p.scopes, effectiveRefresh)
	if err == nil {
		// A sign-out may have happened while the acquisition was in
		// flight; recording the expiry now would resurrect the cleared
		// session record.
		if len(p.client.Accounts()) == 0 {
			return nil, dberrors.ErrNoPrincipal
		}
		// A credential whose expiry cannot be decoded is still usable;
		// the tracker keeps its prior state and logs the failure.
		if recordErr := p.tracker.Record(credential.Token); recordErr != nil {
			p.logger.Warn().Err(recordErr).Msg("acquired credential with undecodable expiry")
		}
		return &Acquisition{Outcome: OutcomeSucceeded, Credential: credential}, nil
	}

	if errors.Is(err, dberrors.ErrInteractionRequired) {
		p.logger.Info().Str("account", account.Username).Msg("silent acquisition impossible, starting interactive re-authentication")
		if interactiveErr := p.client.AcquireInteractive(ctx, account, p.scopes); interactiveErr != nil {
			return nil, errors.Wrap(dberrors.ErrTransientAcquisition, interactiveErr.Error())
		}
		return &Acquisition{Outcome: OutcomeRedirecting}, nil
	}

	return nil, errors.Wrap(dberrors.ErrTransientAcquisition, err.Error())
}
