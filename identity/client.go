// Package identity wraps the identity-provider client behind a small
// interface and implements the credential acquisition policy on top of
// it: silent first, escalate to forced refresh when the tracked expiry
// demands it, interactive re-authentication only when silent
// acquisition is structurally impossible.
package identity

import (
	"context"
	"time"
)

// Account is one entry of the provider's account list.
type Account struct {
	ID       string // stable identifier (oid / sub)
	Username string // login name, usually an email
	Name     string // display name
}

// Credential is an opaque bearer token and the expiry instant
// extracted from it. The token itself is held in memory only; the
// persisted copy of the expiry lives in the expiry tracker.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Client is the surface of the identity-provider SDK the dashboard
// consumes. Everything else the SDK does (redirect mechanics, popup
// handling, account storage) stays behind this interface.
type Client interface {
	// SignInInteractive runs a user-visible sign-in flow and returns
	// the signed-in account.
	SignInInteractive(ctx context.Context) (*Account, error)

	// SignOutInteractive runs a user-visible sign-out for account.
	SignOutInteractive(ctx context.Context, account Account) error

	// AcquireSilently obtains a credential without user interaction.
	// Fails with ErrInteractionRequired in the chain when the provider
	// demands consent, MFA step-up, or re-login.
	AcquireSilently(ctx context.Context, account Account, scopes []string, forceRefresh bool) (*Credential, error)

	// AcquireInteractive starts an interactive re-authentication flow.
	// The surrounding call should be treated as terminal: the flow
	// replaces the user's navigation context and never hands a token
	// back to the caller.
	AcquireInteractive(ctx context.Context, account Account, scopes []string) error

	// Accounts returns the currently known accounts, empty when no
	// session exists.
	Accounts() []Account
}
