// Package clientfakes provides a scriptable identity.Client for tests.
package clientfakes

import (
	"context"
	"sync"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/identity"
)

var _ identity.Client = (*FakeClient)(nil)

// FakeClient is an in-memory identity client. Tests script it by
// setting the error fields and inspect the recorded call counts.
type FakeClient struct {
	lock sync.Mutex

	accounts []identity.Account

	SignInAccount *identity.Account
	SignInErr     error
	SignOutErr    error

	SilentCredential *identity.Credential
	SilentErr        error
	InteractiveErr   error

	SignInCalls          int
	SignOutCalls         int
	SilentCalls          int
	InteractiveCalls     int
	LastForceRefresh     bool
	LastRequestedScopes  []string
	SilentCredentialFunc func(forceRefresh bool) (*identity.Credential, error)
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// SetAccounts replaces the account list.
func (c *FakeClient) SetAccounts(accounts ...identity.Account) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.accounts = accounts
}

func (c *FakeClient) SignInInteractive(ctx context.Context) (*identity.Account, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.SignInCalls++
	if c.SignInErr != nil {
		return nil, c.SignInErr
	}
	account := c.SignInAccount
	if account == nil {
		account = &identity.Account{ID: "fake-account", Username: "fake@example.com", Name: "Fake User"}
	}
	c.accounts = []identity.Account{*account}
	return account, nil
}

func (c *FakeClient) SignOutInteractive(ctx context.Context, account identity.Account) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.SignOutCalls++
	if c.SignOutErr != nil {
		return c.SignOutErr
	}
	c.accounts = nil
	return nil
}

func (c *FakeClient) AcquireSilently(ctx context.Context, account identity.Account, scopes []string, forceRefresh bool) (*identity.Credential, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.SilentCalls++
	c.LastForceRefresh = forceRefresh
	c.LastRequestedScopes = scopes
	if c.SilentCredentialFunc != nil {
		return c.SilentCredentialFunc(forceRefresh)
	}
	if c.SilentErr != nil {
		return nil, c.SilentErr
	}
	if c.SilentCredential != nil {
		return c.SilentCredential, nil
	}
	return &identity.Credential{Token: "fake-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (c *FakeClient) AcquireInteractive(ctx context.Context, account identity.Account, scopes []string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.InteractiveCalls++
	return c.InteractiveErr
}

func (c *FakeClient) Accounts() []identity.Account {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]identity.Account(nil), c.accounts...)
}

// SetSilentErr scripts the next silent acquisitions to fail with err.
func (c *FakeClient) SetSilentErr(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.SilentErr = err
}

// SilentCallCount returns how many silent acquisitions were attempted.
func (c *FakeClient) SilentCallCount() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.SilentCalls
}

// LastForce reports the forceRefresh flag of the last silent call.
func (c *FakeClient) LastForce() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.LastForceRefresh
}

// SignInCallCount returns how many interactive sign-ins ran.
func (c *FakeClient) SignInCallCount() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.SignInCalls
}

// SignOutCallCount returns how many interactive sign-outs ran.
func (c *FakeClient) SignOutCallCount() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.SignOutCalls
}
