package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/identity"
	"github.com/chetanran/devsecops-sec-dashboard/identity/clientfakes"
	"github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/chetanran/devsecops-sec-dashboard/session/expiry"
	"github.com/chetanran/devsecops-sec-dashboard/session/expiry/storefakes"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	testNow    = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testScopes = []string{"api://client-1/.default"}
)

type providerFixture struct {
	client   *clientfakes.FakeClient
	store    *storefakes.FakeStore
	tracker  *expiry.Tracker
	provider *identity.Provider
}

func setupProviderFixture(t *testing.T) *providerFixture {
	t.Helper()

	client := clientfakes.NewFakeClient()
	store := storefakes.NewFakeStore()
	tracker := expiry.NewTracker(store, expiry.WithNowFunc(func() time.Time { return testNow }))

	provider, err := identity.NewProvider(client, tracker, testScopes)
	require.NoError(t, err)

	return &providerFixture{client: client, store: store, tracker: tracker, provider: provider}
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "exp": expiresAt.Unix()})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestAcquireWithoutAccountFailsFast(t *testing.T) {
	f := setupProviderFixture(t)

	_, err := f.provider.Acquire(context.Background(), false)
	require.ErrorIs(t, err, errors.ErrNoPrincipal)
	require.Zero(t, f.client.SilentCalls, "no network round-trip without a principal")
}

func TestAcquireSuccessRecordsExpiry(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1", Username: "a@example.com"})
	expiresAt := testNow.Add(time.Hour)
	f.client.SilentCredential = &identity.Credential{Token: signedToken(t, expiresAt), ExpiresAt: expiresAt}

	acquisition, err := f.provider.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, identity.OutcomeSucceeded, acquisition.Outcome)
	require.Equal(t, f.client.SilentCredential.Token, acquisition.Credential.Token)
	require.Equal(t, time.Hour, f.tracker.Remaining())
}

func TestAcquireEscalatesWhenExpired(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1"})
	// Nothing recorded yet, so the tracker reports expired.

	_, err := f.provider.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.True(t, f.client.LastForceRefresh, "an expired token is never silently reused")
}

func TestAcquireNoEscalationWhileFresh(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1"})
	require.NoError(t, f.store.Save(testNow.Add(time.Hour).UnixMilli()))

	_, err := f.provider.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.False(t, f.client.LastForceRefresh)
}

func TestAcquireRefreshesInsideProactiveWindow(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1"})
	require.NoError(t, f.store.Save(testNow.Add(4*time.Minute).UnixMilli()))

	_, err := f.provider.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.True(t, f.client.LastForceRefresh)
}

func TestAcquireInteractionRequiredRedirects(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1", Username: "a@example.com"})
	f.client.SilentErr = errors.ErrInteractionRequired

	acquisition, err := f.provider.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, identity.OutcomeRedirecting, acquisition.Outcome)
	require.Nil(t, acquisition.Credential)
	require.Equal(t, 1, f.client.InteractiveCalls)
}

func TestAcquireInteractiveStartFailureIsTransient(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1"})
	f.client.SilentErr = errors.ErrInteractionRequired
	f.client.InteractiveErr = errors.ErrInternal

	_, err := f.provider.Acquire(context.Background(), false)
	require.ErrorIs(t, err, errors.ErrTransientAcquisition)
}

func TestAcquireTransientFailurePropagates(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1"})
	f.client.SilentErr = errors.ErrInternal

	_, err := f.provider.Acquire(context.Background(), false)
	require.ErrorIs(t, err, errors.ErrTransientAcquisition)
	require.Zero(t, f.client.InteractiveCalls)
}

func TestAcquireWithUndecodableCredentialStillSucceeds(t *testing.T) {
	f := setupProviderFixture(t)
	f.client.SetAccounts(identity.Account{ID: "acct-1"})
	require.NoError(t, f.store.Save(testNow.Add(time.Hour).UnixMilli()))
	f.client.SilentCredential = &identity.Credential{Token: "opaque-but-not-a-jwt"}

	acquisition, err := f.provider.Acquire(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, identity.OutcomeSucceeded, acquisition.Outcome)
	// Prior expiry state survives the failed decode.
	require.Equal(t, time.Hour, f.tracker.Remaining())
}

// signOutRacingClient simulates a sign-out landing between the silent
// round-trip and its result being processed.
type signOutRacingClient struct {
	*clientfakes.FakeClient
	credential identity.Credential
}

func (c *signOutRacingClient) AcquireSilently(ctx context.Context, account identity.Account, scopes []string, forceRefresh bool) (*identity.Credential, error) {
	c.SetAccounts()
	credential := c.credential
	return &credential, nil
}

func TestAcquireAfterConcurrentSignOutDoesNotRecordExpiry(t *testing.T) {
	store := storefakes.NewFakeStore()
	tracker := expiry.NewTracker(store, expiry.WithNowFunc(func() time.Time { return testNow }))

	expiresAt := testNow.Add(time.Hour)
	client := &signOutRacingClient{
		FakeClient: clientfakes.NewFakeClient(),
		credential: identity.Credential{Token: signedToken(t, expiresAt), ExpiresAt: expiresAt},
	}
	client.SetAccounts(identity.Account{ID: "acct-1"})

	provider, err := identity.NewProvider(client, tracker, testScopes)
	require.NoError(t, err)

	_, err = provider.Acquire(context.Background(), false)
	require.ErrorIs(t, err, errors.ErrNoPrincipal)
	require.False(t, tracker.HasRecord(), "a signed-out session must stay cleared")
	require.True(t, tracker.IsExpired())
}
