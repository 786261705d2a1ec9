package expiry_test

import (
	"testing"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/chetanran/devsecops-sec-dashboard/session/expiry"
	"github.com/chetanran/devsecops-sec-dashboard/session/expiry/storefakes"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testToken mints a signed token whose exp claim is expiresAt. The
// tracker never verifies signatures, so the signing key is irrelevant.
func testToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func newTestTracker(t *testing.T) (*expiry.Tracker, *storefakes.FakeStore) {
	t.Helper()
	store := storefakes.NewFakeStore()
	tracker := expiry.NewTracker(store, expiry.WithNowFunc(func() time.Time { return testNow }))
	return tracker, store
}

func TestRecordThenRemaining(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.NoError(t, tracker.Record(testToken(t, testNow.Add(30*time.Minute))))
	require.Equal(t, 30*time.Minute, tracker.Remaining())
	require.False(t, tracker.IsExpired())
}

func TestRemainingWithNothingPersisted(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.Equal(t, time.Duration(0), tracker.Remaining())
	require.True(t, tracker.IsExpired())
	require.False(t, tracker.HasRecord())
}

func TestIsExpiredAtAndAfterExpiry(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.NoError(t, tracker.Record(testToken(t, testNow)))
	require.True(t, tracker.IsExpired())

	require.NoError(t, tracker.Record(testToken(t, testNow.Add(-time.Hour))))
	require.True(t, tracker.IsExpired())

	require.NoError(t, tracker.Record(testToken(t, testNow.Add(time.Second))))
	require.False(t, tracker.IsExpired())
}

func TestShouldProactivelyRefreshBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		want      bool
	}{
		{"well inside threshold", 4 * time.Minute, true},
		{"one millisecond left", time.Millisecond, true},
		{"exactly at threshold", expiry.RefreshThreshold, false},
		{"above threshold", time.Hour, false},
		{"already expired", -time.Minute, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tracker, store := newTestTracker(t)
			require.NoError(t, store.Save(testNow.Add(tc.remaining).UnixMilli()))
			require.Equal(t, tc.want, tracker.ShouldProactivelyRefresh())
		})
	}
}

func TestShouldProactivelyRefreshWhenNothingPersisted(t *testing.T) {
	tracker, _ := newTestTracker(t)
	require.False(t, tracker.ShouldProactivelyRefresh())
}

func TestRecordMalformedTokenKeepsPriorState(t *testing.T) {
	tracker, _ := newTestTracker(t)
	require.NoError(t, tracker.Record(testToken(t, testNow.Add(10*time.Minute))))

	err := tracker.Record("not-a-jwt")
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrCredentialDecode)

	// Prior expiry survives the failed decode.
	require.Equal(t, 10*time.Minute, tracker.Remaining())
}

func TestRecordTokenWithoutExpClaim(t *testing.T) {
	tracker, _ := newTestTracker(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	err = tracker.Record(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrCredentialDecode)
	require.False(t, tracker.HasRecord())
}

func TestClearIsIdempotent(t *testing.T) {
	tracker, _ := newTestTracker(t)
	require.NoError(t, tracker.Record(testToken(t, testNow.Add(time.Hour))))

	require.NoError(t, tracker.Clear())
	require.NoError(t, tracker.Clear())
	require.True(t, tracker.IsExpired())
	require.False(t, tracker.HasRecord())
}

func TestLastWriteWins(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.NoError(t, tracker.Record(testToken(t, testNow.Add(10*time.Minute))))
	require.NoError(t, tracker.Record(testToken(t, testNow.Add(55*time.Minute))))
	require.Equal(t, 55*time.Minute, tracker.Remaining())
}

func TestStoreReadFailureTreatedAsAbsent(t *testing.T) {
	tracker, store := newTestTracker(t)
	require.NoError(t, tracker.Record(testToken(t, testNow.Add(time.Hour))))

	store.FailLoads(errors.ErrInternal)
	require.Equal(t, time.Duration(0), tracker.Remaining())
	require.True(t, tracker.IsExpired())
	require.False(t, tracker.HasRecord())
}
