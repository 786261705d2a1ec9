// Package expiry tracks the expiry instant of the session's bearer
// credential. Only the expiry timestamp is persisted, never the token
// itself; the backing store is shared by every dashboard process of
// the same user, which makes it double as the cross-tab logout channel.
package expiry

import (
	"time"

	dberrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// RefreshThreshold is the remaining lifetime below which a credential
// should be proactively refreshed.
const RefreshThreshold = 5 * time.Minute

// Tracker records and queries the persisted credential expiry. It
// performs no acquisition itself, so it is safe to call from any
// number of concurrent contexts; writes are last-write-wins.
type Tracker struct {
	store   Store
	logger  zerolog.Logger
	nowFunc func() time.Time
}

// TrackerOption defines a function type to modify the Tracker instance.
type TrackerOption func(*Tracker)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.nowFunc = now
	}
}

// WithLogger sets the logger used for decode failures.
func WithLogger(logger zerolog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(store Store, options ...TrackerOption) *Tracker {
	t := &Tracker{
		store:   store,
		logger:  zerolog.Nop(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Record parses the expiry claim embedded in rawToken and persists it,
// overwriting any previous value. A token that cannot be decoded
// leaves the prior state untouched and returns ErrCredentialDecode;
// the caller treats this as "unknown remaining time", not a fatal
// condition.
func (t *Tracker) Record(rawToken string) error {
	expiresAt, err := parseExpiry(rawToken)
	if err != nil {
		t.logger.Warn().Err(err).Msg("credential expiry could not be decoded, keeping prior state")
		return errors.Wrap(dberrors.ErrCredentialDecode, err.Error())
	}
	if err := t.store.Save(expiresAt.UnixMilli()); err != nil {
		return errors.Wrap(err, "[Tracker.Record] store.Save")
	}
	return nil
}

// Clear removes the persisted expiry unconditionally. Idempotent.
func (t *Tracker) Clear() error {
	if err := t.store.Clear(); err != nil {
		return errors.Wrap(err, "[Tracker.Clear] store.Clear")
	}
	return nil
}

// Remaining returns max(0, expiry - now), or 0 if nothing is persisted.
func (t *Tracker) Remaining() time.Duration {
	ms, ok := t.load()
	if !ok {
		return 0
	}
	remaining := time.UnixMilli(ms).Sub(t.nowFunc())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired reports whether the credential is fully expired. True when
// nothing has ever been recorded.
func (t *Tracker) IsExpired() bool {
	return t.Remaining() == 0
}

// ShouldProactivelyRefresh is true iff 0 < remaining < RefreshThreshold.
// A fully expired token is handled by IsExpired, not proactive refresh,
// so both the zero point and the threshold boundary return false.
func (t *Tracker) ShouldProactivelyRefresh() bool {
	remaining := t.Remaining()
	return remaining > 0 && remaining < RefreshThreshold
}

// HasRecord reports whether an expiry is currently persisted,
// regardless of whether it has passed. The session controller uses it
// to observe a logout performed by another process: a principal with
// no record means the store was cleared externally.
func (t *Tracker) HasRecord() bool {
	_, ok := t.load()
	return ok
}

func (t *Tracker) load() (int64, bool) {
	ms, ok, err := t.store.Load()
	if err != nil {
		// Queries represent store trouble as absence, never a failure.
		t.logger.Warn().Err(err).Msg("expiry store read failed")
		return 0, false
	}
	return ms, ok
}

// parseExpiry extracts the exp claim without verifying the signature.
// The dashboard trusts the provider-issued token; verification is the
// API's job, not the client's.
func parseExpiry(rawToken string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, errors.Wrap(err, "ParseUnverified")
	}
	expiresAt, err := token.Claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return expiresAt.Time, nil
}
