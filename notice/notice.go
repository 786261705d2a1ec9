// Package notice renders a countdown when the session credential
// approaches expiry and offers a manual extend action. It polls the
// expiry tracker only; the session controller is reached exclusively
// through the extend action.
package notice

import (
	"context"
	"sync"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/session/expiry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the notice re-reads the tracker.
const DefaultPollInterval = time.Second

// ExtendFunc refreshes the session credential. It is the session
// controller's GetAccessToken with forceRefresh pinned to true.
type ExtendFunc func(ctx context.Context) error

// RenderFunc is the rendering collaborator. visible is false when
// there is nothing to show (no session, fully expired, or ample
// lifetime left); remaining is meaningful only while visible.
type RenderFunc func(remaining time.Duration, visible bool)

// Notice polls the tracker once per interval and renders a countdown
// while 0 < remaining < the refresh threshold.
type Notice struct {
	tracker  *expiry.Tracker
	extend   ExtendFunc
	render   RenderFunc
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NoticeOption defines a function type to modify the Notice instance.
type NoticeOption func(*Notice)

// WithPollInterval overrides the poll interval (primarily for testing).
func WithPollInterval(interval time.Duration) NoticeOption {
	return func(n *Notice) {
		n.interval = interval
	}
}

// WithLogger sets the notice's logger.
func WithLogger(logger zerolog.Logger) NoticeOption {
	return func(n *Notice) {
		n.logger = logger
	}
}

// New creates a Notice.
func New(tracker *expiry.Tracker, extend ExtendFunc, render RenderFunc, options ...NoticeOption) (*Notice, error) {
	if tracker == nil {
		return nil, errors.New("[notice.New] tracker is required")
	}
	if extend == nil {
		return nil, errors.New("[notice.New] extend is required")
	}
	if render == nil {
		return nil, errors.New("[notice.New] render is required")
	}

	n := &Notice{
		tracker:  tracker,
		extend:   extend,
		render:   render,
		interval: DefaultPollInterval,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(n)
	}
	return n, nil
}

// Start begins polling. Starting an already-started notice is a no-op.
func (n *Notice) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	go n.poll(ctx)
}

// Stop halts polling. Idempotent.
func (n *Notice) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel == nil {
		return
	}
	n.cancel()
	n.cancel = nil
}

// Extend force-refreshes the credential. It mutates nothing beyond
// what the refresh itself does; success or failure is reported to the
// caller for display.
func (n *Notice) Extend(ctx context.Context) error {
	if err := n.extend(ctx); err != nil {
		n.logger.Warn().Err(err).Msg("manual session extend failed")
		return errors.Wrap(err, "[Notice.Extend]")
	}
	return nil
}

func (n *Notice) poll(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := n.tracker.Remaining()
			visible := remaining > 0 && remaining < expiry.RefreshThreshold
			n.render(remaining, visible)
		}
	}
}
