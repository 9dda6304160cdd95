// Package reaper implements StaleReaper: a periodic sweep
// that fails chats stuck in INITIALIZING past their max age and
// expires pending secrets nobody ever confirmed.
package reaper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domain "yumsg/internal/domain"
)

// Default sweep parameters.
const (
	DefaultInterval      = 60 * time.Second
	DefaultChatMaxAge    = 30 * time.Minute
	DefaultPendingMaxAge = 5 * time.Minute
)

// StaleReaper periodically reaps stale chats and pending secrets.
type StaleReaper struct {
	store   domain.ChatStore
	pending domain.PendingSecretTable
	log     *logrus.Logger

	interval      time.Duration
	chatMaxAge    time.Duration
	pendingMaxAge time.Duration
}

// Option configures a StaleReaper away from its defaults.
type Option func(*StaleReaper)

// WithInterval overrides the sweep interval.
func WithInterval(d time.Duration) Option { return func(r *StaleReaper) { r.interval = d } }

// WithChatMaxAge overrides the INITIALIZING chat max age.
func WithChatMaxAge(d time.Duration) Option { return func(r *StaleReaper) { r.chatMaxAge = d } }

// WithPendingMaxAge overrides the pending-secret max age.
func WithPendingMaxAge(d time.Duration) Option { return func(r *StaleReaper) { r.pendingMaxAge = d } }

// New constructs a StaleReaper with the package defaults, as overridden
// by any opts.
func New(store domain.ChatStore, pending domain.PendingSecretTable, log *logrus.Logger, opts ...Option) *StaleReaper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &StaleReaper{
		store:         store,
		pending:       pending,
		log:           log,
		interval:      DefaultInterval,
		chatMaxAge:    DefaultChatMaxAge,
		pendingMaxAge: DefaultPendingMaxAge,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks, sweeping every interval until ctx is canceled.
func (r *StaleReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce()
		}
	}
}

// SweepOnce runs a single reap pass immediately; exported so callers
// (tests, a CLI "reap now" command) can trigger it outside the ticker.
func (r *StaleReaper) SweepOnce() {
	r.sweepOnce()
}

func (r *StaleReaper) sweepOnce() {
	reapedChats, err := r.store.ReapStale(int64(r.chatMaxAge.Seconds()))
	if err != nil {
		r.log.WithError(err).Error("stale chat reap failed")
	} else if reapedChats > 0 {
		r.log.WithField("count", reapedChats).Info("reaped stale chats")
	}

	expiredPending := r.pending.Expire(int64(r.pendingMaxAge.Seconds()))
	if expiredPending > 0 {
		r.log.WithField("count", expiredPending).Info("expired pending secrets")
	}
}
