package jira

import (
	"context"
	"time"

	"github.com/cenk/backoff"
	"github.com/cockroachdb/errors"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// BreakerTracker wraps a Tracker with a circuit breaker so a dead Jira
// instance fails fast instead of burning a full retry cycle per version.
// The breaker trips after five consecutive failures and resets on an
// exponential schedule.
type BreakerTracker struct {
	tracker core.Tracker
	breaker *circuit.Breaker
}

// NewBreakerTracker wraps the given tracker.
func NewBreakerTracker(t core.Tracker) *BreakerTracker {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	return &BreakerTracker{
		tracker: t,
		breaker: circuit.NewBreakerWithOptions(opts),
	}
}

// Tripped reports whether the breaker is currently open.
func (b *BreakerTracker) Tripped() bool {
	return b.breaker.Tripped()
}

func (b *BreakerTracker) call(fn func() error) error {
	if !b.breaker.Ready() {
		return errors.Wrap(core.ErrUpstreamDown, "circuit breaker open")
	}
	return b.breaker.Call(fn, 0)
}

func (b *BreakerTracker) ListVersions(ctx context.Context, projectKey string) ([]core.VersionRecord, error) {
	var out []core.VersionRecord
	err := b.call(func() error {
		var callErr error
		out, callErr = b.tracker.ListVersions(ctx, projectKey)
		return callErr
	})
	return out, err
}

func (b *BreakerTracker) IssueCount(ctx context.Context, projectKey, versionName string, issueTypes []string) (int, error) {
	var n int
	err := b.call(func() error {
		var callErr error
		n, callErr = b.tracker.IssueCount(ctx, projectKey, versionName, issueTypes)
		return callErr
	})
	return n, err
}

func (b *BreakerTracker) CreateVersion(ctx context.Context, projectKey, name string, releaseDate time.Time) (core.VersionRecord, error) {
	var rec core.VersionRecord
	err := b.call(func() error {
		var callErr error
		rec, callErr = b.tracker.CreateVersion(ctx, projectKey, name, releaseDate)
		return callErr
	})
	return rec, err
}

func (b *BreakerTracker) RenameVersion(ctx context.Context, id, newName string) error {
	return b.call(func() error {
		return b.tracker.RenameVersion(ctx, id, newName)
	})
}

func (b *BreakerTracker) SetArchived(ctx context.Context, id, description string) error {
	return b.call(func() error {
		return b.tracker.SetArchived(ctx, id, description)
	})
}

func (b *BreakerTracker) DeleteVersion(ctx context.Context, id, moveIssuesTo string) error {
	return b.call(func() error {
		return b.tracker.DeleteVersion(ctx, id, moveIssuesTo)
	})
}

var _ core.Tracker = (*BreakerTracker)(nil)
