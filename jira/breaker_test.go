package jira

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// failingTracker fails every call until fixed.
type failingTracker struct {
	calls int
	fixed bool
}

func (f *failingTracker) err() error {
	f.calls++
	if f.fixed {
		return nil
	}
	return errors.Wrap(core.ErrUpstreamDown, "boom")
}

func (f *failingTracker) ListVersions(context.Context, string) ([]core.VersionRecord, error) {
	return nil, f.err()
}

func (f *failingTracker) IssueCount(context.Context, string, string, []string) (int, error) {
	return 0, f.err()
}

func (f *failingTracker) CreateVersion(context.Context, string, string, time.Time) (core.VersionRecord, error) {
	return core.VersionRecord{}, f.err()
}

func (f *failingTracker) RenameVersion(context.Context, string, string) error { return f.err() }
func (f *failingTracker) SetArchived(context.Context, string, string) error   { return f.err() }
func (f *failingTracker) DeleteVersion(context.Context, string, string) error { return f.err() }

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	inner := &failingTracker{}
	b := NewBreakerTracker(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := b.ListVersions(ctx, "ABC"); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}
	if !b.Tripped() {
		t.Fatal("breaker should be open after five failures")
	}

	// Open breaker fails fast without touching the tracker.
	before := inner.calls
	_, err := b.ListVersions(ctx, "ABC")
	if !errors.Is(err, core.ErrUpstreamDown) {
		t.Fatalf("err = %v, want ErrUpstreamDown", err)
	}
	if inner.calls != before {
		t.Errorf("tracker was called %d extra times while open", inner.calls-before)
	}
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	inner := &failingTracker{fixed: true}
	b := NewBreakerTracker(inner)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := b.RenameVersion(ctx, "100", "new"); err != nil {
			t.Fatalf("RenameVersion: %v", err)
		}
	}
	if b.Tripped() {
		t.Fatal("breaker should stay closed on success")
	}
}
