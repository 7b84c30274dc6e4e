package policy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jackalski/jira-version-manager/internal/core"
)

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func parsedFor(date time.Time) *core.ParsedVersion {
	_, week := date.ISOWeek()
	return &core.ParsedVersion{
		FormatKey: "standard",
		Project:   "ABC",
		Week:      week,
		Year:      date.Year(),
		Month:     int(date.Month()),
		Day:       date.Day(),
	}
}

func TestShouldDeleteRetentionWindow(t *testing.T) {
	pol := core.ProjectPolicy{RetentionDays: 7}
	tenDaysAgo := parsedFor(now.AddDate(0, 0, -10))

	d := ShouldDelete(core.VersionRecord{}, tenDaysAgo, 0, pol, now, CleanupOptions{})
	assert.True(t, d.Act, d.Reason)

	// One assigned issue protects the version.
	d = ShouldDelete(core.VersionRecord{}, tenDaysAgo, 1, pol, now, CleanupOptions{})
	assert.False(t, d.Act, d.Reason)

	// Inside the window nothing happens.
	threeDaysAgo := parsedFor(now.AddDate(0, 0, -3))
	d = ShouldDelete(core.VersionRecord{}, threeDaysAgo, 0, pol, now, CleanupOptions{})
	assert.False(t, d.Act, d.Reason)
}

func TestShouldDeleteReleasedGuard(t *testing.T) {
	pol := core.ProjectPolicy{RetentionDays: 7}
	old := parsedFor(now.AddDate(0, 0, -30))
	released := core.VersionRecord{Released: true}

	d := ShouldDelete(released, old, 0, pol, now, CleanupOptions{})
	assert.False(t, d.Act, d.Reason)

	d = ShouldDelete(released, old, 0, pol, now, CleanupOptions{IncludeReleased: true})
	assert.True(t, d.Act, d.Reason)
}

func TestShouldDeleteFutureGuard(t *testing.T) {
	pol := core.ProjectPolicy{RetentionDays: 0}
	future := parsedFor(now.AddDate(0, 1, 0))

	d := ShouldDelete(core.VersionRecord{}, future, 0, pol, now, CleanupOptions{})
	assert.False(t, d.Act, d.Reason)

	d = ShouldDelete(core.VersionRecord{}, future, 0, pol, now, CleanupOptions{IncludeFuture: true})
	// Future date with IncludeFuture: age is negative, still inside the
	// retention window, so no delete. Only past-dated versions age out.
	assert.False(t, d.Act, d.Reason)
}

func TestShouldDeleteForeignAndDateless(t *testing.T) {
	pol := core.ProjectPolicy{RetentionDays: 7}

	d := ShouldDelete(core.VersionRecord{}, nil, 0, pol, now, CleanupOptions{})
	assert.False(t, d.Act, d.Reason)

	semanticOnly := &core.ParsedVersion{FormatKey: "semantic", Semantic: &core.SemanticTuple{Major: 1}}
	d = ShouldDelete(core.VersionRecord{}, semanticOnly, 0, pol, now, CleanupOptions{})
	assert.False(t, d.Act, d.Reason)
}

func TestShouldArchive(t *testing.T) {
	pol := core.ProjectPolicy{Archive: core.ArchiveSettings{Months: 6, Enabled: true}}
	oldEnough := parsedFor(now.AddDate(0, -7, 0))
	released := core.VersionRecord{Released: true}

	d := ShouldArchive(released, oldEnough, pol, now)
	assert.True(t, d.Act, d.Reason)

	// Too young.
	young := parsedFor(now.AddDate(0, -2, 0))
	d = ShouldArchive(released, young, pol, now)
	assert.False(t, d.Act, d.Reason)

	// Unreleased versions are never archived.
	d = ShouldArchive(core.VersionRecord{}, oldEnough, pol, now)
	assert.False(t, d.Act, d.Reason)

	// Already tagged descriptions are skipped.
	tagged := core.VersionRecord{Released: true, Description: ArchivedPrefix + " old notes"}
	d = ShouldArchive(tagged, oldEnough, pol, now)
	assert.False(t, d.Act, d.Reason)
}

func TestShouldArchiveDisabledAlwaysFalse(t *testing.T) {
	pol := core.ProjectPolicy{Archive: core.ArchiveSettings{Months: 0, Enabled: false}}
	ancient := parsedFor(now.AddDate(-5, 0, 0))
	released := core.VersionRecord{Released: true}

	d := ShouldArchive(released, ancient, pol, now)
	assert.False(t, d.Act, d.Reason)
}

func TestShouldArchiveFallsBackToReleaseDate(t *testing.T) {
	pol := core.ProjectPolicy{Archive: core.ArchiveSettings{Months: 6, Enabled: true}}
	semanticOnly := &core.ParsedVersion{FormatKey: "semantic", Semantic: &core.SemanticTuple{Major: 1}}

	rec := core.VersionRecord{Released: true, ReleaseDate: now.AddDate(0, -8, 0)}
	d := ShouldArchive(rec, semanticOnly, pol, now)
	assert.True(t, d.Act, d.Reason)

	// Without any date nothing ages.
	d = ShouldArchive(core.VersionRecord{Released: true}, semanticOnly, pol, now)
	assert.False(t, d.Act, d.Reason)
}

func TestShouldRename(t *testing.T) {
	rec := core.VersionRecord{Name: "ABC.W10.2024.3.4"}
	taken := map[string]bool{"ABC.W10.2024.3.4": true}
	exists := func(name string) bool { return taken[name] }

	d := ShouldRename(rec, "ABC.W10.2024.03.04", exists)
	assert.True(t, d.Act, d.Reason)

	// Collision suppresses the rename.
	taken["ABC.W10.2024.03.04"] = true
	d = ShouldRename(rec, "ABC.W10.2024.03.04", exists)
	assert.False(t, d.Act, d.Reason)

	// Canonical names stay put.
	d = ShouldRename(core.VersionRecord{Name: "ABC.W10.2024.03.04"}, "ABC.W10.2024.03.04", exists)
	assert.False(t, d.Act, d.Reason)
}

func TestClassify(t *testing.T) {
	pol := core.ProjectPolicy{
		RetentionDays: 7,
		Archive:       core.ArchiveSettings{Months: 6, Enabled: true},
	}
	noCollision := func(string) bool { return false }

	t.Run("foreign", func(t *testing.T) {
		got := Classify(core.VersionRecord{Name: "manual"}, nil, "", 0, pol, now, CleanupOptions{}, noCollision)
		assert.Equal(t, StateForeign, got)
	})

	t.Run("malformed name", func(t *testing.T) {
		rec := core.VersionRecord{Name: "ABC.W10.2024.3.4"}
		parsed := parsedFor(now.AddDate(0, 0, -1))
		got := Classify(rec, parsed, "ABC.W10.2024.03.04", 0, pol, now, CleanupOptions{}, noCollision)
		assert.Equal(t, StateMalformedName, got)
	})

	t.Run("stale", func(t *testing.T) {
		old := now.AddDate(0, 0, -10)
		parsed := parsedFor(old)
		canonical := "ABC.W" + canonicalWeek(old) + old.Format(".2006.01.02")
		rec := core.VersionRecord{Name: canonical}
		got := Classify(rec, parsed, canonical, 0, pol, now, CleanupOptions{}, noCollision)
		assert.Equal(t, StateStale, got)
	})

	t.Run("released eligible", func(t *testing.T) {
		old := now.AddDate(0, -7, 0)
		parsed := parsedFor(old)
		canonical := "ABC.W" + canonicalWeek(old) + old.Format(".2006.01.02")
		rec := core.VersionRecord{Name: canonical, Released: true}
		got := Classify(rec, parsed, canonical, 0, pol, now, CleanupOptions{}, noCollision)
		assert.Equal(t, StateReleasedEligible, got)
	})

	t.Run("active", func(t *testing.T) {
		fresh := now.AddDate(0, 0, -1)
		parsed := parsedFor(fresh)
		canonical := "ABC.W" + canonicalWeek(fresh) + fresh.Format(".2006.01.02")
		rec := core.VersionRecord{Name: canonical}
		got := Classify(rec, parsed, canonical, 3, pol, now, CleanupOptions{}, noCollision)
		assert.Equal(t, StateActive, got)
	})
}

func canonicalWeek(d time.Time) string {
	_, week := d.ISOWeek()
	return fmt.Sprintf("%02d", week)
}

func TestMonthsBetween(t *testing.T) {
	a := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		b    time.Time
		want int
	}{
		{time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), 6},
		{time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC), 11},
		{time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, monthsBetween(a, tt.b), "until %s", tt.b)
	}
}
