package versionmanager

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackalski/jira-version-manager/internal/core"
	"github.com/jackalski/jira-version-manager/internal/format"
	"github.com/jackalski/jira-version-manager/internal/policy"
	"github.com/jackalski/jira-version-manager/internal/semver"
)

// fakeTracker is an in-memory core.Tracker with per-version issue counts and
// injectable IssueCount failures.
type fakeTracker struct {
	versions    map[string][]core.VersionRecord // by project
	issueCounts map[string]int                  // by version name
	issueErrs   map[string]error                // by version name
	moved       map[string]string               // deleted id -> moveTo id
	nextID      int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		versions:    make(map[string][]core.VersionRecord),
		issueCounts: make(map[string]int),
		issueErrs:   make(map[string]error),
		moved:       make(map[string]string),
		nextID:      1000,
	}
}

func (f *fakeTracker) add(project string, rec core.VersionRecord) core.VersionRecord {
	if rec.ID == "" {
		f.nextID++
		rec.ID = strconv.Itoa(f.nextID)
	}
	f.versions[project] = append(f.versions[project], rec)
	return rec
}

func (f *fakeTracker) names(project string) []string {
	var out []string
	for _, rec := range f.versions[project] {
		out = append(out, rec.Name)
	}
	return out
}

func (f *fakeTracker) ListVersions(_ context.Context, project string) ([]core.VersionRecord, error) {
	out := make([]core.VersionRecord, len(f.versions[project]))
	copy(out, f.versions[project])
	return out, nil
}

func (f *fakeTracker) IssueCount(_ context.Context, _, versionName string, _ []string) (int, error) {
	if err := f.issueErrs[versionName]; err != nil {
		return 0, err
	}
	return f.issueCounts[versionName], nil
}

func (f *fakeTracker) CreateVersion(_ context.Context, project, name string, releaseDate time.Time) (core.VersionRecord, error) {
	for _, rec := range f.versions[project] {
		if rec.Name == name {
			return core.VersionRecord{}, errors.Wrapf(core.ErrAlreadyExists, "version %q", name)
		}
	}
	return f.add(project, core.VersionRecord{Name: name, ReleaseDate: releaseDate}), nil
}

func (f *fakeTracker) RenameVersion(_ context.Context, id, newName string) error {
	for project, recs := range f.versions {
		for i := range recs {
			if recs[i].ID == id {
				f.versions[project][i].Name = newName
				return nil
			}
		}
	}
	return errors.Wrapf(core.ErrNotFound, "version %s", id)
}

func (f *fakeTracker) SetArchived(_ context.Context, id, description string) error {
	for project, recs := range f.versions {
		for i := range recs {
			if recs[i].ID == id {
				f.versions[project][i].Archived = true
				f.versions[project][i].Description = description
				return nil
			}
		}
	}
	return errors.Wrapf(core.ErrNotFound, "version %s", id)
}

func (f *fakeTracker) DeleteVersion(_ context.Context, id, moveIssuesTo string) error {
	for project, recs := range f.versions {
		for i := range recs {
			if recs[i].ID == id {
				f.versions[project] = append(recs[:i], recs[i+1:]...)
				if moveIssuesTo != "" {
					f.moved[id] = moveIssuesTo
				}
				return nil
			}
		}
	}
	return errors.Wrapf(core.ErrNotFound, "version %s", id)
}

var _ core.Tracker = (*fakeTracker)(nil)

// now is pinned to a Friday so calendar output is deterministic.
var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func testPolicy(pol core.ProjectPolicy) PolicySource {
	return PolicyFunc(func(string) core.ProjectPolicy { return pol })
}

func newTestManager(t *testing.T, tracker core.Tracker, pol core.ProjectPolicy, opts ...ManagerOption) *Manager {
	t.Helper()
	catalog, err := format.NewCatalog(format.BuiltinTemplates(), nil)
	require.NoError(t, err)
	opts = append([]ManagerOption{WithClock(func() time.Time { return testNow })}, opts...)
	return New(tracker, catalog, testPolicy(pol), opts...)
}

func TestCreateForDate(t *testing.T) {
	tracker := newFakeTracker()
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W10.2024.03.04"})
	m := newTestManager(t, tracker, core.ProjectPolicy{})
	ctx := context.Background()

	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	res, err := m.CreateForDate(ctx, "ABC", date, []string{"standard", "intake"})
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "ABC.W10.2024.03.04", res.Skipped[0].Name)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, "ABC.INTAKE.W10.2024.03.04", res.Succeeded[0].Name)
	assert.Empty(t, res.Failed)

	assert.ElementsMatch(t,
		[]string{"ABC.W10.2024.03.04", "ABC.INTAKE.W10.2024.03.04"},
		tracker.names("ABC"))
}

func TestCreateForCalendar(t *testing.T) {
	tracker := newFakeTracker()
	pol := core.ProjectPolicy{
		Release: core.ReleaseRule{Weekdays: []time.Weekday{time.Friday}},
	}
	m := newTestManager(t, tracker, pol)

	res, err := m.CreateForCalendar(context.Background(), "ABC", CurrentMonth)
	require.NoError(t, err)

	// Fridays from March 15 to month end: 15, 22, 29.
	assert.Len(t, res.Succeeded, 3)
	assert.Contains(t, tracker.names("ABC"), "ABC.W11.2024.03.15")
	assert.Contains(t, tracker.names("ABC"), "ABC.W12.2024.03.22")
	assert.Contains(t, tracker.names("ABC"), "ABC.W13.2024.03.29")
}

func TestCreateNextSemantic(t *testing.T) {
	ctx := context.Background()

	t.Run("bump", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.add("ABC", core.VersionRecord{Name: "1.2.3"})
		tracker.add("ABC", core.VersionRecord{Name: "1.4.0+b2"})
		tracker.add("ABC", core.VersionRecord{Name: "garbage name"})
		m := newTestManager(t, tracker, core.ProjectPolicy{})

		rec, err := m.CreateNextSemantic(ctx, "ABC", semver.BumpMinor, "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "1.5.0", rec.Name)
	})

	t.Run("channel keeps the tuple", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.add("ABC", core.VersionRecord{Name: "1.4.0"})
		m := newTestManager(t, tracker, core.ProjectPolicy{})

		rec, err := m.CreateNextSemantic(ctx, "ABC", semver.BumpPatch, "rc", "", "")
		require.NoError(t, err)
		assert.Equal(t, "1.4.0-rc.1", rec.Name)
	})

	t.Run("existing next name is detected before create", func(t *testing.T) {
		// alpha.2 and alpha.3 share the triple, so resolution can land on
		// alpha.2 and advance onto the already-taken alpha.3.
		tracker := newFakeTracker()
		tracker.add("ABC", core.VersionRecord{Name: "1.2.3-alpha.2"})
		tracker.add("ABC", core.VersionRecord{Name: "1.2.3-alpha.3"})
		m := newTestManager(t, tracker, core.ProjectPolicy{})

		_, err := m.CreateNextSemantic(ctx, "ABC", semver.BumpPatch, "alpha", "", "")
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Len(t, tracker.names("ABC"), 2, "nothing was created")
	})

	t.Run("scope prefixes and filters", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.add("ABC", core.VersionRecord{Name: "app-1.2.0"})
		tracker.add("ABC", core.VersionRecord{Name: "2.0.0"})
		m := newTestManager(t, tracker, core.ProjectPolicy{})

		rec, err := m.CreateNextSemantic(ctx, "ABC", semver.BumpPatch, "", "", "app-")
		require.NoError(t, err)
		assert.Equal(t, "app-1.2.1", rec.Name)
	})
}

func TestCleanup(t *testing.T) {
	tracker := newFakeTracker()
	stale := tracker.add("ABC", core.VersionRecord{Name: "ABC.W09.2024.02.26"})
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W11.2024.03.11"})
	busy := tracker.add("ABC", core.VersionRecord{Name: "ABC.W08.2024.02.19"})
	tracker.add("ABC", core.VersionRecord{Name: "manual build"})
	tracker.issueCounts[busy.Name] = 3

	pol := core.ProjectPolicy{RetentionDays: 7}
	m := newTestManager(t, tracker, pol)

	res, err := m.Cleanup(context.Background(), "ABC", CleanupExtras{})
	require.NoError(t, err)

	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, stale.Name, res.Succeeded[0].Name)
	assert.Len(t, res.Skipped, 2, "recent and issue-bearing versions are skipped")
	assert.Empty(t, res.Failed)

	// The foreign name is excluded from the pass entirely and survives.
	assert.Contains(t, tracker.names("ABC"), "manual build")
	assert.NotContains(t, tracker.names("ABC"), stale.Name)
}

func TestCleanupMovesIssues(t *testing.T) {
	tracker := newFakeTracker()
	stale := tracker.add("ABC", core.VersionRecord{Name: "ABC.W09.2024.02.26"})
	target := tracker.add("ABC", core.VersionRecord{Name: "ABC.W11.2024.03.11"})

	m := newTestManager(t, tracker, core.ProjectPolicy{RetentionDays: 7})

	_, err := m.Cleanup(context.Background(), "ABC", CleanupExtras{MoveIssuesTo: target.Name})
	require.NoError(t, err)
	assert.Equal(t, target.ID, tracker.moved[stale.ID])

	_, err = m.Cleanup(context.Background(), "ABC", CleanupExtras{MoveIssuesTo: "no such version"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupIsolatesPerVersionFailures(t *testing.T) {
	tracker := newFakeTracker()
	broken := tracker.add("ABC", core.VersionRecord{Name: "ABC.W08.2024.02.19"})
	stale := tracker.add("ABC", core.VersionRecord{Name: "ABC.W09.2024.02.26"})
	tracker.issueErrs[broken.Name] = errors.Wrap(core.ErrUpstreamDown, "boom")

	m := newTestManager(t, tracker, core.ProjectPolicy{RetentionDays: 7})

	res, err := m.Cleanup(context.Background(), "ABC", CleanupExtras{})
	require.NoError(t, err, "single-version failures never abort the pass")

	require.Len(t, res.Failed, 1)
	assert.Equal(t, broken.Name, res.Failed[0].Name)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, stale.Name, res.Succeeded[0].Name)
	assert.Contains(t, tracker.names("ABC"), broken.Name)
}

func TestArchive(t *testing.T) {
	tracker := newFakeTracker()
	old := tracker.add("ABC", core.VersionRecord{
		Name:     "ABC.W30.2023.07.24",
		Released: true, Description: "summer release",
	})
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W11.2024.03.11", Released: true})

	pol := core.ProjectPolicy{Archive: core.ArchiveSettings{Months: 6, Enabled: true}}
	m := newTestManager(t, tracker, pol)

	res, err := m.Archive(context.Background(), "ABC")
	require.NoError(t, err)

	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, old.Name, res.Succeeded[0].Name)
	assert.Len(t, res.Skipped, 1)

	got := tracker.versions["ABC"][0]
	assert.True(t, got.Archived)
	assert.Equal(t, policy.ArchivedPrefix+" summer release", got.Description)

	// A second pass skips the already tagged version.
	res, err = m.Archive(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Empty(t, res.Succeeded)
}

func TestScanAndFix(t *testing.T) {
	tracker := newFakeTracker()
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W10.2024.3.4"})
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W11.2024.03.11"})
	m := newTestManager(t, tracker, core.ProjectPolicy{})
	ctx := context.Background()

	res, err := m.ScanAndFix(ctx, "ABC")
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 1)
	assert.Contains(t, tracker.names("ABC"), "ABC.W10.2024.03.04")

	// The pass is idempotent: everything is canonical now.
	res, err = m.ScanAndFix(ctx, "ABC")
	require.NoError(t, err)
	assert.Empty(t, res.Succeeded)
	assert.Len(t, res.Skipped, 2)
}

func TestScanAndFixCollisionGuard(t *testing.T) {
	tracker := newFakeTracker()
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W10.2024.3.4"})
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W10.2024.03.04"})
	m := newTestManager(t, tracker, core.ProjectPolicy{})

	res, err := m.ScanAndFix(context.Background(), "ABC")
	require.NoError(t, err)

	// The canonical name is taken, so the drifted version stays put.
	assert.Empty(t, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Contains(t, tracker.names("ABC"), "ABC.W10.2024.3.4")
}

func TestDryRunNeverMutates(t *testing.T) {
	tracker := newFakeTracker()
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W09.2024.02.26"})
	tracker.add("ABC", core.VersionRecord{Name: "ABC.W10.2024.3.4"})

	pol := core.ProjectPolicy{RetentionDays: 7, Archive: core.ArchiveSettings{Months: 6, Enabled: true}}
	m := newTestManager(t, tracker, pol, WithDryRun(true))
	ctx := context.Background()

	before := tracker.names("ABC")

	res, err := m.CreateForDate(ctx, "ABC", testNow, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Succeeded)

	res, err = m.Cleanup(ctx, "ABC", CleanupExtras{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Succeeded)

	_, err = m.ScanAndFix(ctx, "ABC")
	require.NoError(t, err)

	assert.Equal(t, before, tracker.names("ABC"))
}

func TestDeleteByName(t *testing.T) {
	tracker := newFakeTracker()
	doomed := tracker.add("ABC", core.VersionRecord{Name: "ABC.W09.2024.02.26"})
	target := tracker.add("ABC", core.VersionRecord{Name: "ABC.W11.2024.03.11"})
	m := newTestManager(t, tracker, core.ProjectPolicy{})
	ctx := context.Background()

	err := m.DeleteByName(ctx, "ABC", doomed.Name, target.Name)
	require.NoError(t, err)
	assert.NotContains(t, tracker.names("ABC"), doomed.Name)
	assert.Equal(t, target.ID, tracker.moved[doomed.ID])

	err = m.DeleteByName(ctx, "ABC", "no such version", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunAllIsolatesProjectFailures(t *testing.T) {
	results := RunAll(context.Background(), []string{"BAD", "GOOD"},
		func(_ context.Context, project string) (Result, error) {
			res := Result{Project: project}
			if project == "BAD" {
				return res, errors.New("snapshot failed")
			}
			res.succeed("GOOD.W11.2024.03.11", "created")
			return res, nil
		})

	require.Len(t, results, 2)
	assert.Len(t, results["BAD"].Failed, 1)
	assert.Len(t, results["GOOD"].Succeeded, 1)
}
