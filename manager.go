package versionmanager

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jackalski/jira-version-manager/internal/calendar"
	"github.com/jackalski/jira-version-manager/internal/core"
	"github.com/jackalski/jira-version-manager/internal/format"
	"github.com/jackalski/jira-version-manager/internal/policy"
	"github.com/jackalski/jira-version-manager/internal/semver"
)

// PolicySource resolves the lifecycle policy for a project. config.Config
// implements it; tests supply fixed policies.
type PolicySource interface {
	PolicyFor(projectKey string) core.ProjectPolicy
}

// PolicyFunc adapts a plain function to a PolicySource.
type PolicyFunc func(projectKey string) core.ProjectPolicy

func (f PolicyFunc) PolicyFor(projectKey string) core.ProjectPolicy {
	return f(projectKey)
}

// Manager runs lifecycle passes over a tracker. It holds only read-only
// state after construction and processes projects strictly sequentially.
type Manager struct {
	tracker  core.Tracker
	catalog  *format.Catalog
	policies PolicySource
	logger   *zap.Logger
	dryRun   bool
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithDryRun makes every pass compute and report decisions without calling
// any mutating tracker operation.
func WithDryRun(dry bool) ManagerOption {
	return func(m *Manager) {
		m.dryRun = dry
	}
}

// WithClock overrides the time source. Tests pin "now" with it.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager.
func New(tracker core.Tracker, catalog *format.Catalog, policies PolicySource, opts ...ManagerOption) *Manager {
	m := &Manager{
		tracker:  tracker,
		catalog:  catalog,
		policies: policies,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns the project's versions.
func (m *Manager) List(ctx context.Context, projectKey string) ([]core.VersionRecord, error) {
	return m.tracker.ListVersions(ctx, projectKey)
}

// CreateForDate renders every resolved format for the given date and creates
// the versions that do not exist yet. explicitKeys overrides the project's
// format selection when non-empty.
func (m *Manager) CreateForDate(ctx context.Context, projectKey string, date time.Time, explicitKeys []string) (Result, error) {
	templates, err := m.catalog.ResolveFormats(projectKey, explicitKeys)
	if err != nil {
		return Result{Project: projectKey}, err
	}
	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return Result{Project: projectKey}, err
	}
	return m.createForDates(ctx, projectKey, []time.Time{date}, templates, nameSet(snapshot)), nil
}

// CreateForCalendar creates versions for every release date the project's
// rule selects inside the window, across all resolved formats.
func (m *Manager) CreateForCalendar(ctx context.Context, projectKey string, window calendar.Window) (Result, error) {
	templates, err := m.catalog.ResolveFormats(projectKey, nil)
	if err != nil {
		return Result{Project: projectKey}, err
	}
	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return Result{Project: projectKey}, err
	}
	pol := m.policies.PolicyFor(projectKey)
	dates := calendar.Generate(pol.Release, window, m.now())
	return m.createForDates(ctx, projectKey, dates, templates, nameSet(snapshot)), nil
}

func (m *Manager) createForDates(ctx context.Context, projectKey string, dates []time.Time, templates []format.Template, existing map[string]bool) Result {
	res := Result{Project: projectKey}
	for _, date := range dates {
		fields := format.FieldsForDate(projectKey, date)
		for _, t := range templates {
			name, err := format.Render(t, fields)
			if err != nil {
				res.fail(t.Key, err)
				continue
			}
			if existing[name] {
				res.skip(name, "already exists")
				continue
			}
			if m.dryRun {
				res.succeed(name, "dry-run: would create")
				existing[name] = true
				continue
			}
			if _, err := m.tracker.CreateVersion(ctx, projectKey, name, date); err != nil {
				if errors.Is(err, core.ErrAlreadyExists) {
					res.skip(name, "already exists")
					existing[name] = true
					continue
				}
				res.fail(name, err)
				continue
			}
			m.logger.Info("created version", zap.String("project", projectKey), zap.String("name", name))
			res.succeed(name, "created")
			existing[name] = true
		}
	}
	return res
}

// CreateNextSemantic resolves the latest semantic version from the project's
// snapshot and creates the next one. With a bump the numeric tuple advances;
// with a channel ("alpha", "beta", "rc") the tuple stays and the pre-release
// label advances. formatKey selects the template; empty means "semantic".
// scope optionally restricts and strips a name prefix during resolution.
func (m *Manager) CreateNextSemantic(ctx context.Context, projectKey string, bump semver.Bump, channel, formatKey, scope string) (core.VersionRecord, error) {
	if formatKey == "" {
		formatKey = "semantic"
	}
	t, err := m.catalog.Lookup(formatKey)
	if err != nil {
		return core.VersionRecord{}, err
	}

	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return core.VersionRecord{}, err
	}
	names := make([]string, len(snapshot))
	for i, rec := range snapshot {
		names[i] = rec.Name
	}

	latest, _ := semver.Latest(names, scope)
	var next core.SemanticTuple
	switch {
	case channel != "":
		next = latest
		next.PreRelease = semver.NextPreRelease(latest, channel)
		next.Build = nil
		next.Metadata = ""
	default:
		next, err = semver.Next(latest, bump)
		if err != nil {
			return core.VersionRecord{}, err
		}
	}

	name, err := format.Render(t, format.Fields{Project: projectKey, Semantic: &next})
	if err != nil {
		return core.VersionRecord{}, err
	}
	name = scope + name

	// Pre-check against the snapshot already in hand. Pre-release labels do
	// not participate in ordering, so the resolved next name can collide with
	// an existing one (e.g. a channel advancing onto a label already taken).
	if nameSet(snapshot)[name] {
		return core.VersionRecord{}, errors.Wrapf(core.ErrAlreadyExists, "next version %q in %s", name, projectKey)
	}

	if m.dryRun {
		m.logger.Info("dry-run: would create semantic version",
			zap.String("project", projectKey), zap.String("name", name))
		return core.VersionRecord{Name: name}, nil
	}
	return m.tracker.CreateVersion(ctx, projectKey, name, time.Time{})
}

// Cleanup deletes the project's stale versions: parseable name, no
// associated issues, outside the retention window. MoveIssuesTo names a
// version that inherits issues of deleted versions (resolved against the
// same snapshot). Single-version failures are recorded, never raised.
func (m *Manager) Cleanup(ctx context.Context, projectKey string, opts CleanupExtras) (Result, error) {
	res := Result{Project: projectKey}
	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return res, err
	}
	pol := m.policies.PolicyFor(projectKey)
	now := m.now()

	moveTo := ""
	if opts.MoveIssuesTo != "" {
		for _, rec := range snapshot {
			if rec.Name == opts.MoveIssuesTo {
				moveTo = rec.ID
				break
			}
		}
		if moveTo == "" {
			return res, errors.Wrapf(core.ErrNotFound, "move-issues-to version %q", opts.MoveIssuesTo)
		}
	}

	for _, rec := range snapshot {
		parsed := m.catalog.Parse(rec.Name)
		if parsed == nil {
			m.logger.Debug("skipping foreign version", zap.String("name", rec.Name))
			continue
		}
		count, err := m.tracker.IssueCount(ctx, projectKey, rec.Name, pol.IssueTypes)
		if err != nil {
			res.fail(rec.Name, err)
			continue
		}
		d := policy.ShouldDelete(rec, parsed, count, pol, now, opts.CleanupOptions)
		if !d.Act {
			res.skip(rec.Name, d.Reason)
			continue
		}
		if m.dryRun {
			res.succeed(rec.Name, "dry-run: would delete ("+d.Reason+")")
			continue
		}
		if err := m.tracker.DeleteVersion(ctx, rec.ID, moveTo); err != nil {
			res.fail(rec.Name, err)
			continue
		}
		m.logger.Info("deleted version",
			zap.String("project", projectKey), zap.String("name", rec.Name), zap.String("reason", d.Reason))
		res.succeed(rec.Name, d.Reason)
	}
	return res, nil
}

// Archive tags old released versions. Eligibility is governed by the
// project's archive settings; versions already tagged are skipped.
func (m *Manager) Archive(ctx context.Context, projectKey string) (Result, error) {
	res := Result{Project: projectKey}
	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return res, err
	}
	pol := m.policies.PolicyFor(projectKey)
	now := m.now()

	for _, rec := range snapshot {
		parsed := m.catalog.Parse(rec.Name)
		if parsed == nil {
			m.logger.Debug("skipping foreign version", zap.String("name", rec.Name))
			continue
		}
		d := policy.ShouldArchive(rec, parsed, pol, now)
		if !d.Act {
			res.skip(rec.Name, d.Reason)
			continue
		}
		description := policy.ArchivedPrefix
		if rec.Description != "" {
			description += " " + rec.Description
		}
		if m.dryRun {
			res.succeed(rec.Name, "dry-run: would archive ("+d.Reason+")")
			continue
		}
		if err := m.tracker.SetArchived(ctx, rec.ID, description); err != nil {
			res.fail(rec.Name, err)
			continue
		}
		m.logger.Info("archived version",
			zap.String("project", projectKey), zap.String("name", rec.Name))
		res.succeed(rec.Name, d.Reason)
	}
	return res, nil
}

// ScanAndFix renames versions whose stored names differ from the canonical
// rendering of their parsed fields. Renames are collision-guarded against
// the snapshot, including names claimed earlier in the same pass, which
// makes a second pass a no-op.
func (m *Manager) ScanAndFix(ctx context.Context, projectKey string) (Result, error) {
	res := Result{Project: projectKey}
	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return res, err
	}
	taken := nameSet(snapshot)

	for _, rec := range snapshot {
		parsed := m.catalog.Parse(rec.Name)
		if parsed == nil {
			m.logger.Debug("skipping foreign version", zap.String("name", rec.Name))
			continue
		}
		canonical, err := m.catalog.CanonicalName(parsed)
		if err != nil {
			res.fail(rec.Name, err)
			continue
		}
		d := policy.ShouldRename(rec, canonical, func(name string) bool { return taken[name] })
		if !d.Act {
			res.skip(rec.Name, d.Reason)
			continue
		}
		if m.dryRun {
			res.succeed(rec.Name, "dry-run: would rename to "+canonical)
			taken[canonical] = true
			continue
		}
		if err := m.tracker.RenameVersion(ctx, rec.ID, canonical); err != nil {
			res.fail(rec.Name, err)
			continue
		}
		m.logger.Info("renamed version",
			zap.String("project", projectKey), zap.String("from", rec.Name), zap.String("to", canonical))
		res.succeed(rec.Name, d.Reason)
		delete(taken, rec.Name)
		taken[canonical] = true
	}
	return res, nil
}

// DeleteByName deletes a single version by name, optionally moving its
// issues to another version resolved against the same snapshot. This is the
// manual escape hatch next to the policy-driven Cleanup.
func (m *Manager) DeleteByName(ctx context.Context, projectKey, name, moveIssuesTo string) error {
	snapshot, err := m.tracker.ListVersions(ctx, projectKey)
	if err != nil {
		return err
	}
	var target, moveTarget *core.VersionRecord
	for i := range snapshot {
		switch snapshot[i].Name {
		case name:
			target = &snapshot[i]
		case moveIssuesTo:
			moveTarget = &snapshot[i]
		}
	}
	if target == nil {
		return errors.Wrapf(core.ErrNotFound, "version %q in %s", name, projectKey)
	}
	moveToID := ""
	if moveIssuesTo != "" {
		if moveTarget == nil {
			return errors.Wrapf(core.ErrNotFound, "move-issues-to version %q in %s", moveIssuesTo, projectKey)
		}
		moveToID = moveTarget.ID
	}
	if m.dryRun {
		m.logger.Info("dry-run: would delete version",
			zap.String("project", projectKey), zap.String("name", name))
		return nil
	}
	return m.tracker.DeleteVersion(ctx, target.ID, moveToID)
}

// CleanupExtras bundles the stale-criteria switches with the cleanup pass's
// issue relocation target.
type CleanupExtras struct {
	policy.CleanupOptions
	MoveIssuesTo string // version name receiving issues of deleted versions
}

// RunAll applies a per-project pass to every project, isolating failures:
// a project whose pass fails outright is reported in its Result and the
// remaining projects still run.
func RunAll(ctx context.Context, projects []string, pass func(ctx context.Context, projectKey string) (Result, error)) map[string]Result {
	results := make(map[string]Result, len(projects))
	for _, p := range projects {
		res, err := pass(ctx, p)
		if err != nil {
			res.fail(p, err)
		}
		results[p] = res
	}
	return results
}

func nameSet(records []core.VersionRecord) map[string]bool {
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.Name] = true
	}
	return set
}
