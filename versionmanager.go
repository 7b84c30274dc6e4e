// Package versionmanager automates the lifecycle of release versions in a
// Jira-style issue tracker: creating date-based and semantic versions,
// deleting stale ones, archiving old released ones, and renaming versions
// whose stored names drifted from their canonical form.
//
// Basic usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	catalog, _ := cfg.Catalog()
//	tracker := jira.NewClient(cfg.BaseURL, cfg.APIToken)
//	mgr := versionmanager.New(tracker, catalog, cfg)
//
//	result, err := mgr.Cleanup(ctx, "ABC", versionmanager.CleanupExtras{})
//
// The engine is sequential: one project at a time, one version-list snapshot
// per pass, never two tracker calls in flight at once.
package versionmanager

import (
	"github.com/jackalski/jira-version-manager/internal/calendar"
	"github.com/jackalski/jira-version-manager/internal/core"
	"github.com/jackalski/jira-version-manager/internal/format"
	"github.com/jackalski/jira-version-manager/internal/policy"
	"github.com/jackalski/jira-version-manager/internal/semver"
)

// Re-export engine types so callers work with a single package.
type (
	// VersionRecord is a version as stored in the tracker.
	VersionRecord = core.VersionRecord

	// ParsedVersion is the structured form of a matched version name.
	ParsedVersion = core.ParsedVersion

	// SemanticTuple is a parsed semantic version under relaxed ordering.
	SemanticTuple = core.SemanticTuple

	// ProjectPolicy is a fully resolved per-project lifecycle policy.
	ProjectPolicy = core.ProjectPolicy

	// Tracker is the issue-tracker collaborator contract.
	Tracker = core.Tracker

	// Template is a named version name pattern.
	Template = format.Template

	// Catalog holds the format templates and per-project selections.
	Catalog = format.Catalog

	// CleanupOptions widen the stale criteria of a cleanup pass.
	CleanupOptions = policy.CleanupOptions

	// Window bounds calendar generation.
	Window = calendar.Window

	// Bump identifies which semantic component the next version increments.
	Bump = semver.Bump
)

// Re-export errors.
var (
	ErrConfiguration    = core.ErrConfiguration
	ErrUnknownFormatKey = core.ErrUnknownFormatKey
	ErrMissingField     = core.ErrMissingField
	ErrNotFound         = core.ErrNotFound
	ErrAlreadyExists    = core.ErrAlreadyExists
)

// Error types.
type (
	APIError              = core.APIError
	MissingFieldError     = core.MissingFieldError
	UnknownFormatKeyError = core.UnknownFormatKeyError
)

// Calendar windows.
const (
	CurrentMonth = calendar.CurrentMonth
	NextMonth    = calendar.NextMonth
	BothMonths   = calendar.BothMonths
)

// Semantic bumps.
const (
	BumpMajor = semver.BumpMajor
	BumpMinor = semver.BumpMinor
	BumpPatch = semver.BumpPatch
)

// NewCatalog validates and compiles format templates. projectFormats maps a
// project key (or "default") to the format keys applying to it.
func NewCatalog(templates []Template, projectFormats map[string][]string) (*Catalog, error) {
	return format.NewCatalog(templates, projectFormats)
}

// BuiltinTemplates returns the formats every catalog understands out of the
// box, in declaration order.
func BuiltinTemplates() []Template {
	return format.BuiltinTemplates()
}

// ParseSemantic parses a bare semantic version name. Returns nil when the
// name does not fit the grammar.
func ParseSemantic(name string) *SemanticTuple {
	return format.ParseSemantic(name)
}

// LatestSemantic reduces version names to the maximum semantic tuple under
// the relaxed ordering. scope optionally restricts and strips a name prefix.
func LatestSemantic(names []string, scope string) (SemanticTuple, bool) {
	return semver.Latest(names, scope)
}
