// Package policy holds the pure lifecycle decision functions. Every decision
// is recomputed from current facts on each run; no state machine persists
// between invocations.
package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// ArchivedPrefix tags descriptions of archived versions. ShouldArchive never
// fires twice for the same version because of it.
const ArchivedPrefix = "[ARCHIVED]"

// State classifies a version for one evaluation pass.
type State string

const (
	// StateForeign marks versions whose names match no catalog template.
	// They are never touched by automation.
	StateForeign State = "foreign"
	// StateActive marks versions that need no action.
	StateActive State = "active"
	// StateStale marks unreleased, issueless versions outside the retention
	// window; they are deleted.
	StateStale State = "stale"
	// StateReleasedEligible marks released versions old enough to archive.
	StateReleasedEligible State = "released-eligible"
	// StateMalformedName marks versions whose stored name differs from the
	// canonical rendering of their parsed fields; they are renamed.
	StateMalformedName State = "malformed-name"
)

// CleanupOptions widen the Stale criteria beyond the defaults.
type CleanupOptions struct {
	IncludeReleased bool // delete released versions too
	IncludeFuture   bool // delete versions dated after now
}

// Decision is the outcome of a single lifecycle check.
type Decision struct {
	Act    bool
	Reason string
}

func no(reason string) Decision  { return Decision{Act: false, Reason: reason} }
func yes(reason string) Decision { return Decision{Act: true, Reason: reason} }

// ShouldDelete reports whether a version is Stale: no associated issues,
// unreleased (unless IncludeReleased), dated outside the retention window
// and not in the future (unless IncludeFuture). Versions whose format
// carries no date fields are never retention-managed.
func ShouldDelete(rec core.VersionRecord, parsed *core.ParsedVersion, issueCount int, pol core.ProjectPolicy, now time.Time, opts CleanupOptions) Decision {
	if parsed == nil {
		return no("foreign name")
	}
	if issueCount > 0 {
		return no(fmt.Sprintf("%d issues assigned", issueCount))
	}
	if rec.Released && !opts.IncludeReleased {
		return no("released")
	}
	date, ok := parsed.Date()
	if !ok {
		return no("no date in format")
	}
	if date.After(now) && !opts.IncludeFuture {
		return no("dated in the future")
	}
	age := int(now.Sub(date).Hours() / 24)
	if age <= pol.RetentionDays {
		return no(fmt.Sprintf("inside %d-day retention window", pol.RetentionDays))
	}
	return yes(fmt.Sprintf("no issues, %d days old", age))
}

// ShouldArchive reports whether a released version is old enough to archive
// under the project's archive settings. Descriptions already tagged with the
// archive prefix are skipped.
func ShouldArchive(rec core.VersionRecord, parsed *core.ParsedVersion, pol core.ProjectPolicy, now time.Time) Decision {
	if parsed == nil {
		return no("foreign name")
	}
	if !rec.Released {
		return no("not released")
	}
	if !pol.Archive.Enabled {
		return no("archiving disabled")
	}
	if strings.HasPrefix(rec.Description, ArchivedPrefix) {
		return no("already archived")
	}
	date, ok := parsed.Date()
	if !ok {
		if rec.ReleaseDate.IsZero() {
			return no("no date to age by")
		}
		date = rec.ReleaseDate
	}
	months := monthsBetween(date, now)
	if months < pol.Archive.Months {
		return no(fmt.Sprintf("only %d months old", months))
	}
	return yes(fmt.Sprintf("released %d months ago", months))
}

// ShouldRename reports whether a version's stored name drifted from the
// canonical rendering of its parsed fields. exists reports whether a name is
// already taken in the project's current version snapshot; a collision
// suppresses the rename.
func ShouldRename(rec core.VersionRecord, canonical string, exists func(name string) bool) Decision {
	if canonical == rec.Name {
		return no("already canonical")
	}
	if exists(canonical) {
		return no(fmt.Sprintf("canonical name %q already taken", canonical))
	}
	return yes(fmt.Sprintf("normalize to %q", canonical))
}

// Classify evaluates the per-version state machine in a fixed order:
// rename checks run before delete/archive so normalization is never lost to
// a deletion pass happening on the same run.
func Classify(rec core.VersionRecord, parsed *core.ParsedVersion, canonical string, issueCount int, pol core.ProjectPolicy, now time.Time, opts CleanupOptions, exists func(string) bool) State {
	if parsed == nil {
		return StateForeign
	}
	if d := ShouldRename(rec, canonical, exists); d.Act {
		return StateMalformedName
	}
	if d := ShouldArchive(rec, parsed, pol, now); d.Act {
		return StateReleasedEligible
	}
	if d := ShouldDelete(rec, parsed, issueCount, pol, now, opts); d.Act {
		return StateStale
	}
	return StateActive
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
