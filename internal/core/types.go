// Package core provides shared types for the version lifecycle engine.
package core

import "time"

// VersionRecord is a release version as stored in the issue tracker.
// IDs are opaque identifiers owned by the tracker; the engine never
// invents them.
type VersionRecord struct {
	ID          string
	Name        string
	Released    bool
	Archived    bool
	Description string
	ReleaseDate time.Time // zero when the tracker has none
	StartDate   time.Time // zero when the tracker has none
}

// SemanticTuple is a parsed semantic-style version. Ordering is relaxed:
// (major, minor, patch) lexicographic with build number as a tiebreaker
// within an equal triple. PreRelease and Metadata are labels carried along
// with whichever tuple wins, never compared. This is deliberately not full
// semver precedence.
type SemanticTuple struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	PreRelease string  // without the leading "-"
	Build      *uint64 // nil when the name carries no "+bN" segment
	Metadata   string  // includes its leading separator, e.g. "+exp.sha"
}

// ParsedVersion is the structured form of a version name that matched one
// of the catalog's templates. It is derived on demand and never persisted.
type ParsedVersion struct {
	FormatKey string
	Project   string

	// Date components. Zero when the matched template does not carry the
	// corresponding placeholder.
	Week  int
	Year  int
	Month int
	Day   int

	// Semantic components, non-nil when the template carries any of
	// MAJOR/MINOR/PATCH/PRE_RELEASE/BUILD/METADATA.
	Semantic *SemanticTuple

	// EmergencySuffix holds a trailing underscore segment (e.g. "EMERGENCY")
	// that was stripped before matching. Empty when none was present.
	EmergencySuffix string
}

// Date returns the version's date when the matched template carried full
// year/month/day placeholders.
func (p *ParsedVersion) Date() (time.Time, bool) {
	if p.Year == 0 || p.Month == 0 || p.Day == 0 {
		return time.Time{}, false
	}
	return time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC), true
}

// ArchiveSettings controls archival of released versions for a project.
type ArchiveSettings struct {
	Months  int
	Enabled bool
}

// ReleaseRule selects the dates on which versions are created. Exactly one
// selection mode is active at a time; the first mode with a non-empty input
// wins, in the order Weekdays, MonthDays, YearDays, DayOffsets, Interval.
// With no input at all the rule falls back to Monday through Thursday.
type ReleaseRule struct {
	Weekdays       []time.Weekday
	MonthDays      []int // day-of-month numbers, 1-based
	YearDays       []int // day-of-year numbers, 1-based
	DayOffsets     []int // fixed offsets from the window start, 0-based
	Interval       int   // every Nth day from the window start
	Frequency      int   // keep every Nth selected date; <=1 keeps all
	NextWorkingDay bool  // advance weekend hits to the next Monday
}

// ProjectPolicy is the fully resolved lifecycle policy for one project.
// Every project resolves to a policy: an explicit entry, the "default"
// entry, or built-in defaults. Never nil at decision time.
type ProjectPolicy struct {
	FormatKeys    []string
	IssueTypes    []string
	Release       ReleaseRule
	Archive       ArchiveSettings
	RetentionDays int
}
