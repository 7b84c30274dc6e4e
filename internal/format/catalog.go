// Package format implements the bidirectional version name format system:
// a catalog of named templates, a synthesizer that renders templates into
// concrete names, and a parser that turns names back into structured fields.
package format

import (
	"regexp"

	"github.com/cockroachdb/errors"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// Placeholder names accepted in template patterns.
const (
	PlaceholderProject    = "PROJECT"
	PlaceholderWeek       = "WEEK"
	PlaceholderYear       = "YEAR"
	PlaceholderMonth      = "MONTH"
	PlaceholderDay        = "DAY"
	PlaceholderMajor      = "MAJOR"
	PlaceholderMinor      = "MINOR"
	PlaceholderPatch      = "PATCH"
	PlaceholderPreRelease = "PRE_RELEASE"
	PlaceholderBuild      = "BUILD"
	PlaceholderMetadata   = "METADATA"
)

// StandardKey is the catalog's required anchor format. Resolution falls back
// to it when neither the project nor the "default" policy selects formats.
const StandardKey = "standard"

// DefaultKey is the policy map entry consulted when a project has no
// explicit entry of its own.
const DefaultKey = "default"

// Template is a named version name pattern. Patterns contain literal text
// and placeholders like {PROJECT} or {WEEK:02d}; a printf-style hint after
// the colon is accepted and ignored, padding is fixed per placeholder.
type Template struct {
	Key     string
	Pattern string
}

// BuiltinTemplates returns the formats every catalog understands out of the
// box. Declaration order matters: parsing is first-match-wins.
func BuiltinTemplates() []Template {
	return []Template{
		{Key: StandardKey, Pattern: "{PROJECT}.W{WEEK:02d}.{YEAR}.{MONTH:02d}.{DAY:02d}"},
		{Key: "intake", Pattern: "{PROJECT}.INTAKE.W{WEEK:02d}.{YEAR}.{MONTH:02d}.{DAY:02d}"},
		{Key: "semantic", Pattern: "{MAJOR}.{MINOR}.{PATCH}{PRE_RELEASE}{BUILD}"},
	}
}

// placeholderToken matches one placeholder with an optional format hint.
var placeholderToken = regexp.MustCompile(`\{([A-Z_]+)(?::[^{}]*)?\}`)

var knownPlaceholders = map[string]bool{
	PlaceholderProject:    true,
	PlaceholderWeek:       true,
	PlaceholderYear:       true,
	PlaceholderMonth:      true,
	PlaceholderDay:        true,
	PlaceholderMajor:      true,
	PlaceholderMinor:      true,
	PlaceholderPatch:      true,
	PlaceholderPreRelease: true,
	PlaceholderBuild:      true,
	PlaceholderMetadata:   true,
}

// Catalog holds the format templates in declaration order together with the
// per-project format selections. It is read-only after construction and safe
// to reuse across sequential operations. Matchers are compiled once, here.
type Catalog struct {
	templates      []Template
	byKey          map[string]Template
	matchers       []*matcher // parallel to templates
	projectFormats map[string][]string
}

// NewCatalog validates and compiles the given templates. projectFormats maps
// a project key (or "default") to the format keys that apply to it. The
// "standard" anchor template must be present; patterns may only use the known
// placeholder vocabulary.
func NewCatalog(templates []Template, projectFormats map[string][]string) (*Catalog, error) {
	c := &Catalog{
		byKey:          make(map[string]Template, len(templates)),
		projectFormats: projectFormats,
	}
	for _, t := range templates {
		if _, dup := c.byKey[t.Key]; dup {
			return nil, errors.Wrapf(core.ErrConfiguration, "duplicate format key %q", t.Key)
		}
		for _, m := range placeholderToken.FindAllStringSubmatch(t.Pattern, -1) {
			if !knownPlaceholders[m[1]] {
				return nil, errors.Wrapf(core.ErrConfiguration, "format %q: unknown placeholder %s", t.Key, m[1])
			}
		}
		matcher, err := compile(t)
		if err != nil {
			return nil, errors.Wrapf(core.ErrConfiguration, "format %q: %v", t.Key, err)
		}
		c.templates = append(c.templates, t)
		c.matchers = append(c.matchers, matcher)
		c.byKey[t.Key] = t
	}
	if _, ok := c.byKey[StandardKey]; !ok {
		return nil, errors.Wrapf(core.ErrConfiguration, "catalog is missing the %q anchor format", StandardKey)
	}
	for scope, keys := range projectFormats {
		for _, key := range keys {
			if _, ok := c.byKey[key]; !ok {
				return nil, errors.Wrapf(core.ErrConfiguration, "project %q selects unknown format %q", scope, key)
			}
		}
	}
	return c, nil
}

// Lookup returns the template with the given key.
func (c *Catalog) Lookup(key string) (Template, error) {
	t, ok := c.byKey[key]
	if !ok {
		return Template{}, &core.UnknownFormatKeyError{Key: key}
	}
	return t, nil
}

// Templates returns the catalog's templates in declaration order.
func (c *Catalog) Templates() []Template {
	return c.templates
}

// ResolveFormats returns the templates that apply to a project. Explicit keys
// take precedence and fail on unknown keys; otherwise the project's selection
// is used, then the "default" selection, then the built-in "standard" anchor.
func (c *Catalog) ResolveFormats(projectKey string, explicitKeys []string) ([]Template, error) {
	keys := explicitKeys
	if len(keys) == 0 {
		keys = c.projectFormats[projectKey]
	}
	if len(keys) == 0 {
		keys = c.projectFormats[DefaultKey]
	}
	if len(keys) == 0 {
		keys = []string{StandardKey}
	}

	out := make([]Template, 0, len(keys))
	for _, key := range keys {
		t, err := c.Lookup(key)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
