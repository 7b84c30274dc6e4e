package format

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// Capture rules per placeholder. PROJECT is one or more non-separator
// characters; WEEK/MONTH/DAY accept one or two digits so both padded and
// unpadded historical names parse; YEAR is exactly four digits. PRE_RELEASE,
// BUILD and METADATA are optional in the name even when the pattern carries
// them, matching how Render omits them.
var captureRules = map[string]string{
	PlaceholderProject:    `([A-Za-z0-9]+)`,
	PlaceholderWeek:       `(\d{1,2})`,
	PlaceholderYear:       `(\d{4})`,
	PlaceholderMonth:      `(\d{1,2})`,
	PlaceholderDay:        `(\d{1,2})`,
	PlaceholderMajor:      `(\d+)`,
	PlaceholderMinor:      `(\d+)`,
	PlaceholderPatch:      `(\d+)`,
	PlaceholderPreRelease: `(-[0-9A-Za-z]+(?:\.[0-9A-Za-z]+)*)?`,
	PlaceholderBuild:      `(\+b\d+)?`,
	PlaceholderMetadata:   `([+-][0-9A-Za-z.\-]+)?`,
}

type matcher struct {
	re     *regexp.Regexp
	groups []string // capture index -> placeholder name
}

// compile deterministically translates a template into an anchored regular
// expression, quoting literal text and substituting each placeholder with
// its capture rule.
func compile(t Template) (*matcher, error) {
	var sb strings.Builder
	sb.WriteString("^")
	var groups []string

	rest := t.Pattern
	for {
		loc := placeholderToken.FindStringSubmatchIndex(rest)
		if loc == nil {
			sb.WriteString(regexp.QuoteMeta(rest))
			break
		}
		sb.WriteString(regexp.QuoteMeta(rest[:loc[0]]))
		name := rest[loc[2]:loc[3]]
		sb.WriteString(captureRules[name])
		groups = append(groups, name)
		rest = rest[loc[1]:]
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, err
	}
	return &matcher{re: re, groups: groups}, nil
}

// Parse extracts structured fields from a version name. A trailing
// underscore segment of capital letters (e.g. "_EMERGENCY") is stripped and
// recorded before matching. Templates are tried in catalog declaration
// order and the first full match wins; that ordering is a deliberate,
// stable policy. Returns nil when no template matches: such names are
// foreign/manual versions and excluded from lifecycle automation.
func (c *Catalog) Parse(name string) *core.ParsedVersion {
	base, suffix := splitEmergencySuffix(name)
	if p := c.parseExact(base); p != nil {
		p.EmergencySuffix = suffix
		return p
	}
	if suffix != "" {
		// The suffix may have been a literal part of an underscore-bearing
		// pattern rather than an emergency marker.
		return c.parseExact(name)
	}
	return nil
}

func (c *Catalog) parseExact(name string) *core.ParsedVersion {
	for i, m := range c.matchers {
		sub := m.re.FindStringSubmatch(name)
		if sub == nil {
			continue
		}
		p, ok := fieldsFromMatch(c.templates[i].Key, m.groups, sub[1:])
		if !ok {
			continue
		}
		return p
	}
	return nil
}

func fieldsFromMatch(key string, groups, captures []string) (*core.ParsedVersion, bool) {
	p := &core.ParsedVersion{FormatKey: key}
	var sem core.SemanticTuple
	hasSem := false

	for i, name := range groups {
		val := captures[i]
		if val == "" {
			continue
		}
		switch name {
		case PlaceholderProject:
			p.Project = val
		case PlaceholderWeek, PlaceholderYear, PlaceholderMonth, PlaceholderDay:
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, false
			}
			switch name {
			case PlaceholderWeek:
				p.Week = n
			case PlaceholderYear:
				p.Year = n
			case PlaceholderMonth:
				p.Month = n
			case PlaceholderDay:
				p.Day = n
			}
		case PlaceholderMajor, PlaceholderMinor, PlaceholderPatch:
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, false
			}
			hasSem = true
			switch name {
			case PlaceholderMajor:
				sem.Major = n
			case PlaceholderMinor:
				sem.Minor = n
			case PlaceholderPatch:
				sem.Patch = n
			}
		case PlaceholderPreRelease:
			hasSem = true
			sem.PreRelease = strings.TrimPrefix(val, "-")
		case PlaceholderBuild:
			n, err := strconv.ParseUint(strings.TrimPrefix(val, "+b"), 10, 64)
			if err != nil {
				return nil, false
			}
			hasSem = true
			sem.Build = &n
		case PlaceholderMetadata:
			hasSem = true
			sem.Metadata = val
		}
	}
	// The \d{1,2} captures admit values like month 13 or day 40. Such names
	// must not match: time.Date would normalize them into a different month
	// and age computations would run against the wrong date.
	if p.Week > 53 || p.Month > 12 || p.Day > 31 {
		return nil, false
	}
	if p.Year != 0 && p.Month != 0 && p.Day != 0 {
		d := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
		if d.Day() != p.Day || int(d.Month()) != p.Month {
			return nil, false
		}
	}

	if hasSem {
		p.Semantic = &sem
	}
	return p, true
}

// splitEmergencySuffix separates a trailing "_SUFFIX" segment where SUFFIX
// is one or more capital letters. Anything else is left untouched.
func splitEmergencySuffix(name string) (base, suffix string) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	candidate := name[i+1:]
	for _, r := range candidate {
		if r < 'A' || r > 'Z' {
			return name, ""
		}
	}
	return name[:i], candidate
}

// semanticGrammar matches MAJOR[.MINOR[.PATCH]][-PRERELEASE][+bBUILD] with
// an optional trailing metadata segment introduced by "+" or "-".
var semanticGrammar = regexp.MustCompile(
	`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(-[0-9A-Za-z]+(?:\.[0-9A-Za-z]+)*)?(\+b\d+)?([+-][0-9A-Za-z.\-]+)?$`)

// ParseSemantic parses a bare semantic version name independently of the
// template catalog; semantic names often carry no project or date segment.
// Missing numeric components default to zero. Returns nil when the name does
// not fit the grammar.
func ParseSemantic(name string) *core.SemanticTuple {
	sub := semanticGrammar.FindStringSubmatch(name)
	if sub == nil {
		return nil
	}
	t := &core.SemanticTuple{}
	t.Major, _ = strconv.ParseUint(sub[1], 10, 64)
	if sub[2] != "" {
		t.Minor, _ = strconv.ParseUint(sub[2], 10, 64)
	}
	if sub[3] != "" {
		t.Patch, _ = strconv.ParseUint(sub[3], 10, 64)
	}
	if sub[4] != "" {
		t.PreRelease = strings.TrimPrefix(sub[4], "-")
	}
	if sub[5] != "" {
		n, _ := strconv.ParseUint(strings.TrimPrefix(sub[5], "+b"), 10, 64)
		t.Build = &n
	}
	if sub[6] != "" {
		t.Metadata = sub[6]
	}
	return t
}
