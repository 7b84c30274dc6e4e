package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// Fields supplies the values a template draws on during synthesis. Date
// fields are zero when unavailable; Semantic is nil when the caller has no
// semantic tuple. A template may mix both kinds, in which case both must be
// supplied.
type Fields struct {
	Project  string
	Week     int
	Year     int
	Month    int
	Day      int
	Semantic *core.SemanticTuple
}

// FieldsForDate derives the date-based fields for a project and date. The
// week number is the ISO 8601 week of the date.
func FieldsForDate(project string, date time.Time) Fields {
	_, week := date.ISOWeek()
	return Fields{
		Project: project,
		Week:    week,
		Year:    date.Year(),
		Month:   int(date.Month()),
		Day:     date.Day(),
	}
}

// FieldsOf rebuilds synthesis fields from a parsed version. When the parse
// carried a full date the week number is recomputed from it, so canonical
// rendering corrects both padding and a drifted week component.
func FieldsOf(p *core.ParsedVersion) Fields {
	f := Fields{
		Project:  p.Project,
		Week:     p.Week,
		Year:     p.Year,
		Month:    p.Month,
		Day:      p.Day,
		Semantic: p.Semantic,
	}
	if date, ok := p.Date(); ok {
		_, f.Week = date.ISOWeek()
	}
	return f
}

// Render substitutes every placeholder in the template's pattern with the
// corresponding field value. WEEK, MONTH and DAY are zero-padded to two
// digits, YEAR to four. PRE_RELEASE renders as "-"+value, BUILD as "+b"+n,
// METADATA verbatim; all three render empty when absent. Any other
// placeholder without a value fails with a MissingFieldError. Pure.
func Render(t Template, f Fields) (string, error) {
	var renderErr error
	missing := func(placeholder string) string {
		if renderErr == nil {
			renderErr = &core.MissingFieldError{Placeholder: placeholder, FormatKey: t.Key}
		}
		return ""
	}

	out := placeholderToken.ReplaceAllStringFunc(t.Pattern, func(token string) string {
		name := placeholderToken.FindStringSubmatch(token)[1]
		switch name {
		case PlaceholderProject:
			if f.Project == "" {
				return missing(name)
			}
			return f.Project
		case PlaceholderWeek:
			if f.Week == 0 {
				return missing(name)
			}
			return fmt.Sprintf("%02d", f.Week)
		case PlaceholderYear:
			if f.Year == 0 {
				return missing(name)
			}
			return fmt.Sprintf("%04d", f.Year)
		case PlaceholderMonth:
			if f.Month == 0 {
				return missing(name)
			}
			return fmt.Sprintf("%02d", f.Month)
		case PlaceholderDay:
			if f.Day == 0 {
				return missing(name)
			}
			return fmt.Sprintf("%02d", f.Day)
		case PlaceholderMajor:
			if f.Semantic == nil {
				return missing(name)
			}
			return strconv.FormatUint(f.Semantic.Major, 10)
		case PlaceholderMinor:
			if f.Semantic == nil {
				return missing(name)
			}
			return strconv.FormatUint(f.Semantic.Minor, 10)
		case PlaceholderPatch:
			if f.Semantic == nil {
				return missing(name)
			}
			return strconv.FormatUint(f.Semantic.Patch, 10)
		case PlaceholderPreRelease:
			if f.Semantic == nil || f.Semantic.PreRelease == "" {
				return ""
			}
			return "-" + f.Semantic.PreRelease
		case PlaceholderBuild:
			if f.Semantic == nil || f.Semantic.Build == nil {
				return ""
			}
			return "+b" + strconv.FormatUint(*f.Semantic.Build, 10)
		case PlaceholderMetadata:
			if f.Semantic == nil {
				return ""
			}
			return f.Semantic.Metadata
		default:
			return missing(name)
		}
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

// CanonicalName renders the canonical form of a parsed version: the name the
// matched template produces from the parsed fields, with normalized padding
// and the emergency suffix reattached.
func (c *Catalog) CanonicalName(p *core.ParsedVersion) (string, error) {
	t, err := c.Lookup(p.FormatKey)
	if err != nil {
		return "", err
	}
	name, err := Render(t, FieldsOf(p))
	if err != nil {
		return "", err
	}
	if p.EmergencySuffix != "" {
		name += "_" + p.EmergencySuffix
	}
	return name, nil
}
