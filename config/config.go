// Package config loads and validates the version manager's configuration
// document and turns it into the immutable catalog and policy snapshots the
// engine consumes.
package config

import (
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jackalski/jira-version-manager/internal/core"
	"github.com/jackalski/jira-version-manager/internal/format"
)

// DefaultRetentionDays applies when the document sets none.
const DefaultRetentionDays = 30

// ReleaseDays is the per-project release calendar rule as written in the
// document. Weekday numbers are 0-6 with Monday = 0.
type ReleaseDays struct {
	Days           []int `mapstructure:"days" json:"days" yaml:"days"`
	Frequency      int   `mapstructure:"frequency" json:"frequency" yaml:"frequency"`
	NextWorkingDay bool  `mapstructure:"next_working_day" json:"next_working_day" yaml:"next_working_day"`
	MonthDays      []int `mapstructure:"month_days" json:"month_days" yaml:"month_days"`
	YearDays       []int `mapstructure:"year_days" json:"year_days" yaml:"year_days"`
	DayOffsets     []int `mapstructure:"day_offsets" json:"day_offsets" yaml:"day_offsets"`
	Interval       int   `mapstructure:"interval" json:"interval" yaml:"interval"`
}

// ArchiveSettings is the per-project archive rule as written in the document.
type ArchiveSettings struct {
	Months  int  `mapstructure:"months" json:"months" yaml:"months"`
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
}

// Config is the fully loaded configuration document. Per-project maps accept
// a "default" entry consulted for projects without one of their own.
type Config struct {
	BaseURL       string   `mapstructure:"jira_base_url" json:"jira_base_url"`
	APIToken      string   `mapstructure:"jira_api_token" json:"jira_api_token"`
	ProjectKeys   []string `mapstructure:"project_keys" json:"project_keys"`
	RetentionDays int      `mapstructure:"retention_days" json:"retention_days"`

	VersionFormats        map[string]string          `mapstructure:"version_formats" json:"version_formats" yaml:"version_formats"`
	ProjectVersionFormats map[string][]string        `mapstructure:"project_version_formats" json:"project_version_formats" yaml:"project_version_formats"`
	IssueTypes            map[string][]string        `mapstructure:"issue_types" json:"issue_types" yaml:"issue_types"`
	ReleaseDays           map[string]ReleaseDays     `mapstructure:"release_days" json:"release_days" yaml:"release_days"`
	ArchiveSettings       map[string]ArchiveSettings `mapstructure:"archive_settings" json:"archive_settings" yaml:"archive_settings"`
}

// Validate checks the document before any version operation begins.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Wrap(core.ErrConfiguration, "jira_base_url must start with http:// or https://")
	}
	if c.APIToken == "" {
		return errors.Wrap(core.ErrConfiguration, "jira_api_token is not set (JIRA_API_TOKEN)")
	}
	if c.RetentionDays < 0 {
		return errors.Wrap(core.ErrConfiguration, "retention_days must not be negative")
	}
	for scope, rd := range c.ReleaseDays {
		for _, d := range rd.Days {
			if d < 0 || d > 6 {
				return errors.Wrapf(core.ErrConfiguration, "release_days[%s]: weekday %d out of range 0-6", scope, d)
			}
		}
	}
	for scope, as := range c.ArchiveSettings {
		if as.Months < 0 {
			return errors.Wrapf(core.ErrConfiguration, "archive_settings[%s]: months must not be negative", scope)
		}
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	return nil
}

// Catalog builds the format catalog from the document merged over the
// built-in templates. Template order is deterministic: built-in keys first
// in their declared order, then additional document keys sorted
// lexicographically. JSON objects carry no order of their own, and parsing
// is first-match-wins, so the ordering must not depend on map iteration.
func (c *Config) Catalog() (*format.Catalog, error) {
	templates := format.BuiltinTemplates()
	seen := make(map[string]int, len(templates))
	for i, t := range templates {
		seen[t.Key] = i
	}

	var extras []string
	for key, pattern := range c.VersionFormats {
		if i, ok := seen[key]; ok {
			templates[i].Pattern = pattern
			continue
		}
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		templates = append(templates, format.Template{Key: key, Pattern: c.VersionFormats[key]})
	}

	return format.NewCatalog(templates, c.ProjectVersionFormats)
}

// PolicyFor resolves the lifecycle policy for a project: the project's own
// entries where present, the "default" entries otherwise, built-in defaults
// last. Never fails; every project resolves to a policy.
func (c *Config) PolicyFor(projectKey string) core.ProjectPolicy {
	pol := core.ProjectPolicy{
		FormatKeys:    scoped(c.ProjectVersionFormats, projectKey),
		IssueTypes:    scoped(c.IssueTypes, projectKey),
		RetentionDays: c.RetentionDays,
	}
	if pol.RetentionDays == 0 {
		pol.RetentionDays = DefaultRetentionDays
	}
	if rd, ok := scopedEntry(c.ReleaseDays, projectKey); ok {
		pol.Release = rd.rule()
	}
	if as, ok := scopedEntry(c.ArchiveSettings, projectKey); ok {
		pol.Archive = core.ArchiveSettings{Months: as.Months, Enabled: as.Enabled}
	}
	return pol
}

func (rd ReleaseDays) rule() core.ReleaseRule {
	rule := core.ReleaseRule{
		MonthDays:      rd.MonthDays,
		YearDays:       rd.YearDays,
		DayOffsets:     rd.DayOffsets,
		Interval:       rd.Interval,
		Frequency:      rd.Frequency,
		NextWorkingDay: rd.NextWorkingDay,
	}
	for _, d := range rd.Days {
		// Document weekdays are Monday=0; time.Weekday is Sunday=0.
		rule.Weekdays = append(rule.Weekdays, time.Weekday((d+1)%7))
	}
	return rule
}

func scoped[V any](m map[string][]V, projectKey string) []V {
	if vs, ok := m[projectKey]; ok {
		return vs
	}
	return m[format.DefaultKey]
}

func scopedEntry[V any](m map[string]V, projectKey string) (V, bool) {
	if v, ok := m[projectKey]; ok {
		return v, true
	}
	v, ok := m[format.DefaultKey]
	return v, ok
}
