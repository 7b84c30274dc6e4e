package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// DefaultFileName is the config file consulted in the user's home directory
// when no explicit path is given.
const DefaultFileName = ".jira-version-manager.json"

// Load reads the configuration document. Precedence, lowest to highest:
// built-in defaults, the config file (JSON or YAML by extension), JIRA_*
// environment variables.
// path may be empty, in which case the default file in the home directory
// is used if it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	// Format follows the file extension; extensionless paths read as JSON.
	if ext := filepath.Ext(path); ext == "" {
		v.SetConfigType("json")
	}
	setDefaults(v)
	bindEnv(v)

	switch {
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(core.ErrConfiguration, "reading config file %s: %v", path, err)
		}
	default:
		home, err := os.UserHomeDir()
		if err == nil {
			candidate := filepath.Join(home, DefaultFileName)
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				if err := v.ReadInConfig(); err != nil {
					return nil, errors.Wrapf(core.ErrConfiguration, "reading config file %s: %v", candidate, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(core.ErrConfiguration, "unmarshaling config: %v", err)
	}
	// JIRA_PROJECT_KEYS arrives as one comma-separated value.
	if len(cfg.ProjectKeys) == 1 && strings.Contains(cfg.ProjectKeys[0], ",") {
		cfg.ProjectKeys = strings.Split(cfg.ProjectKeys[0], ",")
	}
	if file := v.ConfigFileUsed(); file != "" {
		if err := decodeScopedMaps(file, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeScopedMaps re-reads the per-project maps straight from the config
// file. Viper lowercases every key it touches, nested map keys included, so
// a scope like "ABC" arrives as "abc" and PolicyFor and ResolveFormats would
// silently fall back to the "default" scope. Format keys in version_formats
// are case-sensitive for the same reason.
func decodeScopedMaps(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(core.ErrConfiguration, "reading config file %s: %v", path, err)
	}

	var fileCfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &fileCfg)
	default:
		err = json.Unmarshal(raw, &fileCfg)
	}
	if err != nil {
		return errors.Wrapf(core.ErrConfiguration, "decoding config file %s: %v", path, err)
	}

	if fileCfg.VersionFormats != nil {
		cfg.VersionFormats = fileCfg.VersionFormats
	}
	if fileCfg.ProjectVersionFormats != nil {
		cfg.ProjectVersionFormats = fileCfg.ProjectVersionFormats
	}
	if fileCfg.IssueTypes != nil {
		cfg.IssueTypes = fileCfg.IssueTypes
	}
	if fileCfg.ReleaseDays != nil {
		cfg.ReleaseDays = fileCfg.ReleaseDays
	}
	if fileCfg.ArchiveSettings != nil {
		cfg.ArchiveSettings = fileCfg.ArchiveSettings
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jira_base_url", "https://your-jira-instance.com")
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("project_version_formats", map[string][]string{"default": {"standard"}})
	v.SetDefault("archive_settings", map[string]ArchiveSettings{"default": {Months: 6, Enabled: false}})
}

func bindEnv(v *viper.Viper) {
	// Explicit bindings keep the historical variable names.
	_ = v.BindEnv("jira_base_url", "JIRA_BASE_URL")
	_ = v.BindEnv("jira_api_token", "JIRA_API_TOKEN")
	_ = v.BindEnv("project_keys", "JIRA_PROJECT_KEYS")
	_ = v.BindEnv("retention_days", "JIRA_RETENTION_DAYS")
}
