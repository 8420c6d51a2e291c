package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Asia/Ho_Chi_Minh"
	defaultLogLevel    = "info"
	defaultMaxInput    = 20000
	defaultRepeatWeeks = 1
	defaultSchedule    = "*/10 * * * *"
	defaultInboxDir    = "inbox"
	defaultOutDir      = "out"
	defaultCacheDir    = "cache"
)

// MaxRepeatWeeks covers a long semester.
const MaxRepeatWeeks = 26

// Source modes.
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// SourceConfig describes a remote timetable page polled by the inbox runner.
type SourceConfig struct {
	// ID names the output files ("<id>.ics", "<id>.json") and log lines.
	ID  string `yaml:"id" json:"id"`
	URL string `yaml:"url" json:"url"`

	// Mode is "http" (plain GET, HTML reduced to text) or "browser"
	// (headless Chromium, for portals that render the timetable in JS).
	Mode string `yaml:"mode" json:"mode"`

	// WaitSelector is the element the browser waits for before capturing.
	WaitSelector string `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
}

// InboxConfig controls the directory watcher.
type InboxConfig struct {
	// Dir is scanned for *.txt and *.html timetable dumps.
	Dir string `yaml:"dir" json:"dir"`
	// OutDir receives the converted .ics and .json files.
	OutDir string `yaml:"out_dir" json:"out_dir"`
	// Schedule is a cron expression (robfig/cron, 5 fields or @every).
	Schedule string `yaml:"schedule" json:"schedule"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the parse API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone dates are resolved in.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxInputRunes caps how much text one parse call examines.
	MaxInputRunes int `yaml:"max_input_runes" json:"max_input_runes"`

	// RepeatWeeks is how many weekly occurrences exported calendars carry.
	// 1 exports the parsed week only.
	RepeatWeeks int `yaml:"repeat_weeks" json:"repeat_weeks"`

	Inbox   InboxConfig    `yaml:"inbox" json:"inbox"`
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// CacheDir keeps ETag/Last-Modified state for HTTP sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		LogLevel:      defaultLogLevel,
		MaxInputRunes: defaultMaxInput,
		RepeatWeeks:   defaultRepeatWeeks,
		Inbox: InboxConfig{
			Dir:      defaultInboxDir,
			OutDir:   defaultOutDir,
			Schedule: defaultSchedule,
		},
		Sources:  []SourceConfig{},
		CacheDir: defaultCacheDir,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxInputRunes <= 0 {
		c.MaxInputRunes = defaultMaxInput
	}
	switch {
	case c.RepeatWeeks <= 0:
		c.RepeatWeeks = defaultRepeatWeeks
	case c.RepeatWeeks > MaxRepeatWeeks:
		c.RepeatWeeks = MaxRepeatWeeks
	}
	if c.Inbox.Dir == "" {
		c.Inbox.Dir = defaultInboxDir
	}
	if c.Inbox.OutDir == "" {
		c.Inbox.OutDir = defaultOutDir
	}
	if c.Inbox.Schedule == "" {
		c.Inbox.Schedule = defaultSchedule
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		switch strings.ToLower(s.Mode) {
		case ModeBrowser:
			s.Mode = ModeBrowser
		default:
			s.Mode = ModeHTTP
		}
	}
}

// Location resolves Timezone, falling back to the local zone when the name
// is unknown to this system.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tkbcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
