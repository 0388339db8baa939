package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"alldaycal/internal/layout"
	appLog "alldaycal/internal/log"
)

// Source kinds.
const (
	SourceICS    = "ics"
	SourceCalDAV = "caldav"
)

// SourceConfig describes one calendar feed.
type SourceConfig struct {
	// Type is "ics" (HTTP subscription, default) or "caldav".
	Type string `yaml:"type,omitempty" toml:"type,omitempty" json:"type"`
	// URL is the ICS endpoint, or the CalDAV server endpoint.
	URL string `yaml:"url" toml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" toml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" toml:"name" json:"name"`

	// CalDAV only.
	Username string `yaml:"username,omitempty" toml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty" json:"-"`
	// Calendar is the calendar collection path, or its display name.
	Calendar string `yaml:"calendar,omitempty" toml:"calendar,omitempty" json:"calendar,omitempty"`
}

// SourceID returns ID, falling back to Name then URL.
func (s SourceConfig) SourceID() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Name != "":
		return s.Name
	}
	return s.URL
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// LayoutConfig is the geometry of the all-day row, in points.
type LayoutConfig struct {
	ColumnWidth float64 `yaml:"column_width" toml:"column_width" json:"column_width"`
	CellHeight  float64 `yaml:"cell_height" toml:"cell_height" json:"cell_height"`
	// MaxContentHeight caps the stacked cells; zero or negative means no cap.
	MaxContentHeight float64 `yaml:"max_content_height" toml:"max_content_height" json:"max_content_height"`
	// CellSpacing and CellInset are pointers so an explicit 0 survives Normalize.
	CellSpacing *float64 `yaml:"cell_spacing,omitempty" toml:"cell_spacing,omitempty" json:"cell_spacing,omitempty"`
	CellInset   *float64 `yaml:"cell_inset,omitempty" toml:"cell_inset,omitempty" json:"cell_inset,omitempty"`
	// Carry selects how events started before a day are collected:
	// "first_day_only" or "after_any_events".
	Carry string `yaml:"carry" toml:"carry" json:"carry"`
}

// Engine converts the section into engine geometry.
func (l LayoutConfig) Engine() (layout.Config, error) {
	cfg := layout.DefaultConfig()
	if l.ColumnWidth > 0 {
		cfg.ColumnWidth = l.ColumnWidth
	}
	if l.CellHeight > 0 {
		cfg.CellHeight = l.CellHeight
	}
	if l.MaxContentHeight > 0 {
		cfg.MaxContentHeight = l.MaxContentHeight
	} else {
		cfg.MaxContentHeight = math.Inf(1)
	}
	if l.CellSpacing != nil {
		cfg.CellSpacing = *l.CellSpacing
	}
	if l.CellInset != nil {
		cfg.CellInset = *l.CellInset
	}
	carry, err := layout.ParseCarryRule(l.Carry)
	if err != nil {
		return layout.Config{}, err
	}
	cfg.Carry = carry
	return cfg, cfg.Validate()
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web endpoints.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA timezone days are cut in (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday". When AlignWeek is set
	// the first day section is moved back to this weekday.
	WeekStart string `yaml:"week_start" toml:"week_start" json:"week_start"`
	AlignWeek bool   `yaml:"align_week" toml:"align_week" json:"align_week"`

	// RefreshCron is a standard 5-field cron expression (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" toml:"refresh" json:"refresh"`

	// HorizonDays is the number of days from today the calendar covers;
	// BackfillDays adds past days before today.
	HorizonDays  int `yaml:"horizon_days" toml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" toml:"backfill_days" json:"backfill_days"`

	// VisibleDays is the width of the visible window, starting at today.
	VisibleDays int `yaml:"visible_days" toml:"visible_days" json:"visible_days"`

	// IncludeMultiDay also places timed events that cross midnight.
	IncludeMultiDay bool `yaml:"include_multi_day" toml:"include_multi_day" json:"include_multi_day"`

	// HighlightRed lists keywords that render matching events in red.
	HighlightRed []string `yaml:"highlight_red" toml:"highlight_red" json:"highlight_red"`

	// Sources is the list of subscribed calendars.
	Sources []SourceConfig `yaml:"sources" toml:"sources" json:"sources"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`

	// PreviewPath is where captured PNG previews are written. Capture
	// enables the headless browser capture after each refresh.
	PreviewPath string `yaml:"preview_path" toml:"preview_path" json:"preview_path"`
	Capture     bool   `yaml:"capture" toml:"capture" json:"capture"`
	// TriColor reduces captured previews to black, red and white.
	TriColor bool `yaml:"tricolor" toml:"tricolor" json:"tricolor"`

	Layout LayoutConfig `yaml:"layout" toml:"layout" json:"layout"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "*/15 * * * *"
	defaultHorizonDays = 14
	defaultVisibleDays = 7
	defaultCacheDir    = "./var/ics-cache"
	defaultPreviewPath = "./var/preview.png"
	defaultCarry       = "first_day_only"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		HighlightRed: []string{"holiday", "vacation", "important"},
		Sources:      []SourceConfig{},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday":
		c.WeekStart = "sunday"
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.VisibleDays <= 0 {
		c.VisibleDays = defaultVisibleDays
	}
	c.VisibleDays = min(c.VisibleDays, c.HorizonDays)
	if c.HighlightRed == nil {
		c.HighlightRed = []string{}
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		if c.Sources[i].Type == "" {
			c.Sources[i].Type = SourceICS
		}
		c.Sources[i].Type = strings.ToLower(c.Sources[i].Type)
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PreviewPath == "" {
		c.PreviewPath = defaultPreviewPath
	}

	l := &c.Layout
	if l.ColumnWidth <= 0 {
		l.ColumnWidth = layout.DefaultColumnWidth
	}
	if l.CellHeight <= 0 {
		l.CellHeight = layout.DefaultCellHeight
	}
	if l.CellSpacing == nil {
		v := layout.DefaultCellSpacing
		l.CellSpacing = &v
	}
	if l.CellInset == nil {
		v := layout.DefaultCellInset
		l.CellInset = &v
	}
	if l.Carry == "" {
		l.Carry = defaultCarry
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if _, err := c.Layout.Engine(); err != nil {
		errs = append(errs, err)
	}
	for i, s := range c.Sources {
		switch s.Type {
		case SourceICS, SourceCalDAV:
		default:
			errs = append(errs, fmt.Errorf("sources[%d]: unknown type %q", i, s.Type))
		}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url is empty", i))
		}
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// FirstWeekday returns the configured first day of the week.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// isTOML reports whether path selects the TOML format.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from the given path. Files ending in .toml are
// read as TOML, everything else as YAML.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 permissions and returned.
//   - Otherwise the file is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if isTOML(path) {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode toml: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.Normalize()

	return &cfg, nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the configuration to path in the format its extension selects.
//
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	data, err := encode(path, cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".alldaycal-config-*.tmp")
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
