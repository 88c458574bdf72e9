package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Postgres drivers.
const (
	DriverPGX  = "pgx"
	DriverSQLX = "sqlx"
)

var ErrInvalidConfig = errors.New("invalid config")

// StorageConfig selects where the shared collections live.
type StorageConfig struct {
	// Backend is one of "file" (default), "memory" or "postgres".
	Backend string `yaml:"backend"`
	// DataDir holds one JSON document per key for the file backend.
	DataDir string `yaml:"data_dir"`
	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
	// PostgresDriver is "pgx" (pgxpool, default) or "sqlx" (lib/pq).
	PostgresDriver string `yaml:"postgres_driver"`
	Table          string `yaml:"table"`
}

type ReminderConfig struct {
	// Lead is how far ahead of an event's start a reminder is pushed.
	Lead string `yaml:"lead"`
	// Schedule is the cron expression used by "remind --watch".
	Schedule string `yaml:"schedule"`
}

// CalDAVConfig describes the calendar events are published to.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Calendar string `yaml:"calendar,omitempty"`
}

// GoogleConfig describes the Google calendars events are imported from.
type GoogleConfig struct {
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	CalendarIDs  []string `yaml:"calendar_ids"`
	TokenDir     string   `yaml:"token_dir"`
	Days         int      `yaml:"days"`
}

// Config is the top-level application configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA zone used for day boundaries, or "Local".
	Timezone string `yaml:"timezone"`

	Storage StorageConfig `yaml:"storage"`

	// DemoUser gets the demo dataset on first login; DemoPartner owns the
	// demo event the demo user attends.
	DemoUser    string `yaml:"demo_user"`
	DemoPartner string `yaml:"demo_partner"`

	// ReadOnlyUsers may read but never mutate events.
	ReadOnlyUsers []string `yaml:"read_only_users"`

	UpcomingDays int            `yaml:"upcoming_days"`
	Reminders    ReminderConfig `yaml:"reminders"`
	CalDAV       CalDAVConfig   `yaml:"caldav"`
	Google       GoogleConfig   `yaml:"google"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Timezone: "Local",
		Storage: StorageConfig{
			Backend:        BackendFile,
			DataDir:        "data",
			PostgresDriver: DriverPGX,
			Table:          "kv_entries",
		},
		DemoUser:      "user-1",
		DemoPartner:   "user-2",
		ReadOnlyUsers: []string{"user-1"},
		UpcomingDays:  3,
		Reminders: ReminderConfig{
			Lead:     "1h",
			Schedule: "*/5 * * * *",
		},
		CalDAV: CalDAVConfig{
			Endpoint: "https://caldav.icloud.com/",
		},
		Google: GoogleConfig{
			CalendarIDs: []string{"primary"},
			TokenDir:    ".",
			Days:        7,
		},
	}
}

// Normalize fills in missing or zero values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()

	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = d.Storage.DataDir
	}
	if c.Storage.PostgresDriver == "" {
		c.Storage.PostgresDriver = d.Storage.PostgresDriver
	}
	if c.Storage.Table == "" {
		c.Storage.Table = d.Storage.Table
	}
	if c.ReadOnlyUsers == nil {
		c.ReadOnlyUsers = []string{}
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = d.UpcomingDays
	}
	if c.Reminders.Lead == "" {
		c.Reminders.Lead = d.Reminders.Lead
	}
	if c.Reminders.Schedule == "" {
		c.Reminders.Schedule = d.Reminders.Schedule
	}
	if c.CalDAV.Endpoint == "" {
		c.CalDAV.Endpoint = d.CalDAV.Endpoint
	}
	if len(c.Google.CalendarIDs) == 0 {
		c.Google.CalendarIDs = d.Google.CalendarIDs
	}
	if c.Google.TokenDir == "" {
		c.Google.TokenDir = d.Google.TokenDir
	}
	if c.Google.Days <= 0 {
		c.Google.Days = d.Google.Days
	}
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}

	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.Timezone, "AGENDA_TIMEZONE")
	set(&c.Storage.Backend, "AGENDA_STORAGE")
	set(&c.Storage.DataDir, "AGENDA_DATA_DIR")
	set(&c.Storage.PostgresDSN, "AGENDA_POSTGRES_DSN")
	set(&c.Storage.PostgresDriver, "AGENDA_POSTGRES_DRIVER")
	set(&c.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	set(&c.CalDAV.Username, "CALDAV_USERNAME")
	set(&c.CalDAV.Password, "CALDAV_PASSWORD")
	set(&c.CalDAV.Calendar, "CALDAV_CALENDAR")
	set(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	set(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")

	if ids := getenv("GOOGLE_CALENDAR_IDS"); ids != "" {
		c.Google.CalendarIDs = nil
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Google.CalendarIDs = append(c.Google.CalendarIDs, id)
			}
		}
	}
	c.Normalize()
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
		if c.Storage.PostgresDriver != DriverPGX && c.Storage.PostgresDriver != DriverSQLX {
			errs = append(errs, fmt.Errorf("unknown storage.postgres_driver %q", c.Storage.PostgresDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ReminderLead(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cron.ParseStandard(c.Reminders.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid reminders.schedule %q: %w", c.Reminders.Schedule, err))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ReminderLead parses Reminders.Lead.
func (c *Config) ReminderLead() (time.Duration, error) {
	d, err := time.ParseDuration(c.Reminders.Lead)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid reminders.lead %q", c.Reminders.Lead)
	}
	return d, nil
}

// Load reads the YAML file at path. On first run the file does not exist
// yet; a default config is written there and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path through a temp file and a rename, with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
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
