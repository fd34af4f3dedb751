package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "http://localhost:8080"
	DefaultTimeout      = 30 * time.Second
	DefaultQueueSize    = 64
	DefaultRedirectWait = 2 * time.Second
	DefaultPollInterval = time.Second

	fileName = "config.yaml"
)

type APISection struct {
	BaseURL string `yaml:"base_url,omitempty"`
	// Timeout uses Go duration syntax ("30s").
	Timeout string `yaml:"timeout,omitempty"`
}

type AnalyticsSection struct {
	Enabled   *bool `yaml:"enabled,omitempty"`
	QueueSize int   `yaml:"queue_size,omitempty"`
}

type RedirectSection struct {
	Delay string `yaml:"delay,omitempty"`
}

type TimerSection struct {
	PollInterval string `yaml:"poll_interval,omitempty"`
}

type OutputSection struct {
	Format string `yaml:"format,omitempty"`
	Pretty bool   `yaml:"pretty,omitempty"`
}

type LogSection struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type TUISection struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `yaml:"glyphs,omitempty"`
}

// File is the on-disk config format. Version is reserved for future format changes.
type File struct {
	Version   int              `yaml:"version,omitempty"`
	API       APISection       `yaml:"api"`
	Analytics AnalyticsSection `yaml:"analytics"`
	Redirect  RedirectSection  `yaml:"redirect"`
	Timer     TimerSection     `yaml:"timer"`
	Output    OutputSection    `yaml:"output"`
	Log       LogSection       `yaml:"log"`
	TUI       TUISection       `yaml:"tui"`
}

// Config is the resolved runtime configuration (file + env + defaults).
type Config struct {
	Dir string

	BaseURL          string
	Timeout          time.Duration
	AnalyticsEnabled bool
	QueueSize        int
	RedirectDelay    time.Duration
	PollInterval     time.Duration
	OutputFormat     string
	PrettyJSON       bool
	LogLevel         string
	LogFormat        string
	Glyphs           string
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.teamboard).
	if v := strings.TrimSpace(os.Getenv("TEAMBOARD_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".teamboard"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// LoadFile reads the config file; a missing file yields an empty File.
func LoadFile() (*File, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{Version: 1}, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

func SaveFile(f *File) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if f.Version == 0 {
		f.Version = 1
	}
	b, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// Load resolves the effective configuration.
// Precedence: env > config file > defaults.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	f, err := LoadFile()
	if err != nil {
		return nil, err
	}
	return Resolve(dir, f)
}

func Resolve(dir string, f *File) (*Config, error) {
	if f == nil {
		f = &File{}
	}
	cfg := &Config{
		Dir:              dir,
		BaseURL:          firstNonEmpty(os.Getenv("TEAMBOARD_API_URL"), f.API.BaseURL, DefaultBaseURL),
		AnalyticsEnabled: true,
		QueueSize:        DefaultQueueSize,
		OutputFormat:     firstNonEmpty(os.Getenv("TEAMBOARD_FORMAT"), f.Output.Format, "json"),
		PrettyJSON:       f.Output.Pretty,
		LogLevel:         firstNonEmpty(os.Getenv("TEAMBOARD_LOG_LEVEL"), f.Log.Level, "warn"),
		LogFormat:        firstNonEmpty(f.Log.Format, "text"),
		Glyphs:           firstNonEmpty(f.TUI.Glyphs, "unicode"),
	}
	if f.Analytics.Enabled != nil {
		cfg.AnalyticsEnabled = *f.Analytics.Enabled
	}
	if f.Analytics.QueueSize > 0 {
		cfg.QueueSize = f.Analytics.QueueSize
	}

	var err error
	if cfg.Timeout, err = durationOr("api.timeout", f.API.Timeout, DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.RedirectDelay, err = durationOr("redirect.delay", f.Redirect.Delay, DefaultRedirectWait); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationOr("timer.poll_interval", f.Timer.PollInterval, DefaultPollInterval); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url is invalid: %q", c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https: %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("timer.poll_interval must be positive")
	}
	if c.RedirectDelay < 0 {
		return errors.New("redirect.delay must not be negative")
	}
	switch c.OutputFormat {
	case "json", "edn", "yaml":
	default:
		return fmt.Errorf("output.format must be json, edn or yaml: %q", c.OutputFormat)
	}
	switch c.Glyphs {
	case "unicode", "ascii":
	default:
		return fmt.Errorf("tui.glyphs must be unicode or ascii: %q", c.Glyphs)
	}
	return nil
}

// Set updates a single dotted key in f. Used by `teamboard config set`.
func (f *File) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "api.base_url":
		f.API.BaseURL = value
	case "api.timeout":
		f.API.Timeout = value
	case "analytics.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("analytics.enabled: %w", err)
		}
		f.Analytics.Enabled = &b
	case "analytics.queue_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("analytics.queue_size must be a non-negative integer: %q", value)
		}
		f.Analytics.QueueSize = n
	case "redirect.delay":
		f.Redirect.Delay = value
	case "timer.poll_interval":
		f.Timer.PollInterval = value
	case "output.format":
		f.Output.Format = value
	case "output.pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("output.pretty: %w", err)
		}
		f.Output.Pretty = b
	case "log.level":
		f.Log.Level = value
	case "log.format":
		f.Log.Format = value
	case "tui.glyphs":
		f.TUI.Glyphs = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func durationOr(field, s string, d time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return d, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, s)
	}
	return v, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
