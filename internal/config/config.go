package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/tal/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "tal.yaml"

	// JSONConfigFileName is the JSON alternative to ConfigFileName.
	JSONConfigFileName = "tal.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultTemplateDir is the directory templates are read from.
	DefaultTemplateDir = "templates"

	// DefaultTemplate is the page template served at the root.
	DefaultTemplate = "index.html"
)

// fileNames are the config files Load looks for, in order.
var fileNames = []string{ConfigFileName, "tal.yml", JSONConfigFileName}

// Config represents tal.yaml.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains the live server settings.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Source says where templates and data come from.
	Source SourceConfig `json:"source,omitempty" yaml:"source,omitempty"`

	// Session contains session lifetime settings.
	Session SessionConfig `json:"session,omitempty" yaml:"session,omitempty"`

	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// Metrics serves Prometheus metrics on /metrics.
	Metrics bool `json:"metrics" yaml:"metrics"`

	// Tracing creates OpenTelemetry spans for renders and events.
	Tracing bool `json:"tracing" yaml:"tracing"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains the live server settings.
type ServerConfig struct {
	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Prefix replaces the "tal" statement prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Scripts enables script: expressions.
	Scripts bool `json:"scripts,omitempty" yaml:"scripts,omitempty"`

	// MaxSessions limits concurrent sessions. 0 means no limit.
	MaxSessions int `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`
}

// SourceConfig says where templates and data come from.
type SourceConfig struct {
	// Dir is the template directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Template is the page template, relative to Dir.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// Data is the YAML or JSON model file, relative to Dir.
	Data string `json:"data,omitempty" yaml:"data,omitempty"`

	// S3 reads sources from a bucket instead of Dir when Bucket is set.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config locates sources in an S3 bucket.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// SessionConfig contains session lifetime settings as durations ("30s").
type SessionConfig struct {
	// AttachTimeout is how long a rendered page waits for its WebSocket.
	AttachTimeout string `json:"attachTimeout,omitempty" yaml:"attachTimeout,omitempty"`

	// IdleTimeout closes sessions without client activity.
	IdleTimeout string `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultPort,
			Host: DefaultHost,
		},
		Source: SourceConfig{
			Dir:      DefaultTemplateDir,
			Template: DefaultTemplate,
		},
		Session: SessionConfig{
			AttachTimeout: "30s",
			IdleTimeout:   "5m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: true,
		Tracing: true,
	}
}

// Load reads the first of tal.yaml, tal.yml and tal.json found in dir.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No tal.yaml or tal.json found in " + dir)
}

// LoadFile reads configuration from the specified file path. The format
// follows the extension; anything but .json is read as YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail(path + " does not exist")
		}
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	// Unset fields keep the defaults.
	cfg := New()
	if isJSON(path) {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension names.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Source.Dir == "" {
		c.Source.Dir = d.Source.Dir
	}
	if c.Source.Template == "" {
		c.Source.Template = d.Source.Template
	}
	if c.Session.AttachTimeout == "" {
		c.Session.AttachTimeout = d.Session.AttachTimeout
	}
	if c.Session.IdleTimeout == "" {
		c.Session.IdleTimeout = d.Session.IdleTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New(errors.CodeConfigInvalid).WithDetail(detail)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535")
	}
	if c.Server.MaxSessions < 0 {
		return invalid("server.maxSessions must not be negative")
	}
	if c.Source.Template == "" {
		return invalid("source.template is required")
	}
	if c.Source.S3.Bucket != "" && c.Source.S3.Region == "" {
		return invalid("source.s3.region is required with a bucket")
	}
	for name, v := range map[string]string{
		"session.attachTimeout": c.Session.AttachTimeout,
		"session.idleTimeout":   c.Session.IdleTimeout,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return invalid(name + " must be a positive duration, got " + strconv.Quote(v))
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return invalid("log.format must be text or json")
	}
	return nil
}

// Address returns the address the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New(errors.CodeConfigInvalid).
			WithDetail("log.level must be debug, info, warn or error").
			Wrap(err)
	}
	return level, nil
}

// AttachTimeout returns Session.AttachTimeout, or 0 when unset.
func (c *Config) AttachTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Session.AttachTimeout)
	return d
}

// IdleTimeout returns Session.IdleTimeout, or 0 when unset.
func (c *Config) IdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Session.IdleTimeout)
	return d
}

// SourceDir returns the absolute template directory.
func (c *Config) SourceDir() string {
	if filepath.IsAbs(c.Source.Dir) {
		return c.Source.Dir
	}
	return filepath.Join(c.Dir(), c.Source.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root, the
// directory holding the config file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No tal.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest ancestor with a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
