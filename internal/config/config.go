package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/histline/internal/timeline"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Timeline timeline.Options `yaml:"timeline"`
	Segment  Segment          `yaml:"segment"`
	Sources  Sources          `yaml:"sources"`
	Fetch    Fetch            `yaml:"fetch"`
	Output   Output           `yaml:"output"`
	Server   Server           `yaml:"server"`
	Logging  Logging          `yaml:"logging"`
}

type Segment struct {
	// Dictionaries replace the embedded gse dictionary when set.
	Dictionaries []string `yaml:"dictionaries"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Fetch struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	UserAgent         string        `yaml:"user_agent"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ConfigDir returns the XDG config directory for histline.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "histline")
}

// DataDir returns the XDG data directory for histline.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "histline")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/histline/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Newf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", errors.WithHint(
		errors.Newf("no config file found; searched:\n  %s\n  ./config.yaml", xdgConfig),
		"run 'histline init' to create a default config",
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return parse(data)
}

// LoadOrDefault loads the resolved config file, falling back to the
// embedded defaults when none exists and none was requested explicitly.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := ResolveConfigPath(explicit)
	if err != nil {
		if explicit != "" {
			return nil, err
		}
		return parse(DefaultConfigYAML)
	}
	return Load(path)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Timeline: timeline.DefaultOptions(),
		Fetch: Fetch{
			Timeout:           15 * time.Second,
			RequestsPerMinute: 30,
			UserAgent:         "histline/1.0",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	opts, err := cfg.Timeline.Normalize()
	if err != nil {
		return nil, errors.Wrap(err, "timeline section")
	}
	cfg.Timeline = opts

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "histline.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
