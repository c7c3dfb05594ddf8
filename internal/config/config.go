package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the CLI's YAML configuration.
type Config struct {
	Token           string `yaml:"token"`
	BaseURL         string `yaml:"base_url"`
	PollInterval    string `yaml:"poll_interval"`
	UploadThreshold int    `yaml:"upload_threshold"`
	HistoryPath     string `yaml:"history_path"`
}

// Dir resolves the config directory: $XDG_CONFIG_HOME/lagoon or
// ~/.config/lagoon.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "lagoon")
}

// Load reads YAML configuration from a path. If path is empty it resolves
// the default config file and, if that is absent, returns a zero Config so
// the CLI can run on LAGOON_API_TOKEN alone. Token resolution order:
// environment variable, secrets.env, YAML.
func Load(path string) (Config, error) {
	var cfg Config
	explicit := path != ""
	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return mergeToken(cfg), nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return mergeToken(cfg), nil
}

// mergeToken overlays token sources so the YAML never has to hold the
// secret: secrets.env beats YAML, the environment beats both.
func mergeToken(cfg Config) Config {
	secrets, _ := loadSecretsEnv("")
	if t, ok := secrets["LAGOON_API_TOKEN"]; ok && t != "" {
		cfg.Token = t
	}
	if v := os.Getenv("LAGOON_API_TOKEN"); v != "" {
		cfg.Token = v
	}
	return cfg
}

// PollIntervalDuration parses the configured poll interval, or returns 0
// when unset or unparseable so the client default applies.
func (c Config) PollIntervalDuration() time.Duration {
	if c.PollInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// DefaultHistoryPath is where the run history database lives when the
// config does not override it.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), "history.db")
}

// loadSecretsEnv reads KEY=VALUE pairs from secrets.env next to the
// config file. Missing file is not an error. Lines starting with # are
// ignored.
func loadSecretsEnv(path string) (map[string]string, error) {
	if path == "" {
		path = filepath.Join(Dir(), "secrets.env")
	}
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}, nil
	}
	defer f.Close()
	out := map[string]string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			k := strings.TrimSpace(line[:i])
			v := strings.TrimSpace(line[i+1:])
			out[k] = v
		}
	}
	return out, nil
}

// WriteSkeleton writes a commented starter config, refusing to overwrite.
func WriteSkeleton(path string) error {
	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	skeleton := `# Lagoon CLI configuration.
# The API token is better kept in secrets.env (LAGOON_API_TOKEN=...)
# or the environment than in this file.
token: ""
base_url: ""
poll_interval: "1s"
upload_threshold: 0
history_path: ""
`
	return os.WriteFile(path, []byte(skeleton), 0o600)
}
