// Package config loads and validates Valentine YAML configuration.
// It applies defaults so the daemon can rely on fully populated values.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// Config mirrors the valentine.yaml schema.
type Config struct {
	// Name is the instance name shown in user-facing transport messages.
	Name string `yaml:"name"`
	// URL is the externally visible base URL, used for clone instructions.
	URL string `yaml:"url"`
	// SSHHost is the user@host part of SSH clone URLs.
	SSHHost string `yaml:"ssh_host"`
	// Mount is the URL prefix the HTTP routes are served under.
	Mount string `yaml:"mount"`
	// Signup enables self-service account creation.
	Signup bool `yaml:"signup"`

	// RepoDir is the root under which bare repositories live,
	// laid out as <repo_dir>/<owner>/<repo>.git.
	RepoDir string `yaml:"repo_dir"`
	// SSHDir is the directory containing the authorized_keys file.
	SSHDir string `yaml:"ssh_dir"`
	// BinPath is the absolute path of the valentine binary, embedded
	// into authorized_keys forced-command lines.
	BinPath string `yaml:"bin_path"`

	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	HTTP    HTTPConfig    `yaml:"http"`
	Session SessionConfig `yaml:"session"`

	// Path is the absolute location this config was loaded from. It is
	// embedded into authorized_keys forced-command lines alongside BinPath.
	Path string `yaml:"-"`
}

// Load reads a YAML config file, applies defaults, and validates it.
// Relative paths are resolved against the config file's directory so the
// forced-command invocation works regardless of sshd's working directory.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}
	c.Path = abs

	base := filepath.Dir(abs)
	c.RepoDir = resolvePath(base, c.RepoDir)
	c.SSHDir = resolvePath(base, c.SSHDir)
	c.DB.Path = resolvePath(base, c.DB.Path)
	return c, nil
}

// applyDefaults populates zero-values with sane defaults.
func applyDefaults(c *Config) {
	if c.Name == "" {
		c.Name = "Valentine"
	}
	if c.Mount == "" {
		c.Mount = "/"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DB.Path == "" {
		c.DB.Path = "./data/valentine.db"
	}
	if c.RepoDir == "" {
		c.RepoDir = "./data/repos"
	}
	if c.SSHDir == "" {
		c.SSHDir = "./data/ssh"
	}
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24
	}
}

// validate performs basic sanity checks for required fields and ranges.
func validate(c *Config) error {
	if c.RepoDir == "" {
		return errors.New("repo_dir is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port is invalid")
	}
	if c.Session.TTLHours < 1 {
		return errors.New("session.ttl_hours is invalid")
	}
	if !strings.HasPrefix(c.Mount, "/") {
		return errors.New("mount must start with /")
	}
	if c.BinPath != "" && !filepath.IsAbs(c.BinPath) {
		return errors.New("bin_path must be absolute")
	}
	return nil
}

func resolvePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
