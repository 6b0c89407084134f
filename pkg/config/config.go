package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pgbuild/pkg/errors"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL = "https://build.phonegap.com/api/v1"
	DefaultTimeout = 30 * time.Second
)

// Profile represents a named build service account
type Profile struct {
	Name    string        `yaml:"name"`
	Service ServiceConfig `yaml:"service"`
	Default bool          `yaml:"default,omitempty"`
}

// Config holds the complete configuration including profiles
type Config struct {
	Service       ServiceConfig `yaml:"service"`
	Profiles      []Profile     `yaml:"profiles,omitempty"`
	ActiveProfile string        `yaml:"active_profile,omitempty"`
}

type ServiceConfig struct {
	BaseURL     string        `yaml:"base_url,omitempty"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	DownloadDir string        `yaml:"download_dir,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// Load loads the configuration, optionally with a specific profile
func Load(profileName ...string) (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, errors.NewWithError(errors.KindConfig, "failed to get config path", err)
	}
	return loadFromPath(configPath, profileName...)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "pgbuild", "config.yaml"), nil
}

// Save writes the file-backed part of the configuration. Environment
// overrides and defaults applied by Load are not persisted.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return saveToPath(configPath, cfg)
}

func saveToPath(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return errors.NewWithError(errors.KindConfig, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewWithError(errors.KindConfig, "failed to marshal config", err)
	}

	// may hold a password
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.NewWithError(errors.KindConfig, "failed to write config file", err)
	}

	return nil
}

// LoadFile reads the config file without environment overrides or defaults,
// for commands that edit and save it.
func LoadFile() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetProfile returns a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile '%s' not found", name)
}

// SetProfile sets the active profile
func (c *Config) SetProfile(name string) error {
	if name == "" {
		c.ActiveProfile = ""
		return nil
	}

	if _, err := c.GetProfile(name); err != nil {
		return err
	}

	c.ActiveProfile = name
	return nil
}

// AddProfile adds a new profile
func (c *Config) AddProfile(profile Profile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if _, err := c.GetProfile(profile.Name); err == nil {
		return fmt.Errorf("profile '%s' already exists", profile.Name)
	}

	c.Profiles = append(c.Profiles, profile)
	return nil
}

// RemoveProfile removes a profile
func (c *Config) RemoveProfile(name string) error {
	if c.ActiveProfile == name {
		return fmt.Errorf("cannot remove active profile '%s'", name)
	}

	for i, p := range c.Profiles {
		if p.Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("profile '%s' not found", name)
}

// ListProfiles returns a list of profile names
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	return names
}

func (c *Config) IsProfileActive(name string) bool {
	return c.ActiveProfile == name
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadFromPath(configPath string, profileName ...string) (*Config, error) {
	cfg := &Config{}

	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(cfg)

	targetProfile := ""
	if len(profileName) > 0 && profileName[0] != "" {
		targetProfile = profileName[0]
	} else if cfg.ActiveProfile != "" {
		targetProfile = cfg.ActiveProfile
	}

	if targetProfile != "" {
		profile, err := cfg.GetProfile(targetProfile)
		if err != nil {
			return nil, errors.ConfigError(err.Error())
		}
		applyProfileConfig(cfg, profile)
		cfg.ActiveProfile = targetProfile
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyProfileConfig(cfg *Config, profile *Profile) {
	if profile.Service.BaseURL != "" {
		cfg.Service.BaseURL = profile.Service.BaseURL
	}
	if profile.Service.Username != "" {
		cfg.Service.Username = profile.Service.Username
	}
	if profile.Service.Password != "" {
		cfg.Service.Password = profile.Service.Password
	}
	if profile.Service.DownloadDir != "" {
		cfg.Service.DownloadDir = profile.Service.DownloadDir
	}
	if profile.Service.Timeout > 0 {
		cfg.Service.Timeout = profile.Service.Timeout
	}
}

// loadConfigFile reads and parses the config file from the given path
func loadConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		// No file: flags, env and prompts supply everything.
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewWithError(errors.KindConfig, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.NewWithError(errors.KindConfig, "failed to parse config file", err)
	}

	return nil
}

// applyEnvironmentOverrides fills unset fields from PGBUILD_* variables
func applyEnvironmentOverrides(cfg *Config) {
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = getEnv("PGBUILD_BASE_URL", "")
	}
	if cfg.Service.Username == "" {
		cfg.Service.Username = getEnv("PGBUILD_USERNAME", "")
	}
	if cfg.Service.Password == "" {
		cfg.Service.Password = getEnv("PGBUILD_PASSWORD", "")
	}
	if cfg.Service.DownloadDir == "" {
		cfg.Service.DownloadDir = getEnv("PGBUILD_DOWNLOAD_DIR", "")
	}

	if profileEnv := os.Getenv("PGBUILD_PROFILE"); profileEnv != "" {
		cfg.ActiveProfile = profileEnv
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = DefaultBaseURL
	}
	cfg.Service.BaseURL = strings.TrimRight(cfg.Service.BaseURL, "/")
	if cfg.Service.DownloadDir == "" {
		cfg.Service.DownloadDir = os.TempDir()
	}
	if cfg.Service.Timeout <= 0 {
		cfg.Service.Timeout = DefaultTimeout
	}
}
