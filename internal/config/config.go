package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NOTEDECK_"

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TokenHash is a bcrypt hash; when set the API requires a bearer token.
	TokenHash string `yaml:"token_hash"`
}

type SearchConfig struct {
	CaseSensitive bool `yaml:"case_sensitive"`
}

type CleanupConfig struct {
	Interval time.Duration `yaml:"interval"`
	Grace    time.Duration `yaml:"grace"`
}

type Config struct {
	DBPath    string `yaml:"db_path"`
	Theme     string `yaml:"theme"`
	Language  string `yaml:"language"`
	LogLevel  string `yaml:"log_level"`
	LogPath   string `yaml:"log_path"`
	ExportDir string `yaml:"export_dir"`
	// Timezone is an IANA name timestamps are shown in. Empty means UTC.
	Timezone string `yaml:"timezone"`
	// ConsistentReads runs each page count and fetch in one read transaction.
	ConsistentReads bool          `yaml:"consistent_reads"`
	Search          SearchConfig  `yaml:"search"`
	Cleanup         CleanupConfig `yaml:"cleanup"`
	Server          ServerConfig  `yaml:"server"`
}

func DefaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.yml"
	}
	return filepath.Join(filepath.Dir(exe), "config.yml")
}

func DefaultDBPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "notedeck.db"
	}
	return filepath.Join(filepath.Dir(exe), "notedeck.db")
}

func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DBPath:    DefaultDBPath(),
		Theme:     "dark",
		Language:  "en",
		LogLevel:  "info",
		ExportDir: "export",
		Cleanup: CleanupConfig{
			Interval: 5 * time.Minute,
			Grace:    5 * time.Minute,
		},
		Server: ServerConfig{Addr: ":5689"},
	}
}

// Load reads path (a missing file is not an error), then applies .env and
// NOTEDECK_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.ExportDir = expandHome(cfg.ExportDir)

	if cfg.Cleanup.Interval <= 0 {
		cfg.Cleanup.Interval = 5 * time.Minute
	}
	if cfg.Cleanup.Grace <= 0 {
		cfg.Cleanup.Grace = 5 * time.Minute
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB_PATH":    &c.DBPath,
		"LANGUAGE":   &c.Language,
		"LOG_LEVEL":  &c.LogLevel,
		"LOG_PATH":   &c.LogPath,
		"EXPORT_DIR": &c.ExportDir,
		"TIMEZONE":   &c.Timezone,
		"ADDR":       &c.Server.Addr,
		"TOKEN_HASH": &c.Server.TokenHash,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "SEARCH_CASE_SENSITIVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sSEARCH_CASE_SENSITIVE: %w", envPrefix, err)
		}
		c.Search.CaseSensitive = b
	}
	if v, ok := os.LookupEnv(envPrefix + "CLEANUP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCLEANUP_INTERVAL: %w", envPrefix, err)
		}
		c.Cleanup.Interval = d
	}
	return nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, p[1:])
}
