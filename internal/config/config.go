package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-content/pkg/state"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// ID generators.
const (
	IDsClock = "clock"
	IDsUUID  = "uuid"
)

type Config struct {
	Storage struct {
		Driver string `yaml:"driver"`
		// Path is the directory of the file driver or the DSN of the sqlite
		// driver.
		Path  string `yaml:"path"`
		Scope string `yaml:"scope"`
		Owner string `yaml:"owner"`
	} `yaml:"storage"`
	IDs      string `yaml:"ids"`
	Activity struct {
		Enabled bool   `yaml:"enabled"`
		Channel string `yaml:"channel"`
		ActorID string `yaml:"actor_id"`
	} `yaml:"activity"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Storage.Driver = DriverFile
	cfg.Storage.Path = "content-data"
	cfg.Storage.Scope = state.ScopeSite
	cfg.IDs = IDsClock
	cfg.Server.Addr = ":8080"
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads .env files, then the YAML file at path (skipped when path
// is empty), then CONTENT_* environment overrides. With no envFiles a .env
// in the working directory is loaded when present.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"CONTENT_STORAGE_DRIVER": &c.Storage.Driver,
		"CONTENT_STORAGE_PATH":   &c.Storage.Path,
		"CONTENT_SCOPE":          &c.Storage.Scope,
		"CONTENT_OWNER":          &c.Storage.Owner,
		"CONTENT_IDS":            &c.IDs,
		"CONTENT_ACTOR_ID":       &c.Activity.ActorID,
		"CONTENT_ADDR":           &c.Server.Addr,
		"CONTENT_LOG_LEVEL":      &c.Log.Level,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
		}
	}
	if value := os.Getenv("CONTENT_ACTIVITY"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: CONTENT_ACTIVITY: %w", err)
		}
		c.Activity.Enabled = enabled
	}
	return nil
}

// Validate checks driver, id generator and storage ref.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver != DriverMemory && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, fmt.Errorf("config: storage path is required for driver %q", c.Storage.Driver))
	}
	switch c.IDs {
	case IDsClock, IDsUUID:
	default:
		errs = append(errs, fmt.Errorf("config: unknown id generator %q", c.IDs))
	}
	if _, err := c.Ref().Identifier(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// Ref returns the storage ref of the content document.
func (c *Config) Ref() state.Ref {
	return state.Ref{Domain: "content", Scope: c.Storage.Scope, Owner: c.Storage.Owner}
}
