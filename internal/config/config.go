package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Limits  LimitsConfig  `yaml:"limits"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LimitsConfig bounds batch sizes and result pages.
type LimitsConfig struct {
	MaxImportEntries   int `yaml:"max_import_entries"`
	MaxExportResources int `yaml:"max_export_resources"`
	MaxHistoryVersions int `yaml:"max_history_versions"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		DB: DBConfig{
			Path: "clindocs.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: "0.0.0.0:9090",
		},
		Limits: LimitsConfig{
			MaxImportEntries:   500,
			MaxExportResources: 1000,
			MaxHistoryVersions: 100,
		},
	}

	if path := os.Getenv("CLINDOCS_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("CLINDOCS_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CLINDOCS_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if addr := os.Getenv("CLINDOCS_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if maxStr := os.Getenv("CLINDOCS_MAX_IMPORT_ENTRIES"); maxStr != "" {
		max, err := strconv.Atoi(maxStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CLINDOCS_MAX_IMPORT_ENTRIES: %w", err)
		}
		cfg.Limits.MaxImportEntries = max
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
