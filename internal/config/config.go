// Package config loads service configuration from a YAML file and
// ORA_-prefixed environment variables, with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port    int           `yaml:"port" mapstructure:"port"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	CORS    CORSConfig    `yaml:"cors" mapstructure:"cors"`
}

type StorageConfig struct {
	// Backend selects the persistence adapter: "file" or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	// Strict makes a corrupt data file fail startup instead of
	// resetting to the empty structure (file backend only).
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

func DefaultConfig() *Config {
	return &Config{
		Port: 5000,
		Storage: StorageConfig{
			Backend: "file",
			DataDir: defaultDataDir(),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ora-memory")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ora-memory")
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Search paths
	v.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "ora-memory"))
	}
	home, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(home, ".config", "ora-memory"))

	// Environment variables: ORA_PORT, ORA_STORAGE_BACKEND, ...
	v.SetEnvPrefix("ORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", cfg.Port)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.strict", cfg.Storage.Strict)
	v.SetDefault("cors.allowed_origins", cfg.CORS.AllowedOrigins)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error produced
			return nil, err
		}
		// Config file not found; ignore and use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: storage backend %q invalid (must be file or sqlite)", c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage data_dir is required")
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	return nil
}
