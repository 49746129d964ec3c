package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	YouTube   YouTubeConfig   `toml:"youtube"`
	AutoAdder AutoAdderConfig `toml:"autoadder"`
	Database  DatabaseConfig  `toml:"database"`
}

// YouTubeConfig contains YouTube Data API credentials and throttling settings.
type YouTubeConfig struct {
	ClientSecretPath string  `toml:"client_secret_path"`
	TokenPath        string  `toml:"token_path"`
	OAuthPort        int     `toml:"oauth_port"`
	RateLimit        float64 `toml:"rate_limit"`
}

// AutoAdderConfig contains auto-adder defaults and the settings directory.
type AutoAdderConfig struct {
	ConfigDir    string `toml:"config_dir"`
	KeepVideoIDs int    `toml:"keep_video_ids"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrAlreadyExists, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
