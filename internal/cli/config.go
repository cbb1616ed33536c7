package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/maplab/flatland/pkg/pipeline"
)

// =============================================================================
// Config - Optional TOML Configuration File
// =============================================================================

// Config holds user defaults loaded from ~/.config/flatland/flatland.toml.
// All fields are optional; flags override config, config overrides the
// built-in pipeline defaults.
type Config struct {
	Flatten FlattenConfig `toml:"flatten"`
	Cache   CacheConfig   `toml:"cache"`
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
}

// FlattenConfig overrides the default flatten parameters.
// Zero values fall back to the pipeline defaults.
type FlattenConfig struct {
	Mu       float64 `toml:"mu"`
	Clusters int     `toml:"clusters"`
	K        int     `toml:"k"`
	Margin   float64 `toml:"margin"`
	Seed     uint64  `toml:"seed"`
}

// CacheConfig selects the pipeline result cache backend. With no redis_url
// the CLI uses the local file cache; key_prefix namespaces entries when
// several map collections share one Redis instance.
type CacheConfig struct {
	RedisURL  string `toml:"redis_url"`
	KeyPrefix string `toml:"key_prefix"`
}

// StoreConfig configures the bundle store backend.
type StoreConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// configPath returns the config file location using XDG standard
// (~/.config/flatland/flatland.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, appName+".toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, appName+".toml"), nil
}

// loadConfig reads the config file if it exists.
// A missing or unreadable file yields a zero config; commands fall back to
// the built-in defaults. Parse errors are silently ignored for the same
// reason: a broken config file should never make the CLI unusable.
func loadConfig() Config {
	path, err := configPath()
	if err != nil {
		return Config{}
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) Config {
	var cfg Config
	if _, err := os.Stat(path); err != nil {
		return Config{}
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// =============================================================================
// Defaults Resolution
// =============================================================================

func (c Config) flattenMu() float64 {
	if c.Flatten.Mu != 0 {
		return c.Flatten.Mu
	}
	return pipeline.DefaultMu
}

func (c Config) flattenClusters() int {
	if c.Flatten.Clusters != 0 {
		return c.Flatten.Clusters
	}
	return pipeline.DefaultClusterCount
}

func (c Config) flattenNeighborK() int {
	if c.Flatten.K != 0 {
		return c.Flatten.K
	}
	return pipeline.DefaultNeighborK
}

func (c Config) flattenMargin() float64 {
	if c.Flatten.Margin != 0 {
		return c.Flatten.Margin
	}
	return pipeline.DefaultMargin
}

func (c Config) flattenSeed() uint64 {
	if c.Flatten.Seed != 0 {
		return c.Flatten.Seed
	}
	return pipeline.DefaultSeed
}

func (c Config) serverAddr() string {
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return ":8080"
}
