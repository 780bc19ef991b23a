package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

//go:embed config.example.toml
var exampleConf []byte

// Config holds application configuration
type Config struct {
	DataDir          string         `toml:"data_dir"`
	UserID           string         `toml:"user_id"`
	MusicDirectories []string       `toml:"music_directories"`
	Log              LogConfig      `toml:"log"`
	Player           PlayerConfig   `toml:"player"`
	Catalog          CatalogConfig  `toml:"catalog"`
	Database         DatabaseConfig `toml:"database"`
	Server           ServerConfig   `toml:"server"`
	Keys             KeyMap         `toml:"keys"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// PlayerConfig tunes the playback controller
type PlayerConfig struct {
	DefaultVolume float64 `toml:"default_volume"`
	RestoreQueue  bool    `toml:"restore_queue"`
}

// CatalogConfig holds upstream catalog credentials and search defaults
type CatalogConfig struct {
	DefaultSource string        `toml:"default_source"`
	SearchLimit   int           `toml:"search_limit"`
	RateLimit     float64       `toml:"rate_limit"`
	Jamendo       JamendoConfig `toml:"jamendo"`
	YouTube       YouTubeConfig `toml:"youtube"`
	Spotify       SpotifyConfig `toml:"spotify"`
}

type JamendoConfig struct {
	ClientID string `toml:"client_id"`
	BaseURL  string `toml:"base_url"`
}

type YouTubeConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	BaseURL      string `toml:"base_url"`
	TokenURL     string `toml:"token_url"`
	Market       string `toml:"market"`
}

// DatabaseConfig selects the store backend. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// KeyMap defines keyboard shortcuts
type KeyMap struct {
	PlayPause   string `toml:"play_pause"`
	Next        string `toml:"next"`
	Previous    string `toml:"previous"`
	VolumeUp    string `toml:"volume_up"`
	VolumeDown  string `toml:"volume_down"`
	SeekForward string `toml:"seek_forward"`
	SeekBack    string `toml:"seek_back"`
	Mute        string `toml:"mute"`
	Repeat      string `toml:"repeat"`
	Shuffle     string `toml:"shuffle"`
	Favorite    string `toml:"favorite"`
	Quit        string `toml:"quit"`
	Search      string `toml:"search"`
}

// DefaultConfig returns the embedded example configuration
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfig reads a TOML file on top of the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// CreateConfigFile writes the embedded example config to path. It refuses to overwrite.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := CreateConfigFile(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}
	return LoadConfig(path)
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	if path := os.Getenv("VIBE_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vibestream", "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}

	return filepath.Join(home, ".config", "vibestream", "config.toml")
}

// LoadEnv loads the given dotenv files (".env" when none given) into the
// process environment. Missing files are skipped; existing variables win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides credentials and paths from environment variables
func (c *Config) ApplyEnv() {
	setString(&c.DataDir, "VIBE_DATA_DIR")
	setString(&c.Log.Level, "VIBE_LOG_LEVEL")
	setString(&c.Catalog.Jamendo.ClientID, "JAMENDO_CLIENT_ID")
	setString(&c.Catalog.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&c.Catalog.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&c.Catalog.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")

	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
		c.Database.Driver = "postgres"
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate checks values that would otherwise fail later and more obscurely
func (c *Config) Validate() error {
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("%w: player.default_volume must be between 0.0 and 1.0", playerrors.ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", playerrors.ErrMissingConfig)
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url", playerrors.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", playerrors.ErrInvalidInput, c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", playerrors.ErrInvalidInput, c.Server.Port)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
