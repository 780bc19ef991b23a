package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %s", config.Database.Driver)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Player.DefaultVolume != 0.8 {
			t.Errorf("expected default volume 0.8, got %f", config.Player.DefaultVolume)
		}
		if config.Catalog.DefaultSource != "jamendo" {
			t.Errorf("expected default source jamendo, got %s", config.Catalog.DefaultSource)
		}
		if config.Keys.PlayPause != " " {
			t.Errorf("expected space for play/pause, got %q", config.Keys.PlayPause)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("LoadConfig overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `data_dir = "/var/lib/vibe"

[server]
port = 8080

[catalog.youtube]
api_key = "yt-key"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.DataDir != "/var/lib/vibe" {
			t.Errorf("expected data dir /var/lib/vibe, got %s", config.DataDir)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected port 8080, got %d", config.Server.Port)
		}
		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected default host to survive, got %s", config.Server.Host)
		}
		if config.Catalog.YouTube.APIKey != "yt-key" {
			t.Errorf("expected api key yt-key, got %s", config.Catalog.YouTube.APIKey)
		}
		if config.Catalog.YouTube.BaseURL == "" {
			t.Error("expected default youtube base url to survive")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("data_dir = ["), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("LoadOrCreate", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.toml")

		config, err := LoadOrCreate(path)
		if err != nil {
			t.Fatalf("LoadOrCreate failed: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Error("created config should match defaults")
		}
		if err := CreateConfigFile(path); err == nil {
			t.Error("creating config file again should fail")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("JAMENDO_CLIENT_ID", "jam")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/vibe")
	t.Setenv("PORT", "9090")

	config := DefaultConfig()
	config.ApplyEnv()

	if config.Catalog.Jamendo.ClientID != "jam" {
		t.Errorf("expected jamendo client id jam, got %s", config.Catalog.Jamendo.ClientID)
	}
	if config.Catalog.Spotify.ClientSecret != "secret" {
		t.Errorf("expected spotify secret, got %s", config.Catalog.Spotify.ClientSecret)
	}
	if config.Database.Driver != "postgres" || config.Database.URL != "postgres://localhost/vibe" {
		t.Errorf("expected postgres from DATABASE_URL, got %+v", config.Database)
	}
	if config.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", config.Server.Port)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("VIBE_TEST_ONLY_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("VIBE_TEST_ONLY_KEY") })

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("VIBE_TEST_ONLY_KEY"); got != "from-dotenv" {
		t.Errorf("expected from-dotenv, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"volume too high", func(c *Config) { c.Player.DefaultVolume = 1.5 }, playerrors.ErrInvalidInput},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, playerrors.ErrInvalidInput},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, playerrors.ErrMissingConfig},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, playerrors.ErrMissingConfig},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, playerrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("VIBE_CONFIG", "/tmp/custom.toml")
	if got := GetConfigPath(); got != "/tmp/custom.toml" {
		t.Errorf("GetConfigPath() = %s", got)
	}

	t.Setenv("VIBE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := GetConfigPath(); got != filepath.Join("/xdg", "vibestream", "config.toml") {
		t.Errorf("GetConfigPath() = %s", got)
	}
}
