package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// MinAPIDelay is the pause enforced after every tracker call in a probe or download loop
const MinAPIDelay = 150 * time.Millisecond

// Config holds all application configuration
type Config struct {
	// Tracker
	APIKey   string
	BaseURL  string
	APIDelay time.Duration // never below MinAPIDelay

	// Paths
	PoolFile      string // release pool sqlite file
	PlexDatabase  string // read-only Plex library database, optional
	TorrentDir    string // where .torrent files are written and checked
	DownloadDir   string // destination handed to the download client
	BlacklistFile string

	// Transmission
	TransmissionRemote string // transmission-remote executable
	TransmissionHost   string
	TransmissionAuth   string // user:password, optional

	// Watch
	WatchCount           int
	WatchSchedule        string // cron expression for daemon mode
	LibraryMatchDistance int

	// Server
	ServerPort  string
	MetricsFile string // node-exporter textfile output, optional

	// Logging
	LogLevel  string
	LogFormat string
	LogDir    string
}

// Load loads configuration from environment variables, a .env file and bound flags
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("BASE_URL", "https://redacted.sh/")
	viper.SetDefault("API_DELAY_MS", 150)
	viper.SetDefault("TRANSMISSION_REMOTE", "transmission-remote")
	viper.SetDefault("TRANSMISSION_HOST", "localhost:9091")
	viper.SetDefault("WATCH_COUNT", 10)
	viper.SetDefault("WATCH_SCHEDULE", "0 */6 * * *")
	viper.SetDefault("LIBRARY_MATCH_DISTANCE", 0)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")

	config := &Config{
		APIKey:   viper.GetString("API_KEY"),
		BaseURL:  viper.GetString("BASE_URL"),
		APIDelay: time.Duration(viper.GetInt("API_DELAY_MS")) * time.Millisecond,

		PoolFile:      viper.GetString("POOL_DB"),
		PlexDatabase:  viper.GetString("PLEX_DB"),
		TorrentDir:    viper.GetString("TORRENT_DIR"),
		DownloadDir:   viper.GetString("DOWNLOAD_DIR"),
		BlacklistFile: viper.GetString("BLACKLIST_FILE"),

		TransmissionRemote: viper.GetString("TRANSMISSION_REMOTE"),
		TransmissionHost:   viper.GetString("TRANSMISSION_HOST"),
		TransmissionAuth:   viper.GetString("TRANSMISSION_AUTH"),

		WatchCount:           viper.GetInt("WATCH_COUNT"),
		WatchSchedule:        viper.GetString("WATCH_SCHEDULE"),
		LibraryMatchDistance: viper.GetInt("LIBRARY_MATCH_DISTANCE"),

		ServerPort:  viper.GetString("SERVER_PORT"),
		MetricsFile: viper.GetString("METRICS_FILE"),

		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
		LogDir:    viper.GetString("LOG_DIR"),
	}

	if config.APIDelay < MinAPIDelay {
		config.APIDelay = MinAPIDelay
	}

	// Validate required fields
	if err := validateBaseURL(config.BaseURL); err != nil {
		return nil, err
	}
	if config.PoolFile == "" {
		return nil, fmt.Errorf("POOL_DB is required")
	}

	absPool, err := filepath.Abs(config.PoolFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for POOL_DB: %w", err)
	}
	config.PoolFile = absPool

	return config, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL provided: %q", raw)
	}
	return nil
}

// RequireAPIKey checks that tracker credentials are present
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	return nil
}

// RequireWatch checks everything a watch run needs
func (c *Config) RequireWatch() error {
	if err := c.RequireAPIKey(); err != nil {
		return err
	}
	if c.TorrentDir == "" {
		return fmt.Errorf("TORRENT_DIR is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.WatchCount <= 0 {
		return fmt.Errorf("watch count must be positive, got %d", c.WatchCount)
	}

	info, err := os.Stat(c.TorrentDir)
	if err != nil {
		return fmt.Errorf("failed to access torrent directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("torrent directory %s is not a directory", c.TorrentDir)
	}

	return nil
}
