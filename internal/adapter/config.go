package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Plex       PlexConfig              `mapstructure:"plex"`
	Radarr     RadarrConfig            `mapstructure:"radarr"`
	Sonarr     SonarrConfig            `mapstructure:"sonarr"`
	Letterboxd LetterboxdConfig        `mapstructure:"letterboxd"`
	TMDB       TMDBConfig              `mapstructure:"tmdb"`
	Sync       SyncConfig              `mapstructure:"sync"`
	Hooks      map[string][]HookConfig `mapstructure:"hooks"`
}

// PlexConfig holds Plex watchlist configuration
type PlexConfig struct {
	Token            string `mapstructure:"token"`
	RSSID            string `mapstructure:"rss_id"`            // Public watchlist RSS feed id, used without a token
	ClientIdentifier string `mapstructure:"client_identifier"` // Generated on first login
	SyncInterval     int    `mapstructure:"sync_interval"`     // Follow mode, seconds
}

// RadarrConfig holds Radarr destination configuration
type RadarrConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	QualityProfile int64  `mapstructure:"quality_profile"` // Quality profile id, see `arrsync radarr info`
	RootFolder     string `mapstructure:"root_folder"`
	Monitored      bool   `mapstructure:"monitored"`
	SearchOnAdd    bool   `mapstructure:"search_on_add"`
	Tags           []int  `mapstructure:"tags"`
}

// SonarrConfig holds Sonarr destination configuration
type SonarrConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	QualityProfile int64  `mapstructure:"quality_profile"`
	RootFolder     string `mapstructure:"root_folder"`
	SeriesType     string `mapstructure:"series_type"` // standard, daily or anime
	SeasonFolder   bool   `mapstructure:"season_folder"`
	MonitorAll     bool   `mapstructure:"monitor_all"` // false monitors future episodes only
	SearchOnAdd    bool   `mapstructure:"search_on_add"`
	Tags           []int  `mapstructure:"tags"`
}

// LetterboxdConfig holds Letterboxd source configuration
type LetterboxdConfig struct {
	Usernames    []string `mapstructure:"usernames"`
	RSS          bool     `mapstructure:"rss"`        // Diary feed
	Watchlist    bool     `mapstructure:"watchlist"`  // Public watchlist pages
	MinRating    float64  `mapstructure:"min_rating"` // 0 disables the filter
	SyncInterval int      `mapstructure:"sync_interval"`
}

// TMDBConfig enables reverse id lookups
type TMDBConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SyncConfig holds engine, storage and logging settings
type SyncConfig struct {
	DryRun          bool   `mapstructure:"dry_run"`
	Database        string `mapstructure:"database"`
	LogLevel        string `mapstructure:"log_level"`
	LogFile         string `mapstructure:"log_file"`
	CacheMaxAgeDays int    `mapstructure:"cache_max_age_days"`
}

// HookConfig is one event hook: a shell command or a webhook URL
type HookConfig struct {
	Type    string `mapstructure:"type"` // "command" or "webhook"
	Command string `mapstructure:"command"`
	URL     string `mapstructure:"url"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Plex: PlexConfig{
			SyncInterval: 5,
		},
		Radarr: RadarrConfig{
			Monitored:   true,
			SearchOnAdd: true,
		},
		Sonarr: SonarrConfig{
			SeriesType:   "standard",
			SeasonFolder: true,
			SearchOnAdd:  true,
		},
		Letterboxd: LetterboxdConfig{
			RSS:          true,
			Watchlist:    true,
			SyncInterval: 30,
		},
		Sync: SyncConfig{
			Database:        filepath.Join(defaultDataPath(), "arrsync.db"),
			LogLevel:        "INFO",
			LogFile:         filepath.Join(defaultDataPath(), "arrsync.log"),
			CacheMaxAgeDays: 7,
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "arrsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "arrsync")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "arrsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "arrsync")
	}
}

// DefaultConfigFile returns where config.yaml is written when none exists yet
func DefaultConfigFile() string {
	return filepath.Join(defaultConfigPath(), "config.yaml")
}

// setDefaults registers every default with viper so env overrides apply to
// keys that are absent from the file
func setDefaults(cfg *Config) {
	viper.SetDefault("plex.token", cfg.Plex.Token)
	viper.SetDefault("plex.rss_id", cfg.Plex.RSSID)
	viper.SetDefault("plex.client_identifier", cfg.Plex.ClientIdentifier)
	viper.SetDefault("plex.sync_interval", cfg.Plex.SyncInterval)

	viper.SetDefault("radarr.enabled", cfg.Radarr.Enabled)
	viper.SetDefault("radarr.url", cfg.Radarr.URL)
	viper.SetDefault("radarr.api_key", cfg.Radarr.APIKey)
	viper.SetDefault("radarr.monitored", cfg.Radarr.Monitored)
	viper.SetDefault("radarr.search_on_add", cfg.Radarr.SearchOnAdd)

	viper.SetDefault("sonarr.enabled", cfg.Sonarr.Enabled)
	viper.SetDefault("sonarr.url", cfg.Sonarr.URL)
	viper.SetDefault("sonarr.api_key", cfg.Sonarr.APIKey)
	viper.SetDefault("sonarr.series_type", cfg.Sonarr.SeriesType)
	viper.SetDefault("sonarr.season_folder", cfg.Sonarr.SeasonFolder)
	viper.SetDefault("sonarr.search_on_add", cfg.Sonarr.SearchOnAdd)

	viper.SetDefault("letterboxd.rss", cfg.Letterboxd.RSS)
	viper.SetDefault("letterboxd.watchlist", cfg.Letterboxd.Watchlist)
	viper.SetDefault("letterboxd.sync_interval", cfg.Letterboxd.SyncInterval)

	viper.SetDefault("tmdb.api_key", cfg.TMDB.APIKey)

	viper.SetDefault("sync.dry_run", cfg.Sync.DryRun)
	viper.SetDefault("sync.database", cfg.Sync.Database)
	viper.SetDefault("sync.log_level", cfg.Sync.LogLevel)
	viper.SetDefault("sync.log_file", cfg.Sync.LogFile)
	viper.SetDefault("sync.cache_max_age_days", cfg.Sync.CacheMaxAgeDays)
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(cfg)

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(defaultConfigPath())
		viper.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. ARRSYNC_PLEX_TOKEN
	viper.SetEnvPrefix("ARRSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults and env
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Plex.ClientIdentifier == "" {
		cfg.Plex.ClientIdentifier = uuid.NewString()
	}

	return cfg, nil
}

// ConfigFileUsed returns the file the config was read from, or the default location
func ConfigFileUsed() string {
	if f := viper.ConfigFileUsed(); f != "" {
		return f
	}
	return DefaultConfigFile()
}

// Validate reports missing required settings as domain.ErrConfiguration
func (c *Config) Validate() error {
	var problems []string

	if !c.HasPlex() && !c.HasLetterboxd() {
		problems = append(problems, "configure plex.token, plex.rss_id or letterboxd.usernames")
	}
	if !c.Radarr.Enabled && !c.Sonarr.Enabled {
		problems = append(problems, "at least one of sonarr or radarr must be enabled")
	}
	if c.Radarr.Enabled {
		problems = append(problems, requireArr("radarr", c.Radarr.URL, c.Radarr.APIKey, c.Radarr.QualityProfile, c.Radarr.RootFolder)...)
	}
	if c.Sonarr.Enabled {
		problems = append(problems, requireArr("sonarr", c.Sonarr.URL, c.Sonarr.APIKey, c.Sonarr.QualityProfile, c.Sonarr.RootFolder)...)
	}
	if c.Letterboxd.MinRating < 0 || c.Letterboxd.MinRating > 5 {
		problems = append(problems, "letterboxd.min_rating must be between 0 and 5")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func requireArr(name, url, apiKey string, profile int64, root string) []string {
	var problems []string
	if url == "" {
		problems = append(problems, name+".url is required when "+name+" is enabled")
	}
	if apiKey == "" {
		problems = append(problems, name+".api_key is required when "+name+" is enabled")
	}
	if profile <= 0 {
		problems = append(problems, name+".quality_profile is required when "+name+" is enabled")
	}
	if root == "" {
		problems = append(problems, name+".root_folder is required when "+name+" is enabled")
	}
	return problems
}

// HasPlex returns true if a Plex token or RSS feed is configured
func (c *Config) HasPlex() bool {
	return c.Plex.Token != "" || c.Plex.RSSID != ""
}

// HasLetterboxd returns true if any Letterboxd feed is configured
func (c *Config) HasLetterboxd() bool {
	return len(c.Letterboxd.Usernames) > 0 && (c.Letterboxd.RSS || c.Letterboxd.Watchlist)
}

// PlexInterval is the follow-mode interval for Plex
func (c *Config) PlexInterval() time.Duration {
	return time.Duration(c.Plex.SyncInterval) * time.Second
}

// LetterboxdInterval is the follow-mode interval for Letterboxd
func (c *Config) LetterboxdInterval() time.Duration {
	return time.Duration(c.Letterboxd.SyncInterval) * time.Second
}

// CacheMaxAge is the metadata cache TTL
func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.Sync.CacheMaxAgeDays) * 24 * time.Hour
}

// Masked returns a copy with credentials hidden, for display
func (c *Config) Masked() Config {
	masked := *c
	masked.Plex.Token = mask(c.Plex.Token)
	masked.Radarr.APIKey = mask(c.Radarr.APIKey)
	masked.Sonarr.APIKey = mask(c.Sonarr.APIKey)
	masked.TMDB.APIKey = mask(c.TMDB.APIKey)
	return masked
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// SaveToken persists the Plex token and client identifier to the config file
func SaveToken(token, clientID string) error {
	viper.Set("plex.token", token)
	viper.Set("plex.client_identifier", clientID)

	configFile := ConfigFileUsed()
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Settings returns the effective configuration keyed like config.yaml, with
// credentials masked
func (c *Config) Settings() map[string]any {
	m := c.Masked()

	hooks := make(map[string]any, len(m.Hooks))
	for event, configs := range m.Hooks {
		list := make([]map[string]string, 0, len(configs))
		for _, hc := range configs {
			entry := map[string]string{"type": hc.Type}
			if hc.Command != "" {
				entry["command"] = hc.Command
			}
			if hc.URL != "" {
				entry["url"] = hc.URL
			}
			list = append(list, entry)
		}
		hooks[event] = list
	}

	return map[string]any{
		"plex": map[string]any{
			"token":             m.Plex.Token,
			"rss_id":            m.Plex.RSSID,
			"client_identifier": m.Plex.ClientIdentifier,
			"sync_interval":     m.Plex.SyncInterval,
		},
		"radarr": map[string]any{
			"enabled":         m.Radarr.Enabled,
			"url":             m.Radarr.URL,
			"api_key":         m.Radarr.APIKey,
			"quality_profile": m.Radarr.QualityProfile,
			"root_folder":     m.Radarr.RootFolder,
			"monitored":       m.Radarr.Monitored,
			"search_on_add":   m.Radarr.SearchOnAdd,
			"tags":            m.Radarr.Tags,
		},
		"sonarr": map[string]any{
			"enabled":         m.Sonarr.Enabled,
			"url":             m.Sonarr.URL,
			"api_key":         m.Sonarr.APIKey,
			"quality_profile": m.Sonarr.QualityProfile,
			"root_folder":     m.Sonarr.RootFolder,
			"series_type":     m.Sonarr.SeriesType,
			"season_folder":   m.Sonarr.SeasonFolder,
			"monitor_all":     m.Sonarr.MonitorAll,
			"search_on_add":   m.Sonarr.SearchOnAdd,
			"tags":            m.Sonarr.Tags,
		},
		"letterboxd": map[string]any{
			"usernames":     m.Letterboxd.Usernames,
			"rss":           m.Letterboxd.RSS,
			"watchlist":     m.Letterboxd.Watchlist,
			"min_rating":    m.Letterboxd.MinRating,
			"sync_interval": m.Letterboxd.SyncInterval,
		},
		"tmdb": map[string]any{
			"api_key": m.TMDB.APIKey,
		},
		"sync": map[string]any{
			"dry_run":            m.Sync.DryRun,
			"database":           m.Sync.Database,
			"log_level":          m.Sync.LogLevel,
			"log_file":           m.Sync.LogFile,
			"cache_max_age_days": m.Sync.CacheMaxAgeDays,
		},
		"hooks": hooks,
	}
}
