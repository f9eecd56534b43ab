package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/handiism/libro-downloader/internal/audio"
	"github.com/handiism/libro-downloader/internal/cookie"
	"github.com/handiism/libro-downloader/internal/http"
	"github.com/handiism/libro-downloader/internal/model"
)

// EnvPrefix is the prefix of every environment variable override,
// e.g. LIBRODL_DOWNLOAD_OUTPUT_DIR.
const EnvPrefix = "LIBRODL"

// Settings holds all configuration options.
type Settings struct {
	Library  LibraryConfig  `mapstructure:"library"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Cookie   CookieConfig   `mapstructure:"cookie"`
	Download DownloadConfig `mapstructure:"download"`
	Finish   FinishConfig   `mapstructure:"finish"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LibraryConfig locates the storefront.
type LibraryConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ExportPath string `mapstructure:"export_path"`
}

// HTTPConfig holds request headers and timeouts.
type HTTPConfig struct {
	UserAgent             string        `mapstructure:"user_agent"`
	Referer               string        `mapstructure:"referer"`
	Accept                string        `mapstructure:"accept"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout"`
}

// CookieConfig selects where session cookies come from.
type CookieConfig struct {
	Domain   string   `mapstructure:"domain"`
	Browsers []string `mapstructure:"browsers"`
}

// DownloadConfig controls what is downloaded and where.
type DownloadConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Format    string `mapstructure:"format"` // m4b, mp3, or empty to prompt
	DryRun    bool   `mapstructure:"dry_run"`
}

// FinishConfig controls the optional steps after extraction.
type FinishConfig struct {
	ModifyTags      bool   `mapstructure:"tags"`
	CreatePlaylist  bool   `mapstructure:"playlist"`
	PlaylistFormat  string `mapstructure:"playlist_format"` // m3u, pls
	M3UExtended     bool   `mapstructure:"m3u_extended"`
	SaveCoverArt    bool   `mapstructure:"cover_art"`
	CoverArtMaxSize int    `mapstructure:"cover_art_max_size"`
}

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Library: LibraryConfig{
			BaseURL:    "https://libro.fm",
			ExportPath: "/user/library/export.csv",
		},
		HTTP: HTTPConfig{
			UserAgent:             "Mozilla/5.0 (X11; Linux x86_64; rv:146.0) Gecko/20100101 Firefox/146.0",
			Referer:               "https://libro.fm/user/library",
			Accept:                "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			RequestTimeout:        60 * time.Second,
			DialTimeout:           30 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		},
		Cookie: CookieConfig{
			Domain:   "libro.fm",
			Browsers: append([]string(nil), cookie.DefaultBrowsers...),
		},
		Download: DownloadConfig{
			OutputDir: "library_out",
		},
		Finish: FinishConfig{
			PlaylistFormat:  "m3u",
			M3UExtended:     true,
			CoverArtMaxSize: 1000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}

// Loader reads Settings from defaults, an optional YAML file, LIBRODL_*
// environment variables and bound command-line flags, lowest to highest
// precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with every default registered.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultSettings())
	return &Loader{v: v}
}

// BindFlag makes a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %q", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the configuration. An empty configPath searches ./config.yaml,
// $HOME/.config/libro-dl/config.yaml and /etc/libro-dl/config.yaml; a
// missing file is not an error unless configPath names it explicitly.
func (l *Loader) Load(configPath string) (*Settings, error) {
	if configPath != "" {
		l.v.SetConfigFile(expandPath(configPath))
	} else {
		l.v.SetConfigName("config")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME/.config/libro-dl")
		l.v.AddConfigPath("/etc/libro-dl")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := l.v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	settings.Download.OutputDir = expandPath(settings.Download.OutputDir)
	if p := settings.Logging.OutputPath; p != "stdout" && p != "stderr" {
		settings.Logging.OutputPath = expandPath(p)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return settings, nil
}

// ConfigFileUsed returns the config file read by Load, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads settings from configPath plus the environment.
func Load(configPath string) (*Settings, error) {
	return NewLoader().Load(configPath)
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, s)
	v.Set("http.request_timeout", s.HTTP.RequestTimeout.String())
	v.Set("http.dial_timeout", s.HTTP.DialTimeout.String())
	v.Set("http.response_header_timeout", s.HTTP.ResponseHeaderTimeout.String())

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the settings for values the pipeline cannot work with.
func (s *Settings) Validate() error {
	u, err := url.Parse(s.Library.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid library base URL %q", s.Library.BaseURL)
	}
	if s.Download.OutputDir == "" {
		return fmt.Errorf("output directory not configured")
	}
	if _, err := s.Format(); err != nil {
		return err
	}
	if s.HTTP.RequestTimeout < 0 || s.HTTP.DialTimeout < 0 || s.HTTP.ResponseHeaderTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if s.Cookie.Domain == "" {
		return fmt.Errorf("cookie domain not configured")
	}
	if _, err := audio.ParsePlaylistFormat(s.Finish.PlaylistFormat); err != nil {
		return err
	}
	if s.Finish.SaveCoverArt && s.Finish.CoverArtMaxSize < 1 {
		return fmt.Errorf("cover art max size must be at least 1")
	}
	switch s.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (expected json or console)", s.Logging.Format)
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	return nil
}

// Format returns the configured download format.
func (s *Settings) Format() (model.Format, error) {
	return model.ParseFormat(s.Download.Format)
}

// ExportURL returns the absolute URL of the library export CSV.
func (s *Settings) ExportURL() string {
	return strings.TrimSuffix(s.Library.BaseURL, "/") + "/" + strings.TrimPrefix(s.Library.ExportPath, "/")
}

// ToHTTPConfig converts settings to the session client configuration.
func (s *Settings) ToHTTPConfig() http.Config {
	return http.Config{
		BaseURL:               s.Library.BaseURL,
		UserAgent:             s.HTTP.UserAgent,
		Referer:               s.HTTP.Referer,
		Accept:                s.HTTP.Accept,
		RequestTimeout:        s.HTTP.RequestTimeout,
		DialTimeout:           s.HTTP.DialTimeout,
		ResponseHeaderTimeout: s.HTTP.ResponseHeaderTimeout,
	}
}

// PlaylistFormat returns the configured playlist format.
func (s *Settings) PlaylistFormat() audio.PlaylistFormat {
	f, _ := audio.ParsePlaylistFormat(s.Finish.PlaylistFormat)
	return f
}

func setDefaults(v *viper.Viper, s *Settings) {
	v.SetDefault("library.base_url", s.Library.BaseURL)
	v.SetDefault("library.export_path", s.Library.ExportPath)

	v.SetDefault("http.user_agent", s.HTTP.UserAgent)
	v.SetDefault("http.referer", s.HTTP.Referer)
	v.SetDefault("http.accept", s.HTTP.Accept)
	v.SetDefault("http.request_timeout", s.HTTP.RequestTimeout)
	v.SetDefault("http.dial_timeout", s.HTTP.DialTimeout)
	v.SetDefault("http.response_header_timeout", s.HTTP.ResponseHeaderTimeout)

	v.SetDefault("cookie.domain", s.Cookie.Domain)
	v.SetDefault("cookie.browsers", s.Cookie.Browsers)

	v.SetDefault("download.output_dir", s.Download.OutputDir)
	v.SetDefault("download.format", s.Download.Format)
	v.SetDefault("download.dry_run", s.Download.DryRun)

	v.SetDefault("finish.tags", s.Finish.ModifyTags)
	v.SetDefault("finish.playlist", s.Finish.CreatePlaylist)
	v.SetDefault("finish.playlist_format", s.Finish.PlaylistFormat)
	v.SetDefault("finish.m3u_extended", s.Finish.M3UExtended)
	v.SetDefault("finish.cover_art", s.Finish.SaveCoverArt)
	v.SetDefault("finish.cover_art_max_size", s.Finish.CoverArtMaxSize)

	v.SetDefault("logging.level", s.Logging.Level)
	v.SetDefault("logging.format", s.Logging.Format)
	v.SetDefault("logging.output_path", s.Logging.OutputPath)
}

// expandPath expands environment variables and ~ in paths.
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return path
}
