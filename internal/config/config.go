// Package config loads recipescout settings from built-in defaults, a TOML
// file, the environment and command-line overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/pelletier/go-toml/v2"

	"github.com/csheth/recipescout/internal/edamam"
	"github.com/csheth/recipescout/internal/favorites/backend"
	"github.com/csheth/recipescout/internal/scroll"
)

// Favorites modes. All but ModeRemote are repositories opened in process.
const (
	ModeMemory = backend.KindMemory
	ModeFile   = backend.KindFile
	ModeRedis  = backend.KindRedis
	ModeSQL    = backend.KindSQL
	ModeS3     = backend.KindS3
	ModeRemote = "remote"
)

type Config struct {
	Search    Search    `toml:"search"`
	Favorites Favorites `toml:"favorites"`
	Server    Server    `toml:"server"`
	Telemetry Telemetry `toml:"telemetry"`
	Log       Log       `toml:"log"`
}

type Search struct {
	URL             string   `toml:"url" env:"RECIPESCOUT_SEARCH_URL"`
	AutocompleteURL string   `toml:"autocomplete_url" env:"RECIPESCOUT_AUTOCOMPLETE_URL"`
	AppID           string   `toml:"app_id" env:"EDAMAM_APP_ID"`
	AppKey          string   `toml:"app_key" env:"EDAMAM_APP_KEY"`
	CursorParam     string   `toml:"cursor_param" env:"RECIPESCOUT_CURSOR_PARAM"`
	Timeout         Duration `toml:"timeout" env:"RECIPESCOUT_SEARCH_TIMEOUT"`
	PageThrottle    Duration `toml:"page_throttle" env:"RECIPESCOUT_PAGE_THROTTLE"`
	SuggestLimit    int      `toml:"suggest_limit" env:"RECIPESCOUT_SUGGEST_LIMIT"`
	InitialQuery    string   `toml:"initial_query" env:"RECIPESCOUT_QUERY"`
}

type Favorites struct {
	Mode      string `toml:"mode" env:"RECIPESCOUT_FAVORITES_MODE"`
	Owner     string `toml:"owner" env:"RECIPESCOUT_OWNER"`
	Path      string `toml:"path" env:"RECIPESCOUT_FAVORITES_PATH"`
	RemoteURL string `toml:"remote_url" env:"RECIPESCOUT_REMOTE_URL"`
	Token     string `toml:"token" env:"RECIPESCOUT_TOKEN"`
	RedisURL  string `toml:"redis_url" env:"RECIPESCOUT_REDIS_URL"`
	SQLDriver string `toml:"sql_driver" env:"RECIPESCOUT_SQL_DRIVER"`
	SQLDSN    string `toml:"sql_dsn" env:"RECIPESCOUT_SQL_DSN"`
	Bucket    string `toml:"bucket" env:"RECIPESCOUT_S3_BUCKET"`
	Prefix    string `toml:"prefix" env:"RECIPESCOUT_S3_PREFIX"`
	Region    string `toml:"region" env:"AWS_REGION"`
	Endpoint  string `toml:"endpoint" env:"RECIPESCOUT_S3_ENDPOINT"`
	Images    Images `toml:"images"`
}

// Images configures favorite image re-hosting. An empty bucket disables it.
type Images struct {
	Bucket     string   `toml:"bucket" env:"RECIPESCOUT_IMAGE_BUCKET"`
	Prefix     string   `toml:"prefix" env:"RECIPESCOUT_IMAGE_PREFIX"`
	CacheDir   string   `toml:"cache_dir" env:"RECIPESCOUT_IMAGE_CACHE_DIR"`
	PresignTTL Duration `toml:"presign_ttl" env:"RECIPESCOUT_PRESIGN_TTL"`
}

type Server struct {
	Addr        string   `toml:"addr" env:"RECIPESCOUT_ADDR"`
	JWTSecret   string   `toml:"jwt_secret" env:"RECIPESCOUT_JWT_SECRET"`
	TokenTTL    Duration `toml:"token_ttl" env:"RECIPESCOUT_TOKEN_TTL"`
	CORSOrigins []string `toml:"cors_origins" env:"RECIPESCOUT_CORS_ORIGINS"`
}

type Telemetry struct {
	Enabled     bool   `toml:"enabled" env:"RECIPESCOUT_OTEL_ENABLED"`
	ServiceName string `toml:"service_name" env:"OTEL_SERVICE_NAME"`
	Endpoint    string `toml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type Log struct {
	Level string `toml:"level" env:"RECIPESCOUT_LOG_LEVEL"`
	File  string `toml:"file" env:"RECIPESCOUT_LOG_FILE"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Search: Search{
			URL:             edamam.DefaultSearchURL,
			AutocompleteURL: edamam.DefaultAutocompleteURL,
			Timeout:         Duration(10 * time.Second),
			PageThrottle:    Duration(scroll.DefaultWindow),
			SuggestLimit:    10,
		},
		Favorites: Favorites{
			Mode:      ModeFile,
			Owner:     "local",
			Path:      filepath.Join(defaultDataDir(), "favorites.json"),
			SQLDriver: "sqlite",
			Prefix:    "favorites",
			Images: Images{
				Prefix:     "favorites",
				PresignTTL: Duration(15 * time.Minute),
			},
		},
		Server: Server{
			Addr:     ":8080",
			TokenTTL: Duration(30 * 24 * time.Hour),
		},
		Telemetry: Telemetry{
			ServiceName: "recipescout",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/recipescout/config.toml or the platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "recipescout", "config.toml")
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "recipescout")
}

// Load layers the TOML file at path and the environment over the defaults.
// An empty path reads DefaultPath when it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Overrides are command-line values; empty fields leave the config untouched.
type Overrides struct {
	Query         string
	FavoritesMode string
	FavoritesPath string
	RemoteURL     string
	Token         string
	Owner         string
	Addr          string
	LogLevel      string
	LogFile       string
}

func (c *Config) Apply(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Search.InitialQuery, o.Query)
	set(&c.Favorites.Mode, o.FavoritesMode)
	set(&c.Favorites.Path, o.FavoritesPath)
	set(&c.Favorites.RemoteURL, o.RemoteURL)
	set(&c.Favorites.Token, o.Token)
	set(&c.Favorites.Owner, o.Owner)
	set(&c.Server.Addr, o.Addr)
	set(&c.Log.Level, o.LogLevel)
	set(&c.Log.File, o.LogFile)
}

// ValidateClient reports every setting the terminal client cannot run without.
func (c Config) ValidateClient() error {
	var errs []error
	if c.Search.URL == "" {
		errs = append(errs, errors.New("search.url is required"))
	}
	if c.Search.PageThrottle <= 0 {
		errs = append(errs, errors.New("search.page_throttle must be positive"))
	}
	if c.Favorites.Mode == ModeRemote {
		if c.Favorites.RemoteURL == "" {
			errs = append(errs, errors.New("favorites.remote_url is required in remote mode"))
		}
		if c.Favorites.Token == "" {
			errs = append(errs, errors.New("favorites.token is required in remote mode"))
		}
	} else {
		errs = append(errs, c.Favorites.validateRepository()...)
	}
	return errors.Join(errs...)
}

// ValidateServer reports every setting recipesd cannot run without.
func (c Config) ValidateServer() error {
	var errs []error
	if c.Search.URL == "" {
		errs = append(errs, errors.New("search.url is required"))
	}
	if c.Search.AppID == "" || c.Search.AppKey == "" {
		errs = append(errs, errors.New("EDAMAM_APP_ID and EDAMAM_APP_KEY are required"))
	}
	if len(c.Server.JWTSecret) < 16 {
		errs = append(errs, errors.New("server.jwt_secret must be at least 16 bytes"))
	}
	if c.Favorites.Mode == ModeRemote {
		errs = append(errs, errors.New("favorites.mode remote is only valid for the client"))
	} else {
		errs = append(errs, c.Favorites.validateRepository()...)
	}
	return errors.Join(errs...)
}

func (f Favorites) validateRepository() []error {
	var errs []error
	switch f.Mode {
	case ModeMemory:
	case ModeFile:
		if f.Path == "" {
			errs = append(errs, errors.New("favorites.path is required in file mode"))
		}
	case ModeRedis:
		if f.RedisURL == "" {
			errs = append(errs, errors.New("favorites.redis_url is required in redis mode"))
		}
	case ModeSQL:
		if f.SQLDSN == "" {
			errs = append(errs, errors.New("favorites.sql_dsn is required in sql mode"))
		}
	case ModeS3:
		if f.Bucket == "" {
			errs = append(errs, errors.New("favorites.bucket is required in s3 mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown favorites.mode %q", f.Mode))
	}
	if f.Owner == "" {
		errs = append(errs, errors.New("favorites.owner is required"))
	}
	return errs
}

// Backend maps the favorites section onto repository options.
func (f Favorites) Backend() backend.Options {
	return backend.Options{
		Kind:      f.Mode,
		Path:      f.Path,
		RedisURL:  f.RedisURL,
		SQLDriver: f.SQLDriver,
		SQLDSN:    f.SQLDSN,
		Bucket:    f.Bucket,
		Prefix:    f.Prefix,
		Region:    f.Region,
		Endpoint:  f.Endpoint,
	}
}

// EdamamConfig maps the search section onto client options.
func (s Search) EdamamConfig() edamam.Config {
	return edamam.Config{
		SearchURL:       s.URL,
		AutocompleteURL: s.AutocompleteURL,
		AppID:           s.AppID,
		AppKey:          s.AppKey,
		CursorParam:     s.CursorParam,
		SuggestLimit:    s.SuggestLimit,
		Timeout:         s.Timeout.Std(),
	}
}

// SlogLevel parses the configured level, defaulting to info.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
