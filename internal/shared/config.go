package shared

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"clinic_reviews/internal/domain"
)

// Config is shared by cmd/reviews and cmd/api. Precedence is flag > env > default.
type Config struct {
	// pipeline
	Import string `long:"import" value-name:"PATH" description:"Read reviews from a local JSON or YAML file instead of the search API"`
	Source string `long:"source" choice:"remote" choice:"import" description:"Review source (default: import when --import is given, else remote)"`
	Merge  bool   `long:"merge" description:"Merge into the stored reviews instead of replacing them"`
	DryRun bool   `long:"dry-run" description:"Compute and preview the result without writing the snapshot"`

	// snapshot and place
	Snapshot string `long:"snapshot" env:"REVIEWS_SNAPSHOT" default:"data/reviews.json" description:"Snapshot file path"`
	PlaceID  string `long:"place-id" env:"PLACE_ID" description:"Place identifier at the search API"`
	MapsURL  string `long:"maps-url" env:"GOOGLE_MAPS_URL" description:"Public maps URL of the place (derived from --place-id when empty)"`

	// remote source
	SerpBase string        `long:"serpapi-base" env:"SERPAPI_BASE_URL" default:"https://serpapi.com" description:"Search API base URL"`
	Lang     string        `long:"lang" env:"REVIEWS_LANG" default:"en" description:"Review language"`
	MaxPages int           `long:"max-pages" env:"REVIEWS_MAX_PAGES" default:"1" description:"Result pages to fetch"`
	RPS      int           `long:"rps" env:"REVIEWS_RPS" default:"2" description:"Requests per second towards the search API"`
	Timeout  time.Duration `long:"timeout" env:"REVIEWS_TIMEOUT" default:"20s" description:"Per-request timeout"`

	// infra
	RedisAddr       string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the run lock and caches (disabled when empty)"`
	RedisPass       string        `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB         int           `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database"`
	CacheTTL        time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"0s" description:"Cache TTL; 0 disables caching"`
	LockTTL         time.Duration `long:"lock-ttl" env:"LOCK_TTL" default:"5m" description:"Run lock TTL"`
	MySQLDSN        string        `long:"mysql-dsn" env:"MYSQL_DSN" description:"Mirror saved reviews into MySQL (disabled when empty)"`
	MetricsTextfile string        `long:"metrics-textfile" env:"METRICS_TEXTFILE" description:"Write run metrics to this file"`
	HTTPAddr        string        `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"API listen address"`
	MetricsAddr     string        `long:"metrics-addr" env:"METRICS_ADDR" description:"Standalone metrics listen address (disabled when empty)"`
	AppEnv          string        `long:"app-env" env:"APP_ENV" default:"prod" description:"dev enables console logging"`
	Debug           bool          `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	// SerpAPIKey is read from the environment only.
	SerpAPIKey string `no-flag:"true"`
}

// HelpError carries the usage text when -h/--help was requested.
type HelpError struct{ Usage string }

func (e *HelpError) Error() string { return e.Usage }

func IsHelp(err error) bool {
	var he *HelpError
	return errors.As(err, &he)
}

// Load parses args (without the program name) and the environment.
// Unknown flags and stray arguments are configuration errors.
func Load(args []string) (Config, error) {
	var c Config
	parser := flags.NewParser(&c, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "reviews"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			return Config{}, &HelpError{Usage: fe.Message}
		}
		return Config{}, &domain.ConfigurationError{Reason: "invalid arguments", Err: err}
	}
	if len(rest) > 0 {
		return Config{}, &domain.ConfigurationError{Reason: fmt.Sprintf("unexpected arguments: %s", strings.Join(rest, " "))}
	}

	c.SerpAPIKey = os.Getenv("SERPAPI_API_KEY")
	if c.Source == "" {
		c.Source = string(domain.SourceRemote)
		if c.Import != "" {
			c.Source = string(domain.SourceImport)
		}
	}
	if c.MaxPages < 1 {
		return Config{}, &domain.ConfigurationError{Reason: "--max-pages must be at least 1"}
	}
	if c.CacheTTL < 0 || c.LockTTL <= 0 {
		return Config{}, &domain.ConfigurationError{Reason: "--cache-ttl must be >= 0 and --lock-ttl > 0"}
	}
	return c, nil
}

// RunConfig is the pipeline view of the parsed flags.
func (c Config) RunConfig() domain.RunConfig {
	mode := domain.ModeOverwrite
	if c.Merge {
		mode = domain.ModeMerge
	}
	return domain.RunConfig{
		Source:     domain.SourceKind(c.Source),
		ImportPath: c.Import,
		Mode:       mode,
		DryRun:     c.DryRun,
	}
}

func (c Config) Place() domain.Place {
	u := c.MapsURL
	if u == "" && c.PlaceID != "" {
		u = domain.MapsURLFor(c.PlaceID)
	}
	return domain.Place{PlaceID: c.PlaceID, GoogleMapsURL: u}
}

// RemoteCacheKey names the cached remote batch for the current fetch settings.
func (c Config) RemoteCacheKey(placeID string) string {
	return fmt.Sprintf("reviews:serpapi:%s:%s:%d", placeID, c.Lang, c.MaxPages)
}

// LockKey scopes the run lock to one snapshot file.
func (c Config) LockKey() string { return "lock:reviews:" + c.Snapshot }
