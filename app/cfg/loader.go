package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Fetch pipeline configuration
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"tootpic/1.0 (+https://github.com/Eyozy/tootpic)" description:"User agent string for outbound HTTP requests"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"8" description:"Timeout for outbound HTTP requests in seconds"`
	CacheSize      int    `long:"cache-size" env:"CACHE_SIZE" default:"100" description:"Maximum number of cached post results"`
	CacheTTL       int    `long:"cache-ttl" env:"CACHE_TTL" default:"1800" description:"Cached post result TTL in seconds"`
	CacheSweep     int    `long:"cache-sweep" env:"CACHE_SWEEP" default:"300" description:"Interval between expired cache entry sweeps in seconds"`
	DenylistFile   string `long:"denylist-file" env:"DENYLIST_FILE" description:"Optional YAML file with additional denied domains"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		UserAgent:      raw.UserAgent,
		RequestTimeout: raw.RequestTimeout,
		CacheSize:      raw.CacheSize,
		CacheTTL:       raw.CacheTTL,
		CacheSweep:     raw.CacheSweep,
		DenylistFile:   raw.DenylistFile,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
