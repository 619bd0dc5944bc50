package appconf

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config as it appears in a YAML file. Durations are
// written as strings ("5m", "1h30m").
type fileConfig struct {
	Port            int      `yaml:"port"`
	Env             string   `yaml:"env"`
	ApiKeys         []string `yaml:"apiKeys"`
	RateLimit       *int     `yaml:"rateLimit"`
	TripURL         string   `yaml:"tripURL"`
	ZoneURL         string   `yaml:"zoneURL"`
	ZoneDBPath      string   `yaml:"zoneDBPath"`
	CacheSize       *int     `yaml:"cacheSize"`
	CacheTTL        string   `yaml:"cacheTTL"`
	RetryAttempts   int      `yaml:"retryAttempts"`
	RefreshSchedule string   `yaml:"refreshSchedule"`
	Verbose         *bool    `yaml:"verbose"`
}

// LoadFile layers the YAML file at path over cfg. Keys named in explicit
// (flag names set on the command line) keep the value already in cfg.
func LoadFile(cfg Config, path string, explicit map[string]bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	set := func(flagName string) bool { return !explicit[flagName] }

	if fc.Port != 0 && set("port") {
		cfg.Port = fc.Port
	}
	if fc.Env != "" && set("env") {
		cfg.Env = EnvFlagToEnvironment(fc.Env)
	}
	if len(fc.ApiKeys) > 0 && set("api-keys") {
		cfg.ApiKeys = fc.ApiKeys
	}
	if fc.RateLimit != nil && set("rate-limit") {
		cfg.RateLimit = *fc.RateLimit
	}
	if fc.TripURL != "" && set("trip-url") {
		cfg.TripURL = fc.TripURL
	}
	if fc.ZoneURL != "" && set("zone-url") {
		cfg.ZoneURL = fc.ZoneURL
	}
	if fc.ZoneDBPath != "" && set("zone-db") {
		cfg.ZoneDBPath = fc.ZoneDBPath
	}
	if fc.CacheSize != nil && set("cache-size") {
		cfg.CacheSize = *fc.CacheSize
	}
	if fc.CacheTTL != "" && set("cache-ttl") {
		ttl, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return cfg, fmt.Errorf("invalid cacheTTL %q: %w", fc.CacheTTL, err)
		}
		cfg.CacheTTL = ttl
	}
	if fc.RetryAttempts != 0 && set("retry-attempts") {
		cfg.RetryAttempts = fc.RetryAttempts
	}
	if fc.RefreshSchedule != "" && set("refresh-schedule") {
		cfg.RefreshSchedule = fc.RefreshSchedule
	}
	if fc.Verbose != nil && set("verbose") {
		cfg.Verbose = *fc.Verbose
	}

	return cfg, nil
}

// Validate checks the configuration with the struct tags on Config.
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Env == Test && cfg.ZoneDBPath != ":memory:" {
		return fmt.Errorf("invalid configuration: test environment must use an in-memory zone database")
	}
	return nil
}
