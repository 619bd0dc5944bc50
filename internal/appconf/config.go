package appconf

import "time"

const (
	DefaultTripURL = "https://d37ci6vzurychx.cloudfront.net/trip-data/yellow_tripdata_2024-01.parquet"
	DefaultZoneURL = "https://d37ci6vzurychx.cloudfront.net/misc/taxi_zone_lookup.csv"
)

// Config holds all the configuration settings for the Application.
// Values come from command-line flags, optionally layered over a YAML file.
type Config struct {
	Port      int         `yaml:"port" validate:"gt=0,lte=65535"`
	Env       Environment `yaml:"-"`
	ApiKeys   []string    `yaml:"apiKeys"`
	RateLimit int         `yaml:"rateLimit" validate:"gte=0"`

	TripURL    string `yaml:"tripURL" validate:"required"`
	ZoneURL    string `yaml:"zoneURL" validate:"required"`
	ZoneDBPath string `yaml:"zoneDBPath" validate:"required"`

	// CacheSize bounds the number of cached filter results. Zero keeps the
	// cache unbounded for the lifetime of the process.
	CacheSize     int           `yaml:"cacheSize" validate:"gte=0"`
	CacheTTL      time.Duration `yaml:"cacheTTL" validate:"gte=0"`
	RetryAttempts int           `yaml:"retryAttempts" validate:"gte=1,lte=10"`

	// RefreshSchedule is a cron expression (with seconds field). Empty disables
	// scheduled invalidation of the reference caches.
	RefreshSchedule string `yaml:"refreshSchedule"`

	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when no flags or file override it.
func Default() Config {
	return Config{
		Port:          4000,
		Env:           Development,
		ApiKeys:       []string{"test"},
		RateLimit:     100,
		TripURL:       DefaultTripURL,
		ZoneURL:       DefaultZoneURL,
		ZoneDBPath:    ":memory:",
		CacheSize:     0,
		RetryAttempts: 3,
	}
}

// IsTest reports whether the configuration targets the test environment.
func (c Config) IsTest() bool {
	return c.Env == Test
}
