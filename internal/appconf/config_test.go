package appconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestEnvFlagToEnvironment(t *testing.T) {
	tests := []struct {
		flag     string
		expected Environment
	}{
		{"development", Development},
		{"test", Test},
		{"TEST", Test},
		{"production", Production},
		{"prod", Production},
		{"staging", Development},
		{"", Development},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvFlagToEnvironment(tt.flag))
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, DefaultTripURL, cfg.TripURL)
	assert.Equal(t, 0, cfg.CacheSize, "cache is unbounded unless configured")
}

func TestLoadFile(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
port: 8080
env: production
apiKeys: [alpha, beta]
tripURL: /data/trips.parquet
cacheSize: 64
cacheTTL: 10m
retryAttempts: 5
refreshSchedule: "0 0 4 * * *"
`)
		cfg, err := LoadFile(Default(), path, nil)
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, Production, cfg.Env)
		assert.Equal(t, []string{"alpha", "beta"}, cfg.ApiKeys)
		assert.Equal(t, "/data/trips.parquet", cfg.TripURL)
		assert.Equal(t, DefaultZoneURL, cfg.ZoneURL, "unset keys keep their defaults")
		assert.Equal(t, 64, cfg.CacheSize)
		assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
		assert.Equal(t, 5, cfg.RetryAttempts)
		assert.Equal(t, "0 0 4 * * *", cfg.RefreshSchedule)
	})

	t.Run("explicit flags win over the file", func(t *testing.T) {
		path := writeConfigFile(t, "port: 8080\ncacheSize: 64\n")
		base := Default()
		base.Port = 9999

		cfg, err := LoadFile(base, path, map[string]bool{"port": true})
		require.NoError(t, err)

		assert.Equal(t, 9999, cfg.Port)
		assert.Equal(t, 64, cfg.CacheSize)
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		path := writeConfigFile(t, "cacheTTL: forever\n")
		_, err := LoadFile(Default(), path, nil)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(Default(), filepath.Join(t.TempDir(), "nope.yml"), nil)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("rejects zero retry attempts", func(t *testing.T) {
		cfg := Default()
		cfg.RetryAttempts = 0
		assert.Error(t, Validate(cfg))
	})

	t.Run("rejects negative cache size", func(t *testing.T) {
		cfg := Default()
		cfg.CacheSize = -1
		assert.Error(t, Validate(cfg))
	})

	t.Run("test environment requires in-memory zone db", func(t *testing.T) {
		cfg := Default()
		cfg.Env = Test
		cfg.ZoneDBPath = "/tmp/zones.sqlite"
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "in-memory")
	})
}
