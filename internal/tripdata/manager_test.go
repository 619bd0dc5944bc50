package tripdata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripsource"
	"taxidash.nyctlc.dev/internal/tripsource/tripsourcetest"
)

func writeTripFile(t *testing.T) string {
	t.Helper()
	free := record(at(5, 10, 0), 15, 161, code(1))
	free.FareAmount = 0

	return tripsourcetest.WriteFile(t, []models.TripRecord{
		scenarioRecord(),
		record(at(5, 9, 0), 12, 161, code(2)),
		record(at(6, 17, 45), 25, 237, code(1)),
		free,
		record(at(10, 8, 0), 10, 4, code(1)),
		record(at(12, 22, 30), 20, 138, nil),
	}, 2)
}

func newTestManager(t *testing.T) (*Manager, *fakeCountingSource) {
	t.Helper()
	src := &fakeCountingSource{Source: tripsource.NewParquetSource(writeTripFile(t), nil)}
	m := NewManager(src, newZoneDirectory(t, writeZoneCSV(t)), NewMapStore(), DefaultRetryPolicy(), nil)
	t.Cleanup(m.Shutdown)
	return m, src
}

// fakeCountingSource counts scans against a real source.
type fakeCountingSource struct {
	tripsource.Source
	scans int
}

func (s *fakeCountingSource) Scan(ctx context.Context, p tripsource.Predicate) (tripsource.ScanResult, error) {
	s.scans++
	return s.Source.Scan(ctx, p)
}

func TestManagerScenario(t *testing.T) {
	m, src := newTestManager(t)
	ctx := context.Background()

	spec := models.NewFilterSpec(at(1, 0, 0), at(8, 0, 0), 0, 23, []string{"Credit Card"}, []string{"JFK Airport"})
	rows, err := m.Filtered(ctx, spec)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, at(5, 5, 10), row.PickupTime)
	assert.Equal(t, int32(132), row.PULocationID)
	assert.InDelta(t, 30.0, row.TripDurationMinutes, 1e-9)
	require.NotNil(t, row.TripSpeedMPH)
	assert.InDelta(t, 24.0, *row.TripSpeedMPH, 1e-9)
	assert.Equal(t, 5, row.PickupHour)
	assert.Equal(t, models.Friday, row.PickupDayOfWeek)
	assert.Equal(t, "2024-01-05", row.PickupDate)
	require.NotNil(t, row.PickupZone)
	assert.Equal(t, "JFK Airport", *row.PickupZone)
	assert.Equal(t, "Credit Card", row.PaymentLabel)
	assert.InDelta(t, 60.75, row.TotalAmount, 1e-9)

	again, err := m.Filtered(ctx, models.NewFilterSpec(at(1, 0, 0), at(8, 0, 0), 0, 23, []string{"Credit Card"}, []string{"JFK Airport"}))
	require.NoError(t, err)
	assert.Equal(t, rows, again)
	assert.Equal(t, 1, src.scans, "equal specs are served from the cache")
}

func TestManagerFilters(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	t.Run("all zones", func(t *testing.T) {
		rows, err := m.Filtered(ctx, models.NewFilterSpec(at(1, 0, 0), at(8, 0, 0), 0, 23, []string{"Credit Card"}, nil))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, at(5, 5, 10), rows[0].PickupTime)
		assert.Equal(t, at(6, 17, 45), rows[1].PickupTime)
	})

	t.Run("quality rules drop the free trip", func(t *testing.T) {
		rows, err := m.Filtered(ctx, models.NewFilterSpec(at(5, 0, 0), at(6, 0, 0), 10, 10, []string{"Credit Card"}, nil))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("missing payment is never selected", func(t *testing.T) {
		rows, err := m.Filtered(ctx, models.NewFilterSpec(at(1, 0, 0), at(31, 0, 0), 0, 23, models.PaymentLabels(), []string{"LaGuardia Airport"}))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("no payment labels", func(t *testing.T) {
		rows, err := m.Filtered(ctx, models.NewFilterSpec(at(1, 0, 0), at(31, 0, 0), 0, 23, []string{}, nil))
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})
}

func TestManagerFilterOptions(t *testing.T) {
	m, _ := newTestManager(t)

	opts, err := m.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at(5, 5, 10), opts.MinPickup)
	assert.Equal(t, at(12, 22, 30), opts.MaxPickup)
	assert.Equal(t, "2024-01-05", opts.MinDate)
	assert.Equal(t, "2024-01-12", opts.MaxDate)
	assert.Equal(t, models.PaymentLabels(), opts.PaymentLabels)
	assert.Contains(t, opts.ZoneNames, "JFK Airport")
	assert.NotContains(t, opts.ZoneNames, "N/A")

	info, err := m.SourceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.NumRows)
	assert.Equal(t, 3, info.RowGroups)

	counts, err := m.ZoneTableCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, counts["zones"])
}

func TestManagerRefresh(t *testing.T) {
	m, src := newTestManager(t)
	ctx := context.Background()
	spec := models.NewFilterSpec(at(1, 0, 0), at(8, 0, 0), 0, 23, []string{"Credit Card"}, nil)

	_, err := m.Filtered(ctx, spec)
	require.NoError(t, err)
	assert.True(t, m.LastRefresh().IsZero())

	m.Refresh()
	assert.False(t, m.LastRefresh().IsZero())
	assert.Zero(t, m.Cache.Stats().Entries)
	assert.True(t, m.Zones.LoadedAt().Before(m.LastRefresh()) || m.Zones.LoadedAt().Equal(m.LastRefresh()))

	_, err = m.Filtered(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 2, src.scans)
}

func TestManagerScheduleRefresh(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Error(t, m.ScheduleRefresh("every now and then"))
	require.NoError(t, m.ScheduleRefresh("@every 1h"))
}

func TestInitManager(t *testing.T) {
	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.TripURL = writeTripFile(t)
	cfg.ZoneURL = writeZoneCSV(t)
	cfg.CacheSize = 8
	cfg.RetryAttempts = 1

	m, err := InitManager(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer m.Shutdown()

	assert.Equal(t, 1, m.Retriever.retry.Attempts)
	assert.False(t, m.Zones.LoadedAt().IsZero())
	assert.IsType(t, &LRUStore{}, m.Cache.store)

	t.Run("zone lookup unavailable", func(t *testing.T) {
		bad := cfg
		bad.ZoneURL = filepath.Join(t.TempDir(), "missing.csv")
		_, err := InitManager(context.Background(), bad, nil)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("file database in test", func(t *testing.T) {
		bad := cfg
		bad.ZoneDBPath = filepath.Join(t.TempDir(), "zones.db")
		_, err := InitManager(context.Background(), bad, nil)
		assert.Error(t, err)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		bad := cfg
		bad.RefreshSchedule = "whenever"
		_, err := InitManager(context.Background(), bad, nil)
		assert.Error(t, err)
	})
}
