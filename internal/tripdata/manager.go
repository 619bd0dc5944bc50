package tripdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripsource"
	"taxidash.nyctlc.dev/zonedb"
)

// Manager wires the zone directory, the date range prober, the retriever and
// the result cache together, and owns their resources.
type Manager struct {
	Zones     *ZoneDirectory
	Prober    *DateRangeProber
	Retriever *Retriever
	Cache     *ResultCache

	source tripsource.Source
	logger *slog.Logger

	cron         *cron.Cron
	refreshMu    sync.Mutex
	lastRefresh  time.Time
	shutdownOnce sync.Once
}

// InitManager builds the pipeline described by cfg and loads the zone table.
// A zone table that cannot be loaded is fatal.
func InitManager(ctx context.Context, cfg appconf.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := zonedb.NewClient(zonedb.NewConfig(cfg.ZoneDBPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to create zone database client: %w", err)
	}

	source := tripsource.NewParquetSource(cfg.TripURL, logger)
	zones := NewZoneDirectory(db, cfg.ZoneURL, logger)

	retry := DefaultRetryPolicy()
	retry.Attempts = cfg.RetryAttempts

	m := NewManager(source, zones, NewStore(cfg.CacheSize, cfg.CacheTTL), retry, logger)

	if _, err := m.Zones.Load(ctx); err != nil {
		m.Shutdown()
		return nil, err
	}

	if cfg.RefreshSchedule != "" {
		if err := m.ScheduleRefresh(cfg.RefreshSchedule); err != nil {
			m.Shutdown()
			return nil, err
		}
	}

	return m, nil
}

// NewManager composes a manager from already built parts.
func NewManager(source tripsource.Source, zones *ZoneDirectory, store Store, retry RetryPolicy, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		Zones:     zones,
		Prober:    NewDateRangeProber(source, logger),
		Retriever: NewRetriever(source, zones, retry, logger),
		source:    source,
		logger:    logger.With(slog.String("component", "trip_manager")),
	}
	m.Cache = NewResultCache(store, m.compute, logger)
	return m
}

func (m *Manager) compute(ctx context.Context, spec models.FilterSpec) (models.DerivedRowSet, error) {
	records, err := m.Retriever.Retrieve(ctx, spec)
	if err != nil {
		return nil, err
	}
	zones, err := m.Zones.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Derive(records, zones), nil
}

// Filtered returns the derived rows for spec, from the cache when possible.
func (m *Manager) Filtered(ctx context.Context, spec models.FilterSpec) (models.DerivedRowSet, error) {
	return m.Cache.GetOrCompute(ctx, spec)
}

// FilterOptions lists the values the dashboard's filter controls may take.
func (m *Manager) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	bounds, err := m.Prober.Bounds(ctx)
	if err != nil {
		return models.FilterOptions{}, err
	}
	names, err := m.Zones.Names(ctx)
	if err != nil {
		return models.FilterOptions{}, err
	}
	return models.FilterOptions{
		MinPickup:     bounds.Min,
		MaxPickup:     bounds.Max,
		MinDate:       bounds.Min.Format(time.DateOnly),
		MaxDate:       bounds.Max.Format(time.DateOnly),
		PaymentLabels: models.PaymentLabels(),
		ZoneNames:     names,
	}, nil
}

// SourceInfo describes the trip file.
func (m *Manager) SourceInfo(ctx context.Context) (tripsource.Info, error) {
	info, err := m.source.Info(ctx)
	if err != nil {
		return tripsource.Info{}, fmt.Errorf("%w: %w", ErrQueryExecution, err)
	}
	return info, nil
}

// StoredZones reports how many zones the zone database holds.
func (m *Manager) StoredZones(ctx context.Context) (int, error) {
	return m.Zones.db.Queries.ZoneCount(ctx)
}

// ZoneTableCounts reports the row counts of the zone database.
func (m *Manager) ZoneTableCounts(ctx context.Context) (map[string]int, error) {
	return m.Zones.db.TableCounts(ctx)
}

// Refresh drops the zone table, the pickup bounds and every cached result.
// They are reloaded on next use.
func (m *Manager) Refresh() {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.Zones.Invalidate()
	m.Prober.Invalidate()
	m.Cache.Purge()
	m.lastRefresh = time.Now()
	logging.LogOperation(m.logger, "reference_data_invalidated")
}

func (m *Manager) LastRefresh() time.Time {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.lastRefresh
}

// ScheduleRefresh runs Refresh on a cron schedule, for example "0 0 4 * * *"
// or "@every 6h". The zone table is reloaded right after each refresh so
// failures surface in the logs rather than on the next request.
func (m *Manager) ScheduleRefresh(spec string) error {
	c := cron.New()
	err := c.AddFunc(spec, func() {
		m.Refresh()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := m.Zones.Load(ctx); err != nil {
			logging.LogError(m.logger, "scheduled zone reload failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	m.cron = c
	logging.LogOperation(m.logger, "refresh_scheduled", slog.String("schedule", spec))
	return nil
}

// Shutdown stops the refresh schedule and releases the trip file and the
// zone database.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		if m.cron != nil {
			m.cron.Stop()
		}
		logging.SafeCloseWithLogging(m.source, m.logger, "close_trip_source")
		logging.SafeCloseWithLogging(m.Zones.db, m.logger, "close_zone_db")
	})
}
