package tripdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/metrics"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripsource"
	"taxidash.nyctlc.dev/zonedb"
)

// ZoneDirectory loads the zone lookup into the zone database once and serves
// the resulting table until it is invalidated.
type ZoneDirectory struct {
	db     *zonedb.Client
	source string
	logger *slog.Logger

	mu       sync.Mutex
	table    *models.ZoneTable
	loadedAt time.Time
}

func NewZoneDirectory(db *zonedb.Client, source string, logger *slog.Logger) *ZoneDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneDirectory{
		db:     db,
		source: source,
		logger: logger.With(slog.String("component", "zone_directory")),
	}
}

// Load returns the zone table, fetching it on first use.
func (d *ZoneDirectory) Load(ctx context.Context) (*models.ZoneTable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.table != nil {
		return d.table, nil
	}

	start := time.Now()
	var err error
	if tripsource.IsHTTPURL(d.source) {
		_, err = d.db.DownloadAndStore(ctx, d.source)
	} else {
		_, err = d.db.ImportFromFile(ctx, d.source)
	}
	if err != nil {
		metrics.ZoneLoads.WithLabelValues("error").Inc()
		logging.LogError(d.logger, "failed to load zone lookup", err, slog.String("source", d.source))
		return nil, fmt.Errorf("%w: loading %s: %w", ErrSourceUnavailable, d.source, err)
	}

	zones, err := d.db.Queries.ListZones(ctx)
	if err != nil {
		metrics.ZoneLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: reading zones: %w", ErrSourceUnavailable, err)
	}
	if len(zones) == 0 {
		metrics.ZoneLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s holds no zones", ErrSourceUnavailable, d.source)
	}

	d.table = models.NewZoneTable(zones)
	d.loadedAt = time.Now()
	metrics.ZoneLoads.WithLabelValues("ok").Inc()
	logging.LogOperation(d.logger, "zones_loaded",
		slog.String("source", d.source),
		slog.Int("zones", d.table.Len()),
		slog.Duration("duration", time.Since(start)))

	return d.table, nil
}

// Invalidate drops the cached table so the next Load fetches it again.
func (d *ZoneDirectory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table = nil
}

// LoadedAt is when the current table was fetched, or the zero time.
func (d *ZoneDirectory) LoadedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadedAt
}

// Names returns the selectable zone names in alphabetical order.
func (d *ZoneDirectory) Names(ctx context.Context) ([]string, error) {
	table, err := d.Load(ctx)
	if err != nil {
		return nil, err
	}
	return table.Names(), nil
}

// Resolve maps zone names to their sorted location ids. Names that match no
// zone contribute nothing.
func (d *ZoneDirectory) Resolve(ctx context.Context, names []string) ([]int32, error) {
	if _, err := d.Load(ctx); err != nil {
		return nil, err
	}
	ids, err := d.db.Queries.LocationIDsForZones(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving zones: %w", ErrSourceUnavailable, err)
	}
	return ids, nil
}
