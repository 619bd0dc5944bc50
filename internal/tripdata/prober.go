package tripdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/tripsource"
)

// DateRangeProber finds the pickup timestamp range of the trip source from
// file metadata and keeps it for the life of the process.
type DateRangeProber struct {
	source tripsource.Source
	logger *slog.Logger

	mu     sync.Mutex
	bounds *tripsource.Bounds
}

func NewDateRangeProber(source tripsource.Source, logger *slog.Logger) *DateRangeProber {
	if logger == nil {
		logger = slog.Default()
	}
	return &DateRangeProber{
		source: source,
		logger: logger.With(slog.String("component", "date_range_prober")),
	}
}

// Bounds returns the earliest and latest pickup timestamp. Failures are not cached.
func (p *DateRangeProber) Bounds(ctx context.Context) (tripsource.Bounds, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bounds != nil {
		return *p.bounds, nil
	}

	start := time.Now()
	b, err := p.source.PickupBounds(ctx)
	if err != nil {
		logging.LogError(p.logger, "failed to probe pickup bounds", err)
		return tripsource.Bounds{}, fmt.Errorf("%w: probing pickup bounds: %w", ErrQueryExecution, err)
	}

	p.bounds = &b
	logging.LogOperation(p.logger, "pickup_bounds_probed",
		slog.Time("min", b.Min),
		slog.Time("max", b.Max),
		slog.Duration("duration", time.Since(start)))
	return b, nil
}

func (p *DateRangeProber) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bounds = nil
}
