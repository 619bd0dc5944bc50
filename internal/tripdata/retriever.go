package tripdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/metrics"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripsource"
)

// ZoneResolver maps zone names to pickup location ids.
type ZoneResolver interface {
	Resolve(ctx context.Context, names []string) ([]int32, error)
}

// Retriever turns a filter specification into a pushed-down scan of the trip source.
type Retriever struct {
	source tripsource.Source
	zones  ZoneResolver
	retry  RetryPolicy
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

func NewRetriever(source tripsource.Source, zones ZoneResolver, retry RetryPolicy, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &Retriever{
		source: source,
		zones:  zones,
		retry:  retry,
		logger: logger.With(slog.String("component", "retriever")),
		sleep:  sleepContext,
	}
}

// Predicate builds the scan predicate for spec. It reports false when the
// spec can match nothing: no payment label maps to a code, or zones were
// selected and none of them resolves to a location id.
func (r *Retriever) Predicate(ctx context.Context, spec models.FilterSpec) (tripsource.Predicate, bool, error) {
	spec = spec.Normalize()

	codes := models.PaymentCodes(spec.PaymentLabels)
	if len(codes) == 0 {
		return tripsource.Predicate{}, false, nil
	}

	var ids []int32
	if !spec.AllZones() {
		resolved, err := r.zones.Resolve(ctx, spec.ZoneNames)
		if err != nil {
			return tripsource.Predicate{}, false, err
		}
		if len(resolved) == 0 {
			r.logger.Warn("selected zones resolve to no location ids",
				slog.Any("zones", spec.ZoneNames))
			return tripsource.Predicate{}, false, nil
		}
		ids = resolved
	}

	return tripsource.NewPredicate(spec.Start, spec.End, spec.HourMin, spec.HourMax, codes, ids), true, nil
}

// Retrieve returns exactly the trips matching spec, in no particular order.
// Source failures are retried per the retry policy and then reported as
// ErrQueryExecution.
func (r *Retriever) Retrieve(ctx context.Context, spec models.FilterSpec) ([]models.TripRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p, ok, err := r.Predicate(ctx, spec)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.Retrievals.WithLabelValues("short_circuit").Inc()
		return []models.TripRecord{}, nil
	}

	start := time.Now()
	result, err := r.scanWithRetry(ctx, p)
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Retrievals.WithLabelValues("error").Inc()
		return nil, err
	}

	logging.LogQuery(r.logger, p.SQL(r.location()), len(result.Records), result.Stats.Skipped(), time.Since(start),
		slog.Int("row_groups", result.Stats.RowGroups),
		slog.Int64("rows_decoded", result.Stats.RowsDecoded),
		slog.String("filter", spec.Key()))
	metrics.RowGroupsSkipped.Add(float64(result.Stats.Skipped()))
	metrics.RowsReturned.Observe(float64(len(result.Records)))

	if len(result.Records) == 0 {
		metrics.Retrievals.WithLabelValues("empty").Inc()
		return []models.TripRecord{}, nil
	}
	metrics.Retrievals.WithLabelValues("ok").Inc()
	return result.Records, nil
}

func (r *Retriever) scanWithRetry(ctx context.Context, p tripsource.Predicate) (tripsource.ScanResult, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		if attempt > 1 {
			wait := r.retry.backoff(attempt - 1)
			r.logger.Warn("retrying trip query",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()))
			metrics.RetrievalRetries.Inc()
			if err := r.sleep(ctx, wait); err != nil {
				return tripsource.ScanResult{}, err
			}
		}

		result, err := r.source.Scan(ctx, p)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return tripsource.ScanResult{}, err
		}
		lastErr = err
		if errors.Is(err, tripsource.ErrMissingColumn) {
			// a missing column is permanent
			break
		}
	}

	logging.LogError(r.logger, "trip query failed", lastErr, slog.Int("attempts", r.retry.Attempts))
	return tripsource.ScanResult{}, fmt.Errorf("%w: %w", ErrQueryExecution, lastErr)
}

func (r *Retriever) location() string {
	if ps, ok := r.source.(interface{ Location() string }); ok {
		return ps.Location()
	}
	return "trips.parquet"
}
