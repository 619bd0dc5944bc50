package tripsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"
	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
)

// ParquetSource scans a Parquet trip file. Remote files are read with HTTP
// range requests, so only the footer and the column chunks a scan needs are
// transferred. The file is opened on first use and scans are serialized.
type ParquetSource struct {
	location string
	logger   *slog.Logger

	mu      sync.Mutex
	file    *parquet.File
	size    int64
	closer  io.Closer
	columns map[string]column
}

// NewParquetSource returns a source for a local path or an http(s) URL.
func NewParquetSource(location string, logger *slog.Logger) *ParquetSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParquetSource{
		location: location,
		logger:   logger.With(slog.String("component", "trip_source")),
	}
}

// IsHTTPURL reports whether location should be fetched over HTTP.
func IsHTTPURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (s *ParquetSource) Location() string {
	return s.location
}

// open must be called with s.mu held.
func (s *ParquetSource) open() error {
	if s.file != nil {
		return nil
	}

	start := time.Now()
	var (
		r    io.ReaderAt
		size int64
	)
	if IsHTTPURL(s.location) {
		u, err := url.Parse(s.location)
		if err != nil {
			return fmt.Errorf("failed to parse URL: %w", err)
		}
		reader, err := ranger.NewReader(&ranger.HTTPRanger{URL: u})
		if err != nil {
			return fmt.Errorf("failed to create HTTP reader: %w", err)
		}
		length, err := reader.Length()
		if err != nil {
			return fmt.Errorf("failed to get HTTP content length: %w", err)
		}
		r, size = reader, length
	} else {
		f, err := os.Open(s.location)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		stat, err := f.Stat()
		if err != nil {
			logging.SafeCloseWithLogging(f, s.logger, "close_trip_file")
			return fmt.Errorf("failed to get file stats: %w", err)
		}
		r, size, s.closer = f, stat.Size(), f
	}

	file, err := parquet.OpenFile(r, size,
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		logging.SafeCloseWithLogging(s.closer, s.logger, "close_trip_file")
		s.closer = nil
		return fmt.Errorf("failed to open parquet file: %w", err)
	}

	columns, err := resolveColumns(file.Schema())
	if err != nil {
		logging.SafeCloseWithLogging(s.closer, s.logger, "close_trip_file")
		s.closer = nil
		return err
	}

	s.file, s.size, s.columns = file, size, columns

	logging.LogOperation(s.logger, "trip_source_opened",
		slog.String("location", s.location),
		slog.Int64("size_bytes", size),
		slog.Int("row_groups", len(file.RowGroups())),
		slog.Int64("rows", file.NumRows()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func resolveColumns(schema *parquet.Schema) (map[string]column, error) {
	columns := make(map[string]column, len(models.TripColumns))
	for _, name := range models.TripColumns {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		c := column{name: name, index: leaf.ColumnIndex, kind: leaf.Node.Type().Kind()}
		if name == models.ColPickupDatetime || name == models.ColDropoffDatetime {
			c.unit = timestampUnit(leaf.Node)
		}
		columns[name] = c
	}
	return columns, nil
}

// Info describes the file, opening it if needed.
func (s *ParquetSource) Info(ctx context.Context) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if err := s.open(); err != nil {
		return Info{}, err
	}

	info := Info{
		Location:  s.location,
		Size:      s.size,
		NumRows:   s.file.NumRows(),
		RowGroups: len(s.file.RowGroups()),
	}
	for _, path := range s.file.Schema().Columns() {
		if len(path) > 0 {
			info.Columns = append(info.Columns, path[len(path)-1])
		}
	}
	return info, nil
}

// PickupBounds answers from the row group statistics in the footer. Only row
// groups without statistics have their pickup column decoded.
func (s *ParquetSource) PickupBounds(ctx context.Context) (Bounds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return Bounds{}, err
	}

	pickup := s.columns[models.ColPickupDatetime]
	var (
		b     Bounds
		found bool
	)
	observe := func(t time.Time) {
		if !found || t.Before(b.Min) {
			b.Min = t
		}
		if !found || t.After(b.Max) {
			b.Max = t
		}
		found = true
	}

	md := s.file.Metadata()
	for i, rg := range s.file.RowGroups() {
		if err := ctx.Err(); err != nil {
			return Bounds{}, err
		}

		if lo, hi, ok := chunkBounds(md, i, pickup); ok {
			tlo, okLo, err := pickup.timeOf(lo)
			if err != nil {
				return Bounds{}, err
			}
			thi, okHi, err := pickup.timeOf(hi)
			if err != nil {
				return Bounds{}, err
			}
			if okLo && okHi {
				observe(tlo)
				observe(thi)
				continue
			}
		}

		values, err := readColumn(rg, pickup)
		if err != nil {
			return Bounds{}, err
		}
		for _, v := range values {
			t, ok, err := pickup.timeOf(v)
			if err != nil {
				return Bounds{}, err
			}
			if ok {
				observe(t)
			}
		}
	}

	if !found {
		return Bounds{}, ErrEmptySource
	}
	return b, nil
}

// Scan returns every record matching p. Row groups whose statistics rule out
// a match are skipped without reading their data, and in the remaining groups
// the other columns are only fetched when some pickup timestamp qualifies.
func (s *ParquetSource) Scan(ctx context.Context, p Predicate) (ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.open(); err != nil {
		return ScanResult{}, err
	}

	m := p.compile()
	var result ScanResult
	rowGroups := s.file.RowGroups()
	result.Stats.RowGroups = len(rowGroups)

	for i, rg := range rowGroups {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, err
		}

		may, err := s.rowGroupMayMatch(i, m)
		if err != nil {
			return ScanResult{}, err
		}
		if !may {
			result.Stats.RowGroupsPruned++
			continue
		}

		records, decoded, err := s.scanRowGroup(rg, m)
		if err != nil {
			return ScanResult{}, err
		}
		result.Stats.RowsDecoded += decoded
		if records == nil {
			result.Stats.RowGroupsNoPickup++
			continue
		}
		result.Records = append(result.Records, records...)
	}

	result.Stats.RowsMatched = len(result.Records)
	result.Stats.Duration = time.Since(start)
	return result, nil
}

func (s *ParquetSource) rowGroupMayMatch(rowGroup int, m matcher) (bool, error) {
	if len(m.PaymentCodes) == 0 {
		return false, nil
	}

	md := s.file.Metadata()
	pickup := s.columns[models.ColPickupDatetime]
	if lo, hi, ok := chunkBounds(md, rowGroup, pickup); ok {
		tlo, okLo, err := pickup.timeOf(lo)
		if err != nil {
			return false, err
		}
		thi, okHi, err := pickup.timeOf(hi)
		if err != nil {
			return false, err
		}
		if okLo && okHi && !m.mayContainPickup(tlo, thi) {
			return false, nil
		}
	}

	floatChecks := []struct {
		name string
		may  func(lo, hi float64) bool
	}{
		{models.ColTripDistance, mayContainDistance},
		{models.ColFareAmount, mayContainFare},
	}
	for _, fc := range floatChecks {
		c := s.columns[fc.name]
		lo, hi, ok := chunkBounds(md, rowGroup, c)
		if !ok {
			continue
		}
		flo, okLo, err := c.floatOf(lo)
		if err != nil {
			return false, err
		}
		fhi, okHi, err := c.floatOf(hi)
		if err != nil {
			return false, err
		}
		if okLo && okHi && !fc.may(flo, fhi) {
			return false, nil
		}
	}

	intChecks := []struct {
		name string
		may  func(lo, hi int64) bool
	}{
		{models.ColPaymentType, m.mayContainPayment},
		{models.ColPULocationID, m.mayContainLocation},
	}
	for _, ic := range intChecks {
		c := s.columns[ic.name]
		lo, hi, ok := chunkBounds(md, rowGroup, c)
		if !ok {
			continue
		}
		ilo, okLo, err := c.intOf(lo)
		if err != nil {
			return false, err
		}
		ihi, okHi, err := c.intOf(hi)
		if err != nil {
			return false, err
		}
		if okLo && okHi && !ic.may(ilo, ihi) {
			return false, nil
		}
	}

	return true, nil
}

// scanRowGroup returns nil records when no pickup timestamp in the group
// qualifies; in that case only the pickup column was read.
func (s *ParquetSource) scanRowGroup(rg parquet.RowGroup, m matcher) ([]models.TripRecord, int64, error) {
	pickupCol := s.columns[models.ColPickupDatetime]
	pickupValues, err := readColumn(rg, pickupCol)
	if err != nil {
		return nil, 0, err
	}

	n := len(pickupValues)
	pickups := make([]time.Time, n)
	keep := make([]bool, n)
	survivors := 0
	for i, v := range pickupValues {
		t, ok, err := pickupCol.timeOf(v)
		if err != nil {
			return nil, int64(n), err
		}
		if ok && m.matchesPickup(t) {
			pickups[i] = t
			keep[i] = true
			survivors++
		}
	}
	if survivors == 0 {
		return nil, int64(n), nil
	}

	rest := make(map[string][]parquet.Value, len(models.TripColumns)-1)
	for _, name := range models.TripColumns {
		if name == models.ColPickupDatetime {
			continue
		}
		values, err := readColumn(rg, s.columns[name])
		if err != nil {
			return nil, int64(n), err
		}
		rest[name] = values
	}

	records := make([]models.TripRecord, 0, survivors)
	for i := 0; i < n; i++ {
		if !keep[i] {
			continue
		}
		rec, ok, err := s.buildRecord(pickups[i], rest, i)
		if err != nil {
			return nil, int64(n), err
		}
		if ok && m.matches(rec) {
			records = append(records, rec)
		}
	}
	return records, int64(n), nil
}

// buildRecord assembles row i. Rows with a null dropoff, distance or fare can
// never match and report false. Null location ids and amounts decode as zero.
func (s *ParquetSource) buildRecord(pickup time.Time, rest map[string][]parquet.Value, i int) (models.TripRecord, bool, error) {
	rec := models.TripRecord{PickupTime: pickup}

	dropoff, ok, err := s.columns[models.ColDropoffDatetime].timeOf(rest[models.ColDropoffDatetime][i])
	if err != nil || !ok {
		return rec, false, err
	}
	rec.DropoffTime = dropoff

	floats := []struct {
		name     string
		dst      *float64
		required bool
	}{
		{models.ColTripDistance, &rec.TripDistance, true},
		{models.ColFareAmount, &rec.FareAmount, true},
		{models.ColTipAmount, &rec.TipAmount, false},
		{models.ColTotalAmount, &rec.TotalAmount, false},
	}
	for _, f := range floats {
		v, ok, err := s.columns[f.name].floatOf(rest[f.name][i])
		if err != nil {
			return rec, false, err
		}
		if !ok && f.required {
			return rec, false, nil
		}
		*f.dst = v
	}

	pu, _, err := s.columns[models.ColPULocationID].intOf(rest[models.ColPULocationID][i])
	if err != nil {
		return rec, false, err
	}
	do, _, err := s.columns[models.ColDOLocationID].intOf(rest[models.ColDOLocationID][i])
	if err != nil {
		return rec, false, err
	}
	rec.PULocationID, rec.DOLocationID = int32(pu), int32(do)

	code, ok, err := s.columns[models.ColPaymentType].intOf(rest[models.ColPaymentType][i])
	if err != nil {
		return rec, false, err
	}
	if ok {
		rec.PaymentType = &code
	}
	return rec, true, nil
}

// Close releases the local file handle, if any. The source can be reopened.
func (s *ParquetSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.closer != nil {
		err = s.closer.Close()
	}
	s.file, s.closer, s.columns = nil, nil, nil
	return err
}
