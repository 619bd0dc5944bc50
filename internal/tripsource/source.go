// Package tripsource reads taxi trip records out of a columnar Parquet file,
// local or remote, pushing the row filter and the column projection down to
// the file layout so only the needed bytes are fetched.
package tripsource

import (
	"context"
	"errors"
	"time"

	"taxidash.nyctlc.dev/internal/models"
)

var (
	// ErrMissingColumn is returned when the file lacks one of the trip columns.
	ErrMissingColumn = errors.New("trip source is missing a required column")
	// ErrEmptySource is returned when the file holds no pickup timestamps.
	ErrEmptySource = errors.New("trip source holds no pickup timestamps")
	// ErrUnsupportedType is returned for a column whose physical type cannot be decoded.
	ErrUnsupportedType = errors.New("unsupported column type")
)

// Source is a queryable store of trip records.
type Source interface {
	// PickupBounds returns the earliest and latest pickup timestamp.
	PickupBounds(ctx context.Context) (Bounds, error)
	// Scan returns the records matching the predicate, in file order.
	Scan(ctx context.Context, p Predicate) (ScanResult, error)
	// Info describes the underlying file.
	Info(ctx context.Context) (Info, error)
	Close() error
}

// Bounds is the pickup timestamp range of a source.
type Bounds struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// ScanStats reports how much of the source a scan touched.
type ScanStats struct {
	RowGroups         int           `json:"rowGroups"`
	RowGroupsPruned   int           `json:"rowGroupsPruned"`
	RowGroupsNoPickup int           `json:"rowGroupsNoPickup"`
	RowsDecoded       int64         `json:"rowsDecoded"`
	RowsMatched       int           `json:"rowsMatched"`
	Duration          time.Duration `json:"duration"`
}

// Skipped is the number of row groups whose non-pickup columns were never fetched.
func (s ScanStats) Skipped() int {
	return s.RowGroupsPruned + s.RowGroupsNoPickup
}

// ScanResult holds the matching records and the scan statistics.
type ScanResult struct {
	Records []models.TripRecord
	Stats   ScanStats
}

// Info describes a trip file.
type Info struct {
	Location  string   `json:"location"`
	Size      int64    `json:"size"`
	NumRows   int64    `json:"numRows"`
	RowGroups int      `json:"rowGroups"`
	Columns   []string `json:"columns"`
}
