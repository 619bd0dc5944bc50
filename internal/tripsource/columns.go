package tripsource

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

type timeUnit int

const (
	unitMicros timeUnit = iota
	unitMillis
	unitNanos
)

// column locates one projected leaf column in the file.
type column struct {
	name  string
	index int
	kind  parquet.Kind
	unit  timeUnit
}

func timestampUnit(node parquet.Node) timeUnit {
	lt := node.Type().LogicalType()
	if lt == nil || lt.Timestamp == nil {
		// pyarrow writes microseconds unless told otherwise
		return unitMicros
	}
	switch {
	case lt.Timestamp.Unit.Millis != nil:
		return unitMillis
	case lt.Timestamp.Unit.Nanos != nil:
		return unitNanos
	default:
		return unitMicros
	}
}

func (c column) timeOf(v parquet.Value) (time.Time, bool, error) {
	if v.IsNull() {
		return time.Time{}, false, nil
	}
	if v.Kind() != parquet.Int64 {
		return time.Time{}, false, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, c.name, v.Kind())
	}
	n := v.Int64()
	switch c.unit {
	case unitMillis:
		return time.UnixMilli(n).UTC(), true, nil
	case unitNanos:
		return time.Unix(0, n).UTC(), true, nil
	default:
		return time.UnixMicro(n).UTC(), true, nil
	}
}

func (c column) floatOf(v parquet.Value) (float64, bool, error) {
	if v.IsNull() {
		return 0, false, nil
	}
	switch v.Kind() {
	case parquet.Double:
		return v.Double(), true, nil
	case parquet.Float:
		return float64(v.Float()), true, nil
	case parquet.Int32:
		return float64(v.Int32()), true, nil
	case parquet.Int64:
		return float64(v.Int64()), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, c.name, v.Kind())
	}
}

func (c column) intOf(v parquet.Value) (int64, bool, error) {
	if v.IsNull() {
		return 0, false, nil
	}
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32()), true, nil
	case parquet.Int64:
		return v.Int64(), true, nil
	case parquet.Double:
		return int64(v.Double()), true, nil
	case parquet.Float:
		return int64(v.Float()), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, c.name, v.Kind())
	}
}

// readColumn decodes every value of one column chunk, nulls included, so the
// result lines up with the row group's rows.
func readColumn(rg parquet.RowGroup, c column) ([]parquet.Value, error) {
	chunk := rg.ColumnChunks()[c.index]
	pages := chunk.Pages()
	defer pages.Close() // nolint:errcheck

	values := make([]parquet.Value, 0, rg.NumRows())
	buf := make([]parquet.Value, 1024)
	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s page: %w", c.name, err)
		}

		err = readPageValues(page, buf, &values)
		parquet.Release(page)
		if err != nil {
			return nil, fmt.Errorf("decoding %s page: %w", c.name, err)
		}
	}

	if int64(len(values)) != rg.NumRows() {
		return nil, fmt.Errorf("column %s has %d values for %d rows", c.name, len(values), rg.NumRows())
	}
	return values, nil
}

func readPageValues(page parquet.Page, buf []parquet.Value, out *[]parquet.Value) error {
	r := page.Values()
	for {
		n, err := r.ReadValues(buf)
		*out = append(*out, buf[:n]...)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// chunkBounds returns the min and max statistics the writer recorded in the
// footer for column c of row group rowGroup. Statistics of kinds the filters
// never compare are ignored.
func chunkBounds(md *format.FileMetaData, rowGroup int, c column) (lo, hi parquet.Value, ok bool) {
	if rowGroup >= len(md.RowGroups) || c.index >= len(md.RowGroups[rowGroup].Columns) {
		return parquet.Value{}, parquet.Value{}, false
	}
	stats := md.RowGroups[rowGroup].Columns[c.index].MetaData.Statistics

	minBytes, maxBytes := stats.MinValue, stats.MaxValue
	if minBytes == nil || maxBytes == nil {
		minBytes, maxBytes = stats.Min, stats.Max
	}
	lo, okLo := statValue(c.kind, minBytes)
	hi, okHi := statValue(c.kind, maxBytes)
	if !okLo || !okHi {
		return parquet.Value{}, parquet.Value{}, false
	}
	return lo, hi, true
}

// statValue decodes a PLAIN encoded statistic of a fixed width numeric kind.
func statValue(kind parquet.Kind, b []byte) (parquet.Value, bool) {
	var width int
	switch kind {
	case parquet.Int32, parquet.Float:
		width = 4
	case parquet.Int64, parquet.Double:
		width = 8
	default:
		return parquet.Value{}, false
	}
	if len(b) != width {
		return parquet.Value{}, false
	}
	return kind.Value(b), true
}
