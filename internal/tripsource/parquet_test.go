package tripsource

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taxidash.nyctlc.dev/internal/models"
)

// dailyFixture has four trips per day for January 1-5, one row group per day.
func dailyFixture() []fixtureTrip {
	var rows []fixtureTrip
	for day := 1; day <= 5; day++ {
		rows = append(rows,
			trip(at(day, 5, 10), 30, 132, 1),
			trip(at(day, 9, 0), 12, 161, 2),
			trip(at(day, 17, 45), 25, 237, 1),
			trip(at(day, 23, 5), 8, 4, 4),
		)
	}
	return rows
}

func TestPickupBounds(t *testing.T) {
	src := NewParquetSource(writeFixture(t, dailyFixture(), 4), nil)
	defer func() { _ = src.Close() }()

	b, err := src.PickupBounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at(1, 5, 10), b.Min)
	assert.Equal(t, at(5, 23, 5), b.Max)
}

func openFixture(t *testing.T, path string) (*parquet.File, map[string]column) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	info, err := f.Stat()
	require.NoError(t, err)

	file, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)
	columns, err := resolveColumns(file.Schema())
	require.NoError(t, err)
	return file, columns
}

func TestChunkBounds(t *testing.T) {
	t.Run("footer statistics", func(t *testing.T) {
		file, columns := openFixture(t, writeFixture(t, dailyFixture(), 4))
		md := file.Metadata()
		require.Len(t, md.RowGroups, 5)

		pickup := columns[models.ColPickupDatetime]
		lo, hi, ok := chunkBounds(md, 2, pickup)
		require.True(t, ok)
		tlo, _, err := pickup.timeOf(lo)
		require.NoError(t, err)
		thi, _, err := pickup.timeOf(hi)
		require.NoError(t, err)
		assert.Equal(t, at(3, 5, 10), tlo)
		assert.Equal(t, at(3, 23, 5), thi)

		location := columns[models.ColPULocationID]
		lo, hi, ok = chunkBounds(md, 0, location)
		require.True(t, ok)
		assert.Equal(t, int32(4), lo.Int32())
		assert.Equal(t, int32(237), hi.Int32())

		fare := columns[models.ColFareAmount]
		lo, hi, ok = chunkBounds(md, 4, fare)
		require.True(t, ok)
		assert.Equal(t, 15.0, lo.Double())
		assert.Equal(t, 15.0, hi.Double())
	})

	t.Run("out of range row group", func(t *testing.T) {
		file, columns := openFixture(t, writeFixture(t, dailyFixture(), 4))
		_, _, ok := chunkBounds(file.Metadata(), 5, columns[models.ColPickupDatetime])
		assert.False(t, ok)
	})

	t.Run("missing statistics", func(t *testing.T) {
		path := writeFixture(t, dailyFixture(), 4, parquet.SkipPageBounds(models.ColPickupDatetime))
		file, columns := openFixture(t, path)
		_, _, ok := chunkBounds(file.Metadata(), 0, columns[models.ColPickupDatetime])
		assert.False(t, ok)
		_, _, ok = chunkBounds(file.Metadata(), 0, columns[models.ColFareAmount])
		assert.True(t, ok)
	})
}

func TestPickupBoundsWithoutStatistics(t *testing.T) {
	path := writeFixture(t, dailyFixture(), 4, parquet.SkipPageBounds(models.ColPickupDatetime))
	src := NewParquetSource(path, nil)
	defer func() { _ = src.Close() }()

	b, err := src.PickupBounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at(1, 5, 10), b.Min)
	assert.Equal(t, at(5, 23, 5), b.Max)

	// the time window can no longer prune, so every group is decoded
	p := NewPredicate(at(3, 0, 0), at(4, 0, 0), 0, 23, []int64{1, 2, 4}, nil)
	result, err := src.Scan(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, result.Records, 4)
	assert.Zero(t, result.Stats.RowGroupsPruned)
	assert.Equal(t, int64(20), result.Stats.RowsDecoded)
}

func TestPickupBoundsEmptyFile(t *testing.T) {
	src := NewParquetSource(writeFixture(t, []fixtureTrip{}, 4), nil)
	defer func() { _ = src.Close() }()

	_, err := src.PickupBounds(context.Background())
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestScanScenario(t *testing.T) {
	src := NewParquetSource(writeFixture(t, dailyFixture(), 4), nil)
	defer func() { _ = src.Close() }()

	jfk := fixtureTrip{
		VendorID:     2,
		Pickup:       at(5, 5, 10),
		Dropoff:      at(5, 5, 40),
		PULocationID: loc(132),
		DOLocationID: 161,
		TripDistance: 2.5,
		FareAmount:   15,
		TipAmount:    3,
		TotalAmount:  21.5,
		PaymentType:  pay(1),
	}

	p := NewPredicate(at(5, 0, 0), at(6, 0, 0), 0, 23, []int64{1}, []int32{132})
	result, err := src.Scan(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, jfk.record(), result.Records[0])
}

func TestScanPushdown(t *testing.T) {
	src := NewParquetSource(writeFixture(t, dailyFixture(), 4), nil)
	defer func() { _ = src.Close() }()
	ctx := context.Background()

	t.Run("time window prunes other days", func(t *testing.T) {
		p := NewPredicate(at(3, 0, 0), at(4, 0, 0), 0, 23, []int64{1, 2, 4}, nil)
		result, err := src.Scan(ctx, p)
		require.NoError(t, err)

		assert.Len(t, result.Records, 4)
		assert.Equal(t, 5, result.Stats.RowGroups)
		assert.Equal(t, 4, result.Stats.RowGroupsPruned)
		assert.Equal(t, int64(4), result.Stats.RowsDecoded)
		for _, r := range result.Records {
			assert.Equal(t, 3, r.PickupTime.Day())
		}
	})

	t.Run("hour window outside every group", func(t *testing.T) {
		p := NewPredicate(at(1, 0, 0), at(6, 0, 0), 0, 4, []int64{1, 2, 4}, nil)
		result, err := src.Scan(ctx, p)
		require.NoError(t, err)

		assert.Empty(t, result.Records)
		assert.Equal(t, 5, result.Stats.Skipped())
	})

	t.Run("payment code outside every group", func(t *testing.T) {
		p := NewPredicate(at(1, 0, 0), at(6, 0, 0), 0, 23, []int64{6}, nil)
		result, err := src.Scan(ctx, p)
		require.NoError(t, err)

		assert.Empty(t, result.Records)
		assert.Equal(t, 5, result.Stats.RowGroupsPruned)
		assert.Zero(t, result.Stats.RowsDecoded)
	})

	t.Run("empty payment set matches nothing", func(t *testing.T) {
		p := NewPredicate(at(1, 0, 0), at(6, 0, 0), 0, 23, nil, nil)
		result, err := src.Scan(ctx, p)
		require.NoError(t, err)
		assert.Empty(t, result.Records)
		assert.Zero(t, result.Stats.RowsDecoded)
	})

	t.Run("pickup column only when no pickup qualifies", func(t *testing.T) {
		// 06:00-08:59 falls between the 05:10 and 09:00 trips of every day.
		p := NewPredicate(at(1, 0, 0), at(6, 0, 0), 6, 8, []int64{1, 2, 4}, nil)
		result, err := src.Scan(ctx, p)
		require.NoError(t, err)

		assert.Empty(t, result.Records)
		assert.Equal(t, 5, result.Stats.RowGroupsNoPickup)
	})

	t.Run("location filter", func(t *testing.T) {
		p := NewPredicate(at(1, 0, 0), at(6, 0, 0), 0, 23, []int64{1, 2, 4}, []int32{161, 4})
		result, err := src.Scan(ctx, p)
		require.NoError(t, err)

		assert.Len(t, result.Records, 10)
		for _, r := range result.Records {
			assert.Contains(t, []int32{161, 4}, r.PULocationID)
		}
	})
}

// TestScanMatchesBruteForce checks the scan against an independent filter
// over generated trips that include nulls and rows breaking the quality rules.
func TestScanMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var rows []fixtureTrip
	pickup := at(1, 0, 0)
	for i := 0; i < 600; i++ {
		pickup = pickup.Add(time.Duration(rng.Intn(40)+1) * time.Minute)
		f := trip(pickup, rng.Intn(60)-5, int32(rng.Intn(12)+1), int64(rng.Intn(8)))
		f.TripDistance = float64(rng.Intn(30)) - 2
		f.FareAmount = []float64{-5, 0, 0.01, 12.5, 45, 499.99, 500, 500.01, 800}[rng.Intn(9)]
		if rng.Intn(10) == 0 {
			f.PaymentType = nil
		}
		if rng.Intn(15) == 0 {
			f.PULocationID = nil
		}
		rows = append(rows, f)
	}

	src := NewParquetSource(writeFixture(t, rows, 37), nil)
	defer func() { _ = src.Close() }()

	predicates := []Predicate{
		NewPredicate(at(1, 0, 0), at(31, 0, 0), 0, 23, []int64{1, 2, 3, 4, 5, 6}, nil),
		NewPredicate(at(3, 0, 0), at(7, 12, 0), 0, 23, []int64{1}, nil),
		NewPredicate(at(2, 0, 0), at(9, 0, 0), 7, 9, []int64{1, 2}, nil),
		NewPredicate(at(1, 0, 0), at(31, 0, 0), 22, 23, []int64{2, 4, 6}, []int32{1, 5, 9}),
		NewPredicate(at(4, 6, 30), at(4, 18, 0), 0, 23, []int64{0, 7}, nil),
		NewPredicate(at(1, 0, 0), at(31, 0, 0), 0, 23, []int64{1, 2}, []int32{}),
	}

	for i, p := range predicates {
		result, err := src.Scan(context.Background(), p)
		require.NoError(t, err)

		var expected []models.TripRecord
		for _, f := range rows {
			if bruteForceMatch(f, p) {
				expected = append(expected, f.record())
			}
		}
		assert.Equal(t, expected, result.Records, "predicate %d", i)
		assert.Equal(t, len(expected), result.Stats.RowsMatched)
	}
}

func bruteForceMatch(f fixtureTrip, p Predicate) bool {
	if f.Pickup.Before(p.Start) || !f.Pickup.Before(p.End) {
		return false
	}
	if f.Pickup.Hour() < p.HourMin || f.Pickup.Hour() > p.HourMax {
		return false
	}
	if f.PaymentType == nil {
		return false
	}
	paid := false
	for _, c := range p.PaymentCodes {
		paid = paid || c == *f.PaymentType
	}
	if !paid {
		return false
	}
	if f.TripDistance <= 0 || f.FareAmount <= 0 || f.FareAmount > 500 || !f.Dropoff.After(f.Pickup) {
		return false
	}
	if p.LocationIDs != nil {
		var id int32
		if f.PULocationID != nil {
			id = *f.PULocationID
		}
		found := false
		for _, l := range p.LocationIDs {
			found = found || l == id
		}
		if !found {
			return false
		}
	}
	return true
}

func TestScanMissingColumn(t *testing.T) {
	type partial struct {
		Pickup time.Time `parquet:"tpep_pickup_datetime,timestamp(microsecond)"`
		Fare   float64   `parquet:"fare_amount"`
	}
	src := NewParquetSource(writeFixture(t, []partial{{Pickup: at(1, 1, 0), Fare: 10}}, 4), nil)
	defer func() { _ = src.Close() }()

	_, err := src.Scan(context.Background(), NewPredicate(at(1, 0, 0), at(2, 0, 0), 0, 23, []int64{1}, nil))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestScanMissingFile(t *testing.T) {
	src := NewParquetSource(filepath.Join(t.TempDir(), "absent.parquet"), nil)
	_, err := src.Scan(context.Background(), NewPredicate(at(1, 0, 0), at(2, 0, 0), 0, 23, []int64{1}, nil))
	assert.Error(t, err)
}

func TestScanCancelled(t *testing.T) {
	src := NewParquetSource(writeFixture(t, dailyFixture(), 4), nil)
	defer func() { _ = src.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Scan(ctx, NewPredicate(at(1, 0, 0), at(6, 0, 0), 0, 23, []int64{1}, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteSource(t *testing.T) {
	path := writeFixture(t, dailyFixture(), 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}))
	defer server.Close()

	url := server.URL + "/yellow_tripdata_2024-01.parquet"
	assert.True(t, IsHTTPURL(url))

	src := NewParquetSource(url, nil)
	defer func() { _ = src.Close() }()

	b, err := src.PickupBounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at(1, 5, 10), b.Min)

	result, err := src.Scan(context.Background(), NewPredicate(at(2, 0, 0), at(3, 0, 0), 0, 23, []int64{1}, nil))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
}

func TestInfo(t *testing.T) {
	src := NewParquetSource(writeFixture(t, dailyFixture(), 4), nil)
	defer func() { _ = src.Close() }()

	info, err := src.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), info.NumRows)
	assert.Equal(t, 5, info.RowGroups)
	assert.Contains(t, info.Columns, models.ColPaymentType)
	assert.Contains(t, info.Columns, "VendorID")
	assert.Greater(t, info.Size, int64(0))
}
