package tripdata

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripsource"
	"taxidash.nyctlc.dev/zonedb"
)

const zoneCSV = `"LocationID","Borough","Zone","service_zone"
4,"Manhattan","Alphabet City","Yellow Zone"
132,"Queens","JFK Airport","Airports"
138,"Queens","LaGuardia Airport","Airports"
161,"Manhattan","Midtown Center","Yellow Zone"
237,"Manhattan","Upper East Side South","Yellow Zone"
264,"Unknown","N/A","N/A"
`

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

func code(c int64) *int64 { return &c }

func record(pickup time.Time, minutes int, location int32, payment *int64) models.TripRecord {
	return models.TripRecord{
		PickupTime:   pickup,
		DropoffTime:  pickup.Add(time.Duration(minutes) * time.Minute),
		PULocationID: location,
		DOLocationID: 161,
		TripDistance: 3,
		FareAmount:   18,
		TipAmount:    4,
		TotalAmount:  26.5,
		PaymentType:  payment,
	}
}

// scenarioRecord is the JFK trip of the worked example.
func scenarioRecord() models.TripRecord {
	return models.TripRecord{
		PickupTime:   at(5, 5, 10),
		DropoffTime:  at(5, 5, 40),
		PULocationID: 132,
		DOLocationID: 230,
		TripDistance: 12.0,
		FareAmount:   45.00,
		TipAmount:    9.0,
		TotalAmount:  60.75,
		PaymentType:  code(1),
	}
}

func writeZoneCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxi_zone_lookup.csv")
	require.NoError(t, os.WriteFile(path, []byte(zoneCSV), 0o600))
	return path
}

func newZoneDirectory(t *testing.T, source string) *ZoneDirectory {
	t.Helper()
	db, err := zonedb.NewClient(zonedb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewZoneDirectory(db, source, nil)
}

func testZoneTable() *models.ZoneTable {
	return models.NewZoneTable([]models.Zone{
		{LocationID: 4, Name: "Alphabet City"},
		{LocationID: 132, Name: "JFK Airport"},
		{LocationID: 161, Name: "Midtown Center"},
	})
}

// fakeSource filters an in-memory slice with the real predicate and can be
// told to fail its first scans.
type fakeSource struct {
	mu          sync.Mutex
	records     []models.TripRecord
	bounds      tripsource.Bounds
	boundsErr   error
	boundsCalls int
	scans       int
	failures    int
	scanErr     error
	predicates  []tripsource.Predicate
	block       chan struct{}
}

func (f *fakeSource) PickupBounds(ctx context.Context) (tripsource.Bounds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundsCalls++
	if f.boundsErr != nil {
		return tripsource.Bounds{}, f.boundsErr
	}
	return f.bounds, nil
}

func (f *fakeSource) Scan(ctx context.Context, p tripsource.Predicate) (tripsource.ScanResult, error) {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	f.predicates = append(f.predicates, p)
	if err := ctx.Err(); err != nil {
		return tripsource.ScanResult{}, err
	}
	if f.failures > 0 {
		f.failures--
		return tripsource.ScanResult{}, f.scanErr
	}

	var out []models.TripRecord
	for _, r := range f.records {
		if p.Matches(r) {
			out = append(out, r)
		}
	}
	return tripsource.ScanResult{Records: out, Stats: tripsource.ScanStats{RowGroups: 1, RowsMatched: len(out)}}, nil
}

func (f *fakeSource) Info(ctx context.Context) (tripsource.Info, error) {
	return tripsource.Info{Location: "fake", NumRows: int64(len(f.records)), RowGroups: 1}, nil
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

// staticResolver resolves names from a fixed table.
type staticResolver map[string][]int32

func (s staticResolver) Resolve(ctx context.Context, names []string) ([]int32, error) {
	var ids []int32
	for _, n := range names {
		ids = append(ids, s[n]...)
	}
	return ids, nil
}

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}
