package tripsource

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
	"taxidash.nyctlc.dev/internal/models"
)

// fixtureTrip mirrors the layout of the published yellow taxi files.
type fixtureTrip struct {
	VendorID     int32     `parquet:"VendorID"`
	Pickup       time.Time `parquet:"tpep_pickup_datetime,timestamp(microsecond)"`
	Dropoff      time.Time `parquet:"tpep_dropoff_datetime,timestamp(microsecond)"`
	PULocationID *int32    `parquet:"PULocationID,optional"`
	DOLocationID int32     `parquet:"DOLocationID"`
	TripDistance float64   `parquet:"trip_distance"`
	FareAmount   float64   `parquet:"fare_amount"`
	TipAmount    float64   `parquet:"tip_amount"`
	TotalAmount  float64   `parquet:"total_amount"`
	PaymentType  *int64    `parquet:"payment_type,optional"`
}

func (f fixtureTrip) record() models.TripRecord {
	rec := models.TripRecord{
		PickupTime:   f.Pickup,
		DropoffTime:  f.Dropoff,
		DOLocationID: f.DOLocationID,
		TripDistance: f.TripDistance,
		FareAmount:   f.FareAmount,
		TipAmount:    f.TipAmount,
		TotalAmount:  f.TotalAmount,
	}
	if f.PULocationID != nil {
		rec.PULocationID = *f.PULocationID
	}
	if f.PaymentType != nil {
		code := *f.PaymentType
		rec.PaymentType = &code
	}
	return rec
}

func loc(id int32) *int32 { return &id }

func pay(code int64) *int64 { return &code }

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

// trip builds a valid fixture row starting at the given pickup.
func trip(pickup time.Time, minutes int, location int32, code int64) fixtureTrip {
	return fixtureTrip{
		VendorID:     2,
		Pickup:       pickup,
		Dropoff:      pickup.Add(time.Duration(minutes) * time.Minute),
		PULocationID: loc(location),
		DOLocationID: 161,
		TripDistance: 2.5,
		FareAmount:   15,
		TipAmount:    3,
		TotalAmount:  21.5,
		PaymentType:  pay(code),
	}
}

func writeFixture[T any](t *testing.T, rows []T, rowsPerGroup int64, options ...parquet.WriterOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.parquet")
	options = append([]parquet.WriterOption{parquet.MaxRowsPerRowGroup(rowsPerGroup)}, options...)
	require.NoError(t, parquet.WriteFile(path, rows, options...))
	return path
}
