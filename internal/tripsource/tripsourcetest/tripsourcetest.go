// Package tripsourcetest writes small yellow taxi Parquet files for tests.
package tripsourcetest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"taxidash.nyctlc.dev/internal/models"
)

// Trip has the column layout of the published trip files.
type Trip struct {
	VendorID     int32     `parquet:"VendorID"`
	Pickup       time.Time `parquet:"tpep_pickup_datetime,timestamp(microsecond)"`
	Dropoff      time.Time `parquet:"tpep_dropoff_datetime,timestamp(microsecond)"`
	PULocationID int32     `parquet:"PULocationID"`
	DOLocationID int32     `parquet:"DOLocationID"`
	TripDistance float64   `parquet:"trip_distance"`
	FareAmount   float64   `parquet:"fare_amount"`
	TipAmount    float64   `parquet:"tip_amount"`
	TotalAmount  float64   `parquet:"total_amount"`
	PaymentType  *int64    `parquet:"payment_type,optional"`
}

func FromRecord(rec models.TripRecord) Trip {
	return Trip{
		VendorID:     2,
		Pickup:       rec.PickupTime,
		Dropoff:      rec.DropoffTime,
		PULocationID: rec.PULocationID,
		DOLocationID: rec.DOLocationID,
		TripDistance: rec.TripDistance,
		FareAmount:   rec.FareAmount,
		TipAmount:    rec.TipAmount,
		TotalAmount:  rec.TotalAmount,
		PaymentType:  rec.PaymentType,
	}
}

// WriteFile writes records to a Parquet file in a temporary directory and
// returns its path.
func WriteFile(t testing.TB, records []models.TripRecord, rowsPerGroup int64) string {
	t.Helper()
	rows := make([]Trip, len(records))
	for i, rec := range records {
		rows[i] = FromRecord(rec)
	}
	path := filepath.Join(t.TempDir(), "yellow_tripdata_2024-01.parquet")
	if err := parquet.WriteFile(path, rows, parquet.MaxRowsPerRowGroup(rowsPerGroup)); err != nil {
		t.Fatalf("writing trip fixture: %v", err)
	}
	return path
}

// Week returns a small January 2024 week of trips. The first trip is the
// Friday morning JFK ride used across the tests: 12 miles in 30 minutes,
// fare 45.00, total 60.75, paid by credit card.
func Week() []models.TripRecord {
	at := func(day, hour, minute int) time.Time {
		return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
	}
	code := func(c int64) *int64 { return &c }
	trip := func(pickup time.Time, minutes int, location int32, miles, fare float64, payment *int64) models.TripRecord {
		return models.TripRecord{
			PickupTime:   pickup,
			DropoffTime:  pickup.Add(time.Duration(minutes) * time.Minute),
			PULocationID: location,
			DOLocationID: 161,
			TripDistance: miles,
			FareAmount:   fare,
			TipAmount:    2,
			TotalAmount:  fare + 5,
			PaymentType:  payment,
		}
	}

	jfk := trip(at(5, 5, 10), 30, 132, 12, 45, code(1))
	jfk.DOLocationID = 230
	jfk.TipAmount = 9
	jfk.TotalAmount = 60.75

	free := trip(at(5, 10, 0), 15, 161, 2, 0, code(1))

	return []models.TripRecord{
		jfk,
		trip(at(5, 9, 0), 12, 161, 1.5, 10, code(2)),
		trip(at(6, 17, 45), 25, 237, 4, 20, code(1)),
		free,
		trip(at(7, 23, 5), 8, 4, 1, 8, nil),
		trip(at(3, 8, 0), 10, 138, 9, 30, code(1)),
	}
}
