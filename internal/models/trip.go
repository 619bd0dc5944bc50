package models

import "time"

// Source column names of the trip dataset.
const (
	ColPickupDatetime  = "tpep_pickup_datetime"
	ColDropoffDatetime = "tpep_dropoff_datetime"
	ColPULocationID    = "PULocationID"
	ColDOLocationID    = "DOLocationID"
	ColTripDistance    = "trip_distance"
	ColFareAmount      = "fare_amount"
	ColTipAmount       = "tip_amount"
	ColTotalAmount     = "total_amount"
	ColPaymentType     = "payment_type"
)

// Derived column names.
const (
	ColTripDurationMinutes = "trip_duration_minutes"
	ColTripSpeedMPH        = "trip_speed_mph"
	ColPickupHour          = "pickup_hour"
	ColPickupDayOfWeek     = "pickup_day_of_week"
	ColPickupDate          = "pickup_date"
	ColPickupZone          = "pickup_zone"
	ColPaymentLabel        = "payment_label"
)

// TripColumns lists the source columns fetched for every retrieval.
var TripColumns = []string{
	ColPickupDatetime,
	ColDropoffDatetime,
	ColPULocationID,
	ColDOLocationID,
	ColTripDistance,
	ColFareAmount,
	ColTipAmount,
	ColTotalAmount,
	ColPaymentType,
}

// DerivedColumns lists the columns added by derivation, in output order.
var DerivedColumns = []string{
	ColTripDurationMinutes,
	ColTripSpeedMPH,
	ColPickupHour,
	ColPickupDayOfWeek,
	ColPickupDate,
	ColPickupZone,
	ColPaymentLabel,
}

// Fare bounds applied to every retrieval.
const (
	MinFareExclusive = 0.0
	MaxFareInclusive = 500.0
)

// TripRecord is one yellow taxi trip. Timestamps are wall-clock values kept
// in UTC; the source carries no zone information.
type TripRecord struct {
	PickupTime   time.Time `json:"tpep_pickup_datetime"`
	DropoffTime  time.Time `json:"tpep_dropoff_datetime"`
	PULocationID int32     `json:"PULocationID"`
	DOLocationID int32     `json:"DOLocationID"`
	TripDistance float64   `json:"trip_distance"`
	FareAmount   float64   `json:"fare_amount"`
	TipAmount    float64   `json:"tip_amount"`
	TotalAmount  float64   `json:"total_amount"`
	PaymentType  *int64    `json:"payment_type"`
}

// Valid reports whether the record passes the dataset's quality rules:
// positive distance, a fare in (0, 500] and a dropoff after the pickup.
func (t TripRecord) Valid() bool {
	return t.TripDistance > 0 &&
		t.FareAmount > MinFareExclusive &&
		t.FareAmount <= MaxFareInclusive &&
		t.DropoffTime.After(t.PickupTime)
}

// DerivedRow is a TripRecord enriched with the columns the dashboard groups by.
type DerivedRow struct {
	TripRecord
	TripDurationMinutes float64  `json:"trip_duration_minutes"`
	TripSpeedMPH        *float64 `json:"trip_speed_mph"`
	PickupHour          int      `json:"pickup_hour"`
	PickupDayOfWeek     Weekday  `json:"pickup_day_of_week"`
	PickupDate          string   `json:"pickup_date"`
	PickupZone          *string  `json:"pickup_zone"`
	PaymentLabel        string   `json:"payment_label"`
}

// DerivedRowSet is the result of one filter specification.
type DerivedRowSet []DerivedRow

func (s DerivedRowSet) Empty() bool {
	return len(s) == 0
}
