package tripdata

import (
	"time"

	"taxidash.nyctlc.dev/internal/models"
)

// Derive enriches every record with the dashboard's grouping columns. It
// never drops a row: the output has the same length and order as rows.
func Derive(rows []models.TripRecord, zones *models.ZoneTable) models.DerivedRowSet {
	out := make(models.DerivedRowSet, len(rows))
	for i, rec := range rows {
		out[i] = DeriveRow(rec, zones)
	}
	return out
}

func DeriveRow(rec models.TripRecord, zones *models.ZoneTable) models.DerivedRow {
	minutes := durationMinutes(rec)
	return models.DerivedRow{
		TripRecord:          rec,
		TripDurationMinutes: minutes,
		TripSpeedMPH:        speedMPH(rec.TripDistance, minutes),
		PickupHour:          pickupHour(rec),
		PickupDayOfWeek:     pickupDayOfWeek(rec),
		PickupDate:          pickupDate(rec),
		PickupZone:          pickupZone(rec, zones),
		PaymentLabel:        models.PaymentLabel(rec.PaymentType),
	}
}

// durationMinutes is not clamped.
func durationMinutes(rec models.TripRecord) float64 {
	return rec.DropoffTime.Sub(rec.PickupTime).Seconds() / 60
}

func pickupHour(rec models.TripRecord) int {
	return rec.PickupTime.Hour()
}

func pickupDayOfWeek(rec models.TripRecord) models.Weekday {
	return models.WeekdayOf(rec.PickupTime)
}

func pickupDate(rec models.TripRecord) string {
	return rec.PickupTime.Format(time.DateOnly)
}

// pickupZone is nil when the location id has no named zone.
func pickupZone(rec models.TripRecord, zones *models.ZoneTable) *string {
	name, ok := zones.Name(rec.PULocationID)
	if !ok {
		return nil
	}
	return &name
}

// speedMPH is nil for non-positive durations.
func speedMPH(miles, minutes float64) *float64 {
	if minutes <= 0 {
		return nil
	}
	mph := miles / (minutes / 60)
	return &mph
}
