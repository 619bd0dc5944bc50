// Package dashboard turns a filtered set of derived trips into the chart
// tables the dashboard renders, and exports them.
package dashboard

import (
	"math"
	"sort"

	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripdata"
)

const (
	TopZoneLimit     = 10
	DistanceBins     = 40
	DistanceQuantile = 0.99
)

// Build computes every chart table for rows. An empty row set yields an
// empty dashboard carrying the user-facing message, together with
// tripdata.ErrEmptyResult.
func Build(spec models.FilterSpec, rows models.DerivedRowSet) (models.Dashboard, error) {
	d := models.Dashboard{Filter: spec.Normalize()}
	if rows.Empty() {
		d.Empty = true
		d.Message = tripdata.EmptyResultMessage
		return d, tripdata.ErrEmptyResult
	}

	metrics, _ := KeyMetrics(rows)
	d.Metrics = &metrics
	d.TopPickupZones, _ = TopPickupZones(rows, TopZoneLimit)
	d.AverageFareByHour, _ = AverageFareByHour(rows)
	hist, _ := DistanceHistogram(rows, DistanceBins)
	d.DistanceHistogram = &hist
	d.PaymentBreakdown, _ = PaymentBreakdown(rows)
	d.DayHourHeatmap, _ = DayHourHeatmap(rows)
	return d, nil
}

func KeyMetrics(rows models.DerivedRowSet) (models.KeyMetrics, error) {
	if rows.Empty() {
		return models.KeyMetrics{}, tripdata.ErrEmptyResult
	}
	var fare, revenue, distance, duration float64
	for _, r := range rows {
		fare += r.FareAmount
		revenue += r.TotalAmount
		distance += r.TripDistance
		duration += r.TripDurationMinutes
	}
	n := float64(len(rows))
	return models.KeyMetrics{
		TotalTrips:      len(rows),
		AverageFare:     fare / n,
		TotalRevenue:    revenue,
		AverageDistance: distance / n,
		AverageDuration: duration / n,
	}, nil
}

// TopPickupZones counts trips per pickup zone, largest first, ties broken by
// name. Trips without a zone are not counted.
func TopPickupZones(rows models.DerivedRowSet, limit int) ([]models.ZoneCount, error) {
	if rows.Empty() {
		return nil, tripdata.ErrEmptyResult
	}
	counts := make(map[string]int)
	for _, r := range rows {
		if r.PickupZone != nil {
			counts[*r.PickupZone]++
		}
	}

	out := make([]models.ZoneCount, 0, len(counts))
	for zone, n := range counts {
		out = append(out, models.ZoneCount{Zone: zone, Trips: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trips != out[j].Trips {
			return out[i].Trips > out[j].Trips
		}
		return out[i].Zone < out[j].Zone
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AverageFareByHour is the mean fare per pickup hour, for the hours present.
func AverageFareByHour(rows models.DerivedRowSet) ([]models.HourValue, error) {
	if rows.Empty() {
		return nil, tripdata.ErrEmptyResult
	}
	var sums [24]float64
	var counts [24]int
	for _, r := range rows {
		sums[r.PickupHour] += r.FareAmount
		counts[r.PickupHour]++
	}

	var out []models.HourValue
	for h := 0; h < 24; h++ {
		if counts[h] > 0 {
			out = append(out, models.HourValue{Hour: h, Value: sums[h] / float64(counts[h])})
		}
	}
	return out, nil
}

// DistanceHistogram bins the trip distances that do not exceed the 99th
// percentile into equal width bins spanning the kept range. The last bin
// includes its upper edge.
func DistanceHistogram(rows models.DerivedRowSet, bins int) (models.DistanceHistogram, error) {
	if rows.Empty() {
		return models.DistanceHistogram{}, tripdata.ErrEmptyResult
	}
	if bins < 1 {
		bins = 1
	}

	distances := make([]float64, len(rows))
	for i, r := range rows {
		distances[i] = r.TripDistance
	}
	sort.Float64s(distances)

	limit := Quantile(distances, DistanceQuantile)
	kept := distances[:sort.Search(len(distances), func(i int) bool { return distances[i] > limit })]
	lo, hi := kept[0], kept[len(kept)-1]

	if hi == lo {
		return models.DistanceHistogram{
			TrimmedAt: limit,
			Bins:      []models.HistogramBin{{Lower: lo, Upper: hi, Count: len(kept)}},
		}, nil
	}

	width := (hi - lo) / float64(bins)
	out := make([]models.HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, d := range kept {
		i := int((d - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return models.DistanceHistogram{TrimmedAt: limit, Bins: out}, nil
}

// Quantile returns the q-th quantile of sorted values with linear
// interpolation between the closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	i := int(math.Floor(pos))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// PaymentBreakdown counts trips per payment label, largest first.
func PaymentBreakdown(rows models.DerivedRowSet) ([]models.LabelCount, error) {
	if rows.Empty() {
		return nil, tripdata.ErrEmptyResult
	}
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.PaymentLabel]++
	}

	out := make([]models.LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.LabelCount{Label: label, Trips: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trips != out[j].Trips {
			return out[i].Trips > out[j].Trips
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// DayHourHeatmap counts trips per weekday and hour. The grid spans all seven
// weekdays for every observed hour, with zero counts where no trip fell.
// Cells are ordered Monday first, then by hour.
func DayHourHeatmap(rows models.DerivedRowSet) ([]models.HeatmapCell, error) {
	if rows.Empty() {
		return nil, tripdata.ErrEmptyResult
	}
	type cell struct {
		day  models.Weekday
		hour int
	}
	counts := make(map[cell]int)
	observed := make(map[int]bool)
	for _, r := range rows {
		counts[cell{r.PickupDayOfWeek, r.PickupHour}]++
		observed[r.PickupHour] = true
	}

	hours := make([]int, 0, len(observed))
	for h := range observed {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	days := models.Weekdays()
	out := make([]models.HeatmapCell, 0, len(days)*len(hours))
	for _, day := range days {
		for _, hour := range hours {
			out = append(out, models.HeatmapCell{DayOfWeek: day, Hour: hour, Trips: counts[cell{day, hour}]})
		}
	}
	return out, nil
}
