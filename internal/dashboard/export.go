package dashboard

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripdata"
)

const timestampLayout = "2006-01-02 15:04:05"

// Columns lists the exported trip columns in order.
var Columns = []string{
	"tpep_pickup_datetime",
	"tpep_dropoff_datetime",
	"PULocationID",
	"DOLocationID",
	"trip_distance",
	"fare_amount",
	"tip_amount",
	"total_amount",
	"payment_type",
	"trip_duration_minutes",
	"trip_speed_mph",
	"pickup_hour",
	"pickup_day_of_week",
	"pickup_date",
	"pickup_zone",
	"payment_label",
}

// Frame converts rows to a DataFrame with one column per entry of Columns.
// Missing values become NaN.
func Frame(rows models.DerivedRowSet) (dataframe.DataFrame, error) {
	if rows.Empty() {
		return dataframe.DataFrame{}, tripdata.ErrEmptyResult
	}

	n := len(rows)
	var (
		pickup   = make([]string, n)
		dropoff  = make([]string, n)
		puID     = make([]int, n)
		doID     = make([]int, n)
		distance = make([]float64, n)
		fare     = make([]float64, n)
		tip      = make([]float64, n)
		total    = make([]float64, n)
		payment  = make([]interface{}, n)
		duration = make([]float64, n)
		speed    = make([]interface{}, n)
		hour     = make([]int, n)
		weekday  = make([]string, n)
		date     = make([]string, n)
		zone     = make([]interface{}, n)
		label    = make([]string, n)
	)
	for i, r := range rows {
		pickup[i] = r.PickupTime.UTC().Format(timestampLayout)
		dropoff[i] = r.DropoffTime.UTC().Format(timestampLayout)
		puID[i] = int(r.PULocationID)
		doID[i] = int(r.DOLocationID)
		distance[i] = r.TripDistance
		fare[i] = r.FareAmount
		tip[i] = r.TipAmount
		total[i] = r.TotalAmount
		if r.PaymentType != nil {
			payment[i] = int(*r.PaymentType)
		}
		duration[i] = r.TripDurationMinutes
		if r.TripSpeedMPH != nil {
			speed[i] = *r.TripSpeedMPH
		}
		hour[i] = r.PickupHour
		weekday[i] = r.PickupDayOfWeek.String()
		date[i] = r.PickupDate
		if r.PickupZone != nil {
			zone[i] = *r.PickupZone
		}
		label[i] = r.PaymentLabel
	}

	df := dataframe.New(
		series.New(pickup, series.String, Columns[0]),
		series.New(dropoff, series.String, Columns[1]),
		series.New(puID, series.Int, Columns[2]),
		series.New(doID, series.Int, Columns[3]),
		series.New(distance, series.Float, Columns[4]),
		series.New(fare, series.Float, Columns[5]),
		series.New(tip, series.Float, Columns[6]),
		series.New(total, series.Float, Columns[7]),
		series.New(payment, series.Int, Columns[8]),
		series.New(duration, series.Float, Columns[9]),
		series.New(speed, series.Float, Columns[10]),
		series.New(hour, series.Int, Columns[11]),
		series.New(weekday, series.String, Columns[12]),
		series.New(date, series.String, Columns[13]),
		series.New(zone, series.String, Columns[14]),
		series.New(label, series.String, Columns[15]),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("building trip frame: %w", df.Err)
	}
	return df, nil
}

// WriteCSV writes rows as CSV with a header line.
func WriteCSV(w io.Writer, rows models.DerivedRowSet) error {
	df, err := Frame(rows)
	if err != nil {
		return err
	}
	return df.WriteCSV(w)
}

// Sheet names of the exported workbook, in order.
const (
	SheetMetrics  = "Key Metrics"
	SheetZones    = "Top Pickup Zones"
	SheetFares    = "Avg Fare by Hour"
	SheetDistance = "Trip Distance"
	SheetPayments = "Payment Types"
	SheetHeatmap  = "Day Hour Heatmap"
)

// WriteWorkbook writes one sheet per chart table of d. A failure to release
// the workbook is logged and returned when nothing else failed.
func WriteWorkbook(w io.Writer, d models.Dashboard, logger *slog.Logger) (err error) {
	if d.Empty || d.Metrics == nil {
		return tripdata.ErrEmptyResult
	}

	f := excelize.NewFile()
	defer logging.HandleDeferredError(&err, f.Close, logger, "close_workbook")

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	m := d.Metrics
	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{
			name:   SheetMetrics,
			header: []interface{}{"Metric", "Value"},
			rows: [][]interface{}{
				{"Total Trips", m.TotalTrips},
				{"Average Fare", m.AverageFare},
				{"Total Revenue", m.TotalRevenue},
				{"Avg Distance (mi)", m.AverageDistance},
				{"Avg Duration (min)", m.AverageDuration},
				{"Filter Start", d.Filter.Start.Format(time.RFC3339)},
				{"Filter End", d.Filter.End.Format(time.RFC3339)},
			},
		},
		{name: SheetZones, header: []interface{}{"Pickup Zone", "Trips"}, rows: zoneRows(d.TopPickupZones)},
		{name: SheetFares, header: []interface{}{"Pickup Hour", "Average Fare ($)"}, rows: fareRows(d.AverageFareByHour)},
		{name: SheetDistance, header: []interface{}{"Lower (mi)", "Upper (mi)", "Trips"}, rows: binRows(d.DistanceHistogram)},
		{name: SheetPayments, header: []interface{}{"Payment Type", "Trips"}, rows: labelRows(d.PaymentBreakdown)},
		{name: SheetHeatmap, header: []interface{}{"Day of Week", "Pickup Hour", "Trips"}, rows: heatmapRows(d.DayHourHeatmap)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("renaming default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", s.name, err)
		}

		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return fmt.Errorf("writing %q header: %w", s.name, err)
		}
		if err := f.SetRowStyle(s.name, 1, 1, bold); err != nil {
			return fmt.Errorf("styling %q header: %w", s.name, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("writing %q row %d: %w", s.name, r+2, err)
			}
		}
		if err := f.SetColWidth(s.name, "A", "C", 22); err != nil {
			return fmt.Errorf("sizing %q columns: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func zoneRows(zones []models.ZoneCount) [][]interface{} {
	out := make([][]interface{}, len(zones))
	for i, z := range zones {
		out[i] = []interface{}{z.Zone, z.Trips}
	}
	return out
}

func fareRows(hours []models.HourValue) [][]interface{} {
	out := make([][]interface{}, len(hours))
	for i, h := range hours {
		out[i] = []interface{}{h.Hour, h.Value}
	}
	return out
}

func binRows(h *models.DistanceHistogram) [][]interface{} {
	if h == nil {
		return nil
	}
	out := make([][]interface{}, len(h.Bins))
	for i, b := range h.Bins {
		out[i] = []interface{}{b.Lower, b.Upper, b.Count}
	}
	return out
}

func labelRows(labels []models.LabelCount) [][]interface{} {
	out := make([][]interface{}, len(labels))
	for i, l := range labels {
		out[i] = []interface{}{l.Label, l.Trips}
	}
	return out
}

func heatmapRows(cells []models.HeatmapCell) [][]interface{} {
	out := make([][]interface{}, len(cells))
	for i, c := range cells {
		out[i] = []interface{}{c.DayOfWeek.String(), c.Hour, c.Trips}
	}
	return out
}
