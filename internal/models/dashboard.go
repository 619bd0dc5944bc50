package models

import "time"

// KeyMetrics are the headline numbers shown above the charts.
type KeyMetrics struct {
	TotalTrips      int     `json:"totalTrips"`
	AverageFare     float64 `json:"averageFare"`
	TotalRevenue    float64 `json:"totalRevenue"`
	AverageDistance float64 `json:"averageDistance"`
	AverageDuration float64 `json:"averageDuration"`
}

type ZoneCount struct {
	Zone  string `json:"zone"`
	Trips int    `json:"trips"`
}

type HourValue struct {
	Hour  int     `json:"hour"`
	Value float64 `json:"value"`
}

type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// DistanceHistogram holds trip distances trimmed at the 99th percentile.
type DistanceHistogram struct {
	TrimmedAt float64        `json:"trimmedAt"`
	Bins      []HistogramBin `json:"bins"`
}

type LabelCount struct {
	Label string `json:"label"`
	Trips int    `json:"trips"`
}

type HeatmapCell struct {
	DayOfWeek Weekday `json:"dayOfWeek"`
	Hour      int     `json:"hour"`
	Trips     int     `json:"trips"`
}

// Dashboard is every chart table for one filter specification.
type Dashboard struct {
	Filter            FilterSpec         `json:"filter"`
	Empty             bool               `json:"empty"`
	Message           string             `json:"message,omitempty"`
	Metrics           *KeyMetrics        `json:"metrics,omitempty"`
	TopPickupZones    []ZoneCount        `json:"topPickupZones,omitempty"`
	AverageFareByHour []HourValue        `json:"averageFareByHour,omitempty"`
	DistanceHistogram *DistanceHistogram `json:"distanceHistogram,omitempty"`
	PaymentBreakdown  []LabelCount       `json:"paymentBreakdown,omitempty"`
	DayHourHeatmap    []HeatmapCell      `json:"dayHourHeatmap,omitempty"`
}

// FilterOptions describes the values the filter controls may take.
type FilterOptions struct {
	MinPickup     time.Time `json:"minPickup"`
	MaxPickup     time.Time `json:"maxPickup"`
	MinDate       string    `json:"minDate"`
	MaxDate       string    `json:"maxDate"`
	PaymentLabels []string  `json:"paymentLabels"`
	ZoneNames     []string  `json:"zoneNames"`
}
