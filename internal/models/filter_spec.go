package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// FilterSpec is the complete set of user-selected constraints that determines
// one retrieval. It is compared by value: set fields are kept sorted and
// de-duplicated so two specs built from the same selections share a Key.
type FilterSpec struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	HourMin       int       `json:"hourMin"`
	HourMax       int       `json:"hourMax"`
	PaymentLabels []string  `json:"paymentLabels"`
	ZoneNames     []string  `json:"zoneNames"`
}

// NewFilterSpec builds a normalized FilterSpec. The input slices are copied.
func NewFilterSpec(start, end time.Time, hourMin, hourMax int, paymentLabels, zoneNames []string) FilterSpec {
	return FilterSpec{
		Start:         start.UTC(),
		End:           end.UTC(),
		HourMin:       hourMin,
		HourMax:       hourMax,
		PaymentLabels: sortedUnique(paymentLabels),
		ZoneNames:     sortedUnique(zoneNames),
	}
}

// Normalize returns a copy with times in UTC and set fields sorted and unique.
func (f FilterSpec) Normalize() FilterSpec {
	return NewFilterSpec(f.Start, f.End, f.HourMin, f.HourMax, f.PaymentLabels, f.ZoneNames)
}

// Key is the canonical cache key of the filter.
func (f FilterSpec) Key() string {
	n := f.Normalize()
	return fmt.Sprintf("start=%s|end=%s|hours=%d-%d|payments=%q|zones=%q",
		n.Start.Format(time.RFC3339Nano),
		n.End.Format(time.RFC3339Nano),
		n.HourMin, n.HourMax,
		n.PaymentLabels,
		n.ZoneNames,
	)
}

func (f FilterSpec) Equal(other FilterSpec) bool {
	return f.Key() == other.Key()
}

// AllZones reports whether the filter leaves the pickup zone unconstrained.
func (f FilterSpec) AllZones() bool {
	return len(f.ZoneNames) == 0
}

// Validate checks the hour range and the time window.
func (f FilterSpec) Validate() error {
	var errs []error
	if f.HourMin < 0 || f.HourMin > 23 {
		errs = append(errs, fmt.Errorf("hourMin %d outside [0, 23]", f.HourMin))
	}
	if f.HourMax < 0 || f.HourMax > 23 {
		errs = append(errs, fmt.Errorf("hourMax %d outside [0, 23]", f.HourMax))
	}
	if f.HourMin > f.HourMax {
		errs = append(errs, fmt.Errorf("hourMin %d greater than hourMax %d", f.HourMin, f.HourMax))
	}
	if !f.End.After(f.Start) {
		errs = append(errs, errors.New("end must be after start"))
	}
	return errors.Join(errs...)
}

func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
