package tripsource

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"taxidash.nyctlc.dev/internal/models"
)

// Predicate is the row filter of one retrieval. All conditions are combined
// with AND. Trips with a null payment type never match, and an empty
// PaymentCodes matches nothing. A nil LocationIDs leaves the pickup zone
// unconstrained.
type Predicate struct {
	Start        time.Time
	End          time.Time
	HourMin      int
	HourMax      int
	PaymentCodes []int64
	LocationIDs  []int32
}

// NewPredicate returns a predicate with sorted, de-duplicated code and id lists.
func NewPredicate(start, end time.Time, hourMin, hourMax int, paymentCodes []int64, locationIDs []int32) Predicate {
	p := Predicate{
		Start:        start.UTC(),
		End:          end.UTC(),
		HourMin:      hourMin,
		HourMax:      hourMax,
		PaymentCodes: uniqueSorted(paymentCodes),
	}
	if locationIDs != nil {
		p.LocationIDs = uniqueSorted(locationIDs)
	}
	return p
}

// Matches reports whether the record satisfies every condition.
func (p Predicate) Matches(rec models.TripRecord) bool {
	return p.compile().matches(rec)
}

// SQL renders the predicate as the equivalent query over the source file.
func (p Predicate) SQL(location string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\nFROM read_parquet('%s')\n", strings.Join(models.TripColumns, ", "), strings.ReplaceAll(location, "'", "''"))
	fmt.Fprintf(&b, "WHERE %s >= TIMESTAMP '%s'\n", models.ColPickupDatetime, p.Start.Format(time.DateTime))
	fmt.Fprintf(&b, "  AND %s < TIMESTAMP '%s'\n", models.ColPickupDatetime, p.End.Format(time.DateTime))
	fmt.Fprintf(&b, "  AND EXTRACT(hour FROM %s) BETWEEN %d AND %d\n", models.ColPickupDatetime, p.HourMin, p.HourMax)
	fmt.Fprintf(&b, "  AND %s IN (%s)\n", models.ColPaymentType, joinInts(p.PaymentCodes))
	fmt.Fprintf(&b, "  AND %s > 0\n", models.ColTripDistance)
	fmt.Fprintf(&b, "  AND %s > %g AND %s <= %g\n", models.ColFareAmount, models.MinFareExclusive, models.ColFareAmount, models.MaxFareInclusive)
	fmt.Fprintf(&b, "  AND %s > %s", models.ColDropoffDatetime, models.ColPickupDatetime)
	if p.LocationIDs != nil {
		fmt.Fprintf(&b, "\n  AND %s IN (%s)", models.ColPULocationID, joinInts(p.LocationIDs))
	}
	return b.String()
}

// matcher is a Predicate with its lists turned into sets for per-row checks.
type matcher struct {
	Predicate
	payments  map[int64]struct{}
	locations map[int32]struct{}
}

func (p Predicate) compile() matcher {
	m := matcher{Predicate: p, payments: make(map[int64]struct{}, len(p.PaymentCodes))}
	for _, c := range p.PaymentCodes {
		m.payments[c] = struct{}{}
	}
	if p.LocationIDs != nil {
		m.locations = make(map[int32]struct{}, len(p.LocationIDs))
		for _, id := range p.LocationIDs {
			m.locations[id] = struct{}{}
		}
	}
	return m
}

// matchesPickup checks the conditions that only need the pickup timestamp.
func (m matcher) matchesPickup(pickup time.Time) bool {
	if pickup.Before(m.Start) || !pickup.Before(m.End) {
		return false
	}
	h := pickup.Hour()
	return h >= m.HourMin && h <= m.HourMax
}

func (m matcher) matches(rec models.TripRecord) bool {
	if !m.matchesPickup(rec.PickupTime) || !rec.Valid() {
		return false
	}
	if rec.PaymentType == nil {
		return false
	}
	if _, ok := m.payments[*rec.PaymentType]; !ok {
		return false
	}
	if m.locations != nil {
		if _, ok := m.locations[rec.PULocationID]; !ok {
			return false
		}
	}
	return true
}

// The mayContain helpers decide from row group statistics whether any row of
// the group can satisfy a condition. They err on the side of true.

func (m matcher) mayContainPickup(lo, hi time.Time) bool {
	if hi.Before(m.Start) || !lo.Before(m.End) {
		return false
	}
	// Within a single calendar day the hours are bounded too.
	if lo.Truncate(24*time.Hour).Equal(hi.Truncate(24*time.Hour)) {
		return lo.Hour() <= m.HourMax && hi.Hour() >= m.HourMin
	}
	return true
}

func mayContainDistance(_, hi float64) bool {
	return hi > 0
}

func mayContainFare(lo, hi float64) bool {
	return hi > models.MinFareExclusive && lo <= models.MaxFareInclusive
}

func (m matcher) mayContainPayment(lo, hi int64) bool {
	for _, c := range m.PaymentCodes {
		if c >= lo && c <= hi {
			return true
		}
	}
	return false
}

func (m matcher) mayContainLocation(lo, hi int64) bool {
	if m.LocationIDs == nil {
		return true
	}
	for _, id := range m.LocationIDs {
		if int64(id) >= lo && int64(id) <= hi {
			return true
		}
	}
	return false
}

type integer interface {
	~int32 | ~int64
}

func uniqueSorted[T integer](values []T) []T {
	out := make([]T, 0, len(values))
	seen := make(map[T]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinInts[T integer](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
