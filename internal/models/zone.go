package models

import "sort"

// Zone is one row of the taxi zone lookup table.
type Zone struct {
	LocationID  int32  `json:"locationId"`
	Borough     string `json:"borough"`
	Name        string `json:"zone"`
	ServiceZone string `json:"serviceZone"`
}

// ZoneTable is the immutable location id to zone lookup used for joins.
type ZoneTable struct {
	byID  map[int32]Zone
	names []string
}

func NewZoneTable(zones []Zone) *ZoneTable {
	table := &ZoneTable{byID: make(map[int32]Zone, len(zones))}
	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		table.byID[z.LocationID] = z
		if z.Name != "" && !seen[z.Name] {
			seen[z.Name] = true
			table.names = append(table.names, z.Name)
		}
	}
	sort.Strings(table.names)
	return table
}

// Name returns the zone name for a location id. Ids missing from the table,
// and zones without a name, report false.
func (t *ZoneTable) Name(locationID int32) (string, bool) {
	if t == nil {
		return "", false
	}
	z, ok := t.byID[locationID]
	if !ok || z.Name == "" {
		return "", false
	}
	return z.Name, true
}

// Names returns the distinct zone names in alphabetical order.
func (t *ZoneTable) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Zones returns every zone ordered by location id.
func (t *ZoneTable) Zones() []Zone {
	if t == nil {
		return nil
	}
	zones := make([]Zone, 0, len(t.byID))
	for _, z := range t.byID {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].LocationID < zones[j].LocationID })
	return zones
}

func (t *ZoneTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byID)
}
