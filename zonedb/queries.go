package zonedb

import (
	"context"
	"database/sql"
	"strings"

	"taxidash.nyctlc.dev/internal/models"
)

// Queries holds the read queries over the zones table.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// ListZones returns every stored zone ordered by location id.
func (q *Queries) ListZones(ctx context.Context) ([]models.Zone, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT location_id, borough, zone, service_zone FROM zones ORDER BY location_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var zones []models.Zone
	for rows.Next() {
		var (
			z                        models.Zone
			borough, name, serviceZn sql.NullString
		)
		if err := rows.Scan(&z.LocationID, &borough, &name, &serviceZn); err != nil {
			return nil, err
		}
		z.Borough = borough.String
		z.Name = name.String
		z.ServiceZone = serviceZn.String
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// ZoneNames returns the distinct non-null zone names in alphabetical order.
func (q *Queries) ZoneNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT DISTINCT zone FROM zones WHERE zone IS NOT NULL ORDER BY zone")
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LocationIDsForZones returns the sorted, distinct location ids whose zone
// name is one of names. Unknown names contribute nothing.
func (q *Queries) LocationIDsForZones(ctx context.Context, names []string) ([]int32, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := q.db.QueryContext(ctx,
		"SELECT DISTINCT location_id FROM zones WHERE zone IN ("+placeholders+") ORDER BY location_id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ZoneCount returns how many zones are stored.
func (q *Queries) ZoneCount(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM zones").Scan(&n)
	return n, err
}
