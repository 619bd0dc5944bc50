package zonedb

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
)

const maxLookupBytes = 4 << 20

var requiredHeaders = []string{"LocationID", "Borough", "Zone", "service_zone"}

// Cell values the published lookup uses for "no value".
var missingMarkers = map[string]bool{
	"":    true,
	"N/A": true,
	"NA":  true,
	"n/a": true,
	"NaN": true,
	"nan": true,
}

// ImportCSV parses a zone lookup CSV and replaces the stored zones with it.
// It returns the number of zones stored.
func (c *Client) ImportCSV(ctx context.Context, r io.Reader, source string) (int, error) {
	start := time.Now()
	defer func() {
		c.importRuntime = time.Since(start)
		if c.config.verbose {
			logging.LogOperation(c.logger, "zone_import_finished",
				slog.String("source", source),
				slog.Duration("duration", c.importRuntime))
		}
	}()

	b, err := readAllLimited(r, maxLookupBytes)
	if err != nil {
		return 0, err
	}

	zones, err := ParseZonesCSV(bytes.NewReader(b))
	if err != nil {
		return 0, err
	}

	if err := c.storeZones(ctx, zones, source); err != nil {
		return 0, err
	}
	return len(zones), nil
}

// ParseZonesCSV reads rows of LocationID, Borough, Zone, service_zone.
// Columns are located by header name, so extra or reordered columns are fine.
func ParseZonesCSV(r io.Reader) ([]models.Zone, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading zone lookup header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return nil, fmt.Errorf("zone lookup is missing column %q", h)
		}
	}

	var zones []models.Zone
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading zone lookup line %d: %w", line, err)
		}

		idText := strings.TrimSpace(record[index["LocationID"]])
		if missingMarkers[idText] {
			continue
		}
		id, err := strconv.ParseInt(idText, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("zone lookup line %d: invalid LocationID %q", line, idText)
		}

		zones = append(zones, models.Zone{
			LocationID:  int32(id),
			Borough:     cell(record, index["Borough"]),
			Name:        cell(record, index["Zone"]),
			ServiceZone: cell(record, index["service_zone"]),
		})
	}

	return zones, nil
}

func cell(record []string, i int) string {
	v := strings.TrimSpace(record[i])
	if missingMarkers[v] {
		return ""
	}
	return v
}

func (c *Client) storeZones(ctx context.Context, zones []models.Zone, source string) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting zone import: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "import_zones")

	if _, err := tx.ExecContext(ctx, "DELETE FROM zones"); err != nil {
		return fmt.Errorf("clearing zones: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO zones (location_id, borough, zone, service_zone) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(stmt, c.logger, "close_zone_insert")

	for _, z := range zones {
		if _, err := stmt.ExecContext(ctx, z.LocationID, nullable(z.Borough), nullable(z.Name), nullable(z.ServiceZone)); err != nil {
			return fmt.Errorf("inserting zone %d: %w", z.LocationID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_metadata (id, source, zone_count, imported_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET source = excluded.source, zone_count = excluded.zone_count, imported_at = excluded.imported_at`,
		source, len(zones), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording import metadata: %w", err)
	}

	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
