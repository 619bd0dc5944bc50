package zonedb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/logging"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schema.sql
var ddl string

// ErrFileDatabaseInTest is returned when a test configuration points at a file.
var ErrFileDatabaseInTest = errors.New("test database must use in-memory storage")

// Client owns the zone lookup database.
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	httpClient    *http.Client
	logger        *slog.Logger
	importRuntime time.Duration
}

// NewClient opens the database and applies the schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With(slog.String("component", "zonedb"))
	if config.verbose {
		logger.Info("zone database ready", slog.String("path", config.DBPath))
	}

	return &Client{
		config:     config,
		DB:         db,
		Queries:    New(db),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// ImportRuntime is how long the last import took.
func (c *Client) ImportRuntime() time.Duration {
	return c.importRuntime
}

// DownloadAndStore fetches the zone lookup CSV and replaces the stored zones.
func (c *Client) DownloadAndStore(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching zone lookup: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "close_zone_lookup_body")

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching zone lookup: unexpected status %s", resp.Status)
	}

	return c.ImportCSV(ctx, resp.Body, url)
}

// ImportFromFile imports a zone lookup CSV from the local filesystem.
func (c *Client) ImportFromFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer logging.SafeCloseWithLogging(f, c.logger, "close_zone_lookup_file")

	return c.ImportCSV(ctx, f, path)
}

func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("%w, got %q", ErrFileDatabaseInTest, config.DBPath)
	}

	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := performDatabaseMigration(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

// readAllLimited guards against a misconfigured URL that streams something huge.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("zone lookup larger than %d bytes", limit)
	}
	return b, nil
}
