package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"taxidash.nyctlc.dev/internal/app"
	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/restapi"
	"taxidash.nyctlc.dev/internal/tripdata"
	"taxidash.nyctlc.dev/internal/webui"
)

func main() {
	cfg := appconf.Default()
	var apiKeysFlag, envFlag, configPath string

	flag.IntVar(&cfg.Port, "port", cfg.Port, "API server port")
	flag.StringVar(&envFlag, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&apiKeysFlag, "api-keys", strings.Join(cfg.ApiKeys, ","), "Comma Separated API Keys (test, etc)")
	flag.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per second per API key, 0 rejects all")
	flag.StringVar(&cfg.TripURL, "trip-url", cfg.TripURL, "URL or path of the trip parquet file")
	flag.StringVar(&cfg.ZoneURL, "zone-url", cfg.ZoneURL, "URL or path of the taxi zone lookup CSV")
	flag.StringVar(&cfg.ZoneDBPath, "zone-db", cfg.ZoneDBPath, "Path of the zone SQLite database")
	flag.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Maximum cached filter results, 0 for unbounded")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Lifetime of a cached filter result, 0 for no expiry")
	flag.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Attempts per trip query")
	flag.StringVar(&cfg.RefreshSchedule, "refresh-schedule", cfg.RefreshSchedule, "Cron spec for dropping cached reference data")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log at debug level")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file")
	flag.Parse()

	cfg.Env = appconf.EnvFlagToEnvironment(envFlag)
	if apiKeysFlag != "" {
		cfg.ApiKeys = strings.Split(apiKeysFlag, ",")
		for i := range cfg.ApiKeys {
			cfg.ApiKeys[i] = strings.TrimSpace(cfg.ApiKeys[i])
		}
	}

	if configPath != "" {
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

		var err error
		cfg, err = appconf.LoadFile(cfg, configPath, explicit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg)

	if err := appconf.Validate(cfg); err != nil {
		logging.LogError(logger, "invalid configuration", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := tripdata.InitManager(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "failed to initialize trip data", err)
		os.Exit(1)
	}
	defer manager.Shutdown()

	application := &app.Application{
		Config:  cfg,
		Logger:  logger,
		Manager: manager,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      routes(application),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env.String())
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.LogError(logger, "server stopped", err)
			manager.Shutdown()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.LogError(logger, "graceful shutdown failed", err)
		}
	}
}

func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.Env == appconf.Development {
		return logging.NewConsoleLogger(os.Stdout, level)
	}
	return logging.NewStructuredLogger(os.Stdout, level)
}

// routes wires the REST API and the debug pages onto one router.
func routes(application *app.Application) http.Handler {
	router := httprouter.New()

	api := restapi.NewRestAPI(application)
	api.SetRoutes(router)

	ui := &webui.WebUI{Application: application}
	ui.SetWebUIRoutes(router)

	return api.Middleware(router)
}
