package app

import (
	"log/slog"

	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/tripdata"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Manager *tripdata.Manager
}
