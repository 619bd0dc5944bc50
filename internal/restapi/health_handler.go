package restapi

import (
	"net/http"
	"time"

	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripdata"
)

type healthStatus struct {
	Status        string              `json:"status"`
	StoredZones   int                 `json:"storedZones"`
	ZonesLoadedAt *time.Time          `json:"zonesLoadedAt,omitempty"`
	LastRefresh   *time.Time          `json:"lastRefresh,omitempty"`
	Cache         tripdata.CacheStats `json:"cache"`
}

// healthHandler reports liveness without touching the trip file. It needs no
// API key.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status: "ok",
		Cache:  api.Manager.Cache.Stats(),
	}
	if n, err := api.Manager.StoredZones(r.Context()); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "counting stored zones failed", err)
	} else {
		status.StoredZones = n
	}
	if t := api.Manager.Zones.LoadedAt(); !t.IsZero() {
		status.ZonesLoadedAt = &t
	}
	if t := api.Manager.LastRefresh(); !t.IsZero() {
		status.LastRefresh = &t
	}

	api.sendResponse(w, r, models.NewEntryResponse(status))
}
