package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripdata"
)

// invalidAPIKeyResponse sends a 401 Unauthorized response with the required format
// for invalid API key errors
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Code        int    `json:"code"`
		CurrentTime int64  `json:"currentTime"`
		Text        string `json:"text"`
		Version     int    `json:"version"`
	}{
		Code:        http.StatusUnauthorized,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "permission denied",
		Version:     2,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode invalid API key response", "error", err)
	}
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("path", r.URL.Path))
	api.sendStatus(w, r, http.StatusInternalServerError, "internal server error")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode validation error response", "error", err)
	}
}

// statusClientClosedRequest is the nginx convention for a client that went
// away before the response was ready.
const statusClientClosedRequest = 499

// dataErrorResponse maps a failure of the trip pipeline to a status code:
// an unreachable zone lookup is 503, a failed trip query is 502 and a
// request that ran out of time is 504. A cancelled request is not an error
// of the server and is only logged at debug level.
func (api *RestAPI) dataErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		api.sendStatus(w, r, statusClientClosedRequest, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		api.sendStatus(w, r, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, tripdata.ErrSourceUnavailable):
		logging.LogError(logger, "data source unavailable", err)
		api.sendStatus(w, r, http.StatusServiceUnavailable, "data source unavailable")
	case errors.Is(err, tripdata.ErrQueryExecution):
		logging.LogError(logger, "trip query failed", err)
		api.sendStatus(w, r, http.StatusBadGateway, "trip query failed")
	default:
		api.serverErrorResponse(w, r, err)
	}
}
