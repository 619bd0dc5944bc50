package restapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
	"taxidash.nyctlc.dev/internal/app"
	"taxidash.nyctlc.dev/internal/appconf"
	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripdata"
	"taxidash.nyctlc.dev/internal/tripsource/tripsourcetest"
)

const testKey = "TEST"

func testConfig(t *testing.T) appconf.Config {
	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.ApiKeys = []string{testKey}
	cfg.TripURL = tripsourcetest.WriteFile(t, tripsourcetest.Week(), 2)
	cfg.ZoneURL = models.GetFixturePath(t, "taxi_zone_lookup.csv")
	cfg.RetryAttempts = 1
	return cfg
}

// createTestApi creates a RestAPI over a week of trips and the zone fixture.
func createTestApi(t *testing.T) *RestAPI {
	return createTestApiWithConfig(t, testConfig(t))
}

func createTestApiWithConfig(t *testing.T, cfg appconf.Config) *RestAPI {
	logger := logging.NewStructuredLogger(io.Discard, slog.LevelDebug)
	manager, err := tripdata.InitManager(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)

	return &RestAPI{Application: &app.Application{
		Config:  cfg,
		Logger:  logger,
		Manager: manager,
	}}
}

func (api *RestAPI) testHandler() http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)
	return api.Middleware(router)
}

// serveAndRetrieveEndpoint sets up a test server, makes a request to the specified endpoint, and returns the response
// and decoded model.
func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	resp, body := serveApiAndRetrieveBody(t, api, endpoint)

	var model models.ResponseModel
	require.NoError(t, json.Unmarshal(body, &model), string(body))
	return resp, model
}

func serveApiAndRetrieveBody(t *testing.T, api *RestAPI, endpoint string) (*http.Response, []byte) {
	server := httptest.NewServer(api.testHandler())
	defer server.Close()

	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// entry returns the "entry" object of a response decoded into v.
func entry(t *testing.T, model models.ResponseModel, v interface{}) {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "response data should be an object")
	raw, err := json.Marshal(data["entry"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}
