package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	var next http.Handler = http.HandlerFunc(finalHandler)
	if api.rateLimiter != nil {
		next = api.rateLimiter(next)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/api/filters.json", validateAPIKey(api, api.filtersHandler))
	router.Handler(http.MethodGet, "/api/dashboard.json", validateAPIKey(api, api.dashboardHandler))
	router.Handler(http.MethodGet, "/api/trips.csv", validateAPIKey(api, api.tripsCSVHandler))
	router.Handler(http.MethodGet, "/api/dashboard.xlsx", validateAPIKey(api, api.dashboardWorkbookHandler))

	router.HandlerFunc(http.MethodGet, "/healthz", api.healthHandler)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.NotFound = http.HandlerFunc(api.sendNotFound)
}

// Middleware wraps the router with request logging, security headers and
// response compression, outermost first.
func (api *RestAPI) Middleware(next http.Handler) http.Handler {
	handler := CompressionMiddleware(next)
	handler = api.WithSecurityHeaders(handler)
	return NewRequestLoggingMiddleware(api.Logger)(handler)
}
