package restapi

import (
	"errors"
	"net/http"

	"taxidash.nyctlc.dev/internal/dashboard"
	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/tripdata"
)

// filteredRows parses the filter and fetches its rows, writing the error
// response itself when it returns false.
func (api *RestAPI) filteredRows(w http.ResponseWriter, r *http.Request) (models.FilterSpec, models.DerivedRowSet, bool) {
	spec, fieldErrors, err := api.parseFilterSpec(r)
	if err != nil {
		api.dataErrorResponse(w, r, err)
		return spec, nil, false
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return spec, nil, false
	}

	ctx := r.Context()
	if ctx.Err() != nil {
		api.serverErrorResponse(w, r, ctx.Err())
		return spec, nil, false
	}

	rows, err := api.Manager.Filtered(ctx, spec)
	if err != nil {
		api.dataErrorResponse(w, r, err)
		return spec, nil, false
	}
	return spec, rows, true
}

func (api *RestAPI) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	spec, rows, ok := api.filteredRows(w, r)
	if !ok {
		return
	}

	d, err := dashboard.Build(spec, rows)
	if err != nil && !errors.Is(err, tripdata.ErrEmptyResult) {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(d))
}

// sendEmptyDashboard answers an export whose filter matched nothing with the
// same body the dashboard endpoint returns.
func (api *RestAPI) sendEmptyDashboard(w http.ResponseWriter, r *http.Request, spec models.FilterSpec) {
	d, _ := dashboard.Build(spec, nil)
	api.sendResponse(w, r, models.NewEntryResponse(d))
}
