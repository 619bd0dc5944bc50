package restapi

import (
	"net/http"

	"taxidash.nyctlc.dev/internal/models"
)

func (api *RestAPI) filtersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if ctx.Err() != nil {
		api.serverErrorResponse(w, r, ctx.Err())
		return
	}

	options, err := api.Manager.FilterOptions(ctx)
	if err != nil {
		api.dataErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(options))
}
