package restapi

import (
	"bytes"
	"net/http"

	"taxidash.nyctlc.dev/internal/dashboard"
	"taxidash.nyctlc.dev/internal/logging"
)

func (api *RestAPI) tripsCSVHandler(w http.ResponseWriter, r *http.Request) {
	spec, rows, ok := api.filteredRows(w, r)
	if !ok {
		return
	}
	if rows.Empty() {
		api.sendEmptyDashboard(w, r, spec)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.WriteCSV(&buf, rows); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendAttachment(w, r, "text/csv; charset=utf-8", exportName("trips", spec, ".csv"), buf.Bytes())
}

func (api *RestAPI) dashboardWorkbookHandler(w http.ResponseWriter, r *http.Request) {
	spec, rows, ok := api.filteredRows(w, r)
	if !ok {
		return
	}
	if rows.Empty() {
		api.sendEmptyDashboard(w, r, spec)
		return
	}

	d, err := dashboard.Build(spec, rows)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.WriteWorkbook(&buf, d, logging.FromContext(r.Context())); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendAttachment(w, r, xlsxContentType, exportName("dashboard", spec, ".xlsx"), buf.Bytes())
}
