package restapi

import (
	"net/http"
	"time"

	"taxidash.nyctlc.dev/internal/models"
	"taxidash.nyctlc.dev/internal/utils"
)

// parseFilterSpec reads the dashboard filter from the query string.
//
//	start, end        YYYY-MM-DD, end inclusive; default to the data's date range
//	hourMin, hourMax  pickup hours, default 0 and 23
//	payment           repeatable label; absent selects every label, "payment=" none
//	zone              repeatable zone name; absent selects every zone
//
// fieldErrors holds user input problems; err is a failure to read the date
// range of the data.
func (api *RestAPI) parseFilterSpec(r *http.Request) (spec models.FilterSpec, fieldErrors map[string][]string, err error) {
	params := r.URL.Query()

	start, hasStart, fieldErrors := utils.ParseDateParam(params, "start", nil)
	end, hasEnd, _ := utils.ParseDateParam(params, "end", fieldErrors)
	hourMin, _ := utils.ParseIntParam(params, "hourMin", 0, fieldErrors)
	hourMax, _ := utils.ParseIntParam(params, "hourMax", 23, fieldErrors)

	payments, hasPayments := utils.ParseListParam(params, "payment")
	if !hasPayments {
		payments = models.PaymentLabels()
	}
	zones, _ := utils.ParseListParam(params, "zone")

	if len(fieldErrors) > 0 {
		return models.FilterSpec{}, fieldErrors, nil
	}

	if !hasStart || !hasEnd {
		bounds, err := api.Manager.Prober.Bounds(r.Context())
		if err != nil {
			return models.FilterSpec{}, nil, err
		}
		if !hasStart {
			start = truncateToDate(bounds.Min)
		}
		if !hasEnd {
			end = truncateToDate(bounds.Max)
		}
	}

	// the end date is inclusive
	endExclusive := end.AddDate(0, 0, 1)

	fieldErrors = utils.ValidateFilterParams(start, endExclusive, hourMin, hourMax, payments, zones)
	if len(fieldErrors) > 0 {
		return models.FilterSpec{}, fieldErrors, nil
	}

	return models.NewFilterSpec(start, endExclusive, hourMin, hourMax, payments, zones), nil, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// exportName builds a download file name from the filter's inclusive dates.
func exportName(prefix string, spec models.FilterSpec, ext string) string {
	last := spec.End.AddDate(0, 0, -1)
	return prefix + "_" + spec.Start.Format(utils.DateLayout) + "_" + last.Format(utils.DateLayout) + ext
}
