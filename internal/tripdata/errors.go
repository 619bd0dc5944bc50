package tripdata

import "errors"

var (
	// ErrSourceUnavailable means the zone reference data could not be fetched.
	ErrSourceUnavailable = errors.New("zone reference data unavailable")
	// ErrQueryExecution means the trip source could not be read or queried.
	ErrQueryExecution = errors.New("trip query failed")
	// ErrEmptyResult marks a filter that matched no trips. It is an outcome,
	// not a failure.
	ErrEmptyResult = errors.New("no data available for the selected filters")
)

// EmptyResultMessage is shown to users when a filter matches no trips.
const EmptyResultMessage = "No data available for the selected filters."
