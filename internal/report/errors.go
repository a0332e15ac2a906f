package report

import "errors"

// ErrConfig is returned when a report run is missing a required input.
var ErrConfig = errors.New("report: invalid config")
