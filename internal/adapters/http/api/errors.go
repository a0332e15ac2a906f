package api

import (
	"errors"
	"net/http"

	service "github.com/okian/wbstats/internal/app"
	"github.com/okian/wbstats/internal/adapters/render"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// statusFor maps a pipeline error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	if errors.Is(err, render.ErrNoData) {
		return http.StatusNotFound, "no_data"
	}
	kind := service.Kind(err)
	switch kind {
	case service.KindMissingParam, service.KindInvalidQuery:
		return http.StatusBadRequest, kind
	case service.KindMissingField, service.KindConversion:
		return http.StatusUnprocessableEntity, kind
	case service.KindEmptyRegion:
		return http.StatusNotFound, kind
	case service.KindFetch:
		return http.StatusBadGateway, kind
	case service.KindCanceled:
		return http.StatusGatewayTimeout, kind
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writePipelineError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
