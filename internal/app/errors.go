package service

import (
	"context"
	"errors"

	"github.com/okian/wbstats/internal/adapters/worldbank"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/table"
)

// ErrMissingParam is returned when a required argument is empty.
var ErrMissingParam = errors.New("missing parameter")

// Error kinds reported by Kind.
const (
	KindFetch        = "fetch"
	KindInvalidQuery = "invalid_query"
	KindMissingField = "missing_field"
	KindConversion   = "conversion"
	KindEmptyRegion  = "empty_region"
	KindMissingParam = "missing_param"
	KindInvalidTable = "invalid_table"
	KindCanceled     = "canceled"
	KindOther        = "other"
)

// Kind classifies err for metric labels and status mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, worldbank.ErrInvalidQuery):
		return KindInvalidQuery
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, worldbank.ErrFetch):
		return KindFetch
	case errors.Is(err, regional.ErrEmptyRegion):
		return KindEmptyRegion
	case errors.Is(err, table.ErrMissingField):
		return KindMissingField
	case errors.Is(err, table.ErrValueConversion):
		return KindConversion
	case errors.Is(err, ErrMissingParam):
		return KindMissingParam
	case errors.Is(err, table.ErrInvalidTable):
		return KindInvalidTable
	default:
		return KindOther
	}
}
