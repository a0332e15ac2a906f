package render

import "errors"

var (
	// ErrNoData is returned when nothing plottable remains after coercion.
	ErrNoData = errors.New("render: no plottable data")

	// ErrUnknownFormat is returned for image formats gonum/plot cannot write.
	ErrUnknownFormat = errors.New("render: unknown image format")
)
