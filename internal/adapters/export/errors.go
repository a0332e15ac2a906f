package export

import "errors"

var (
	// ErrNoSheets is returned when a workbook would have nothing in it.
	ErrNoSheets = errors.New("export: no sheets")

	// ErrDuplicateSheet is returned when two sheets share a name.
	ErrDuplicateSheet = errors.New("export: duplicate sheet name")
)
