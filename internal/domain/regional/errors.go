package regional

import (
	"errors"
	"fmt"
)

// ErrEmptyRegion signals that a region had no data to summarize.
var ErrEmptyRegion = errors.New("empty region")

// EmptyRegionError reports a region filter with no rows, or with rows but no
// numeric values (Rows > 0).
type EmptyRegionError struct {
	RegionField string
	Region      string
	ValueField  string
	Rows        int
}

func (e *EmptyRegionError) Error() string {
	if e.Rows == 0 {
		return fmt.Sprintf("no rows with %s = %q", e.RegionField, e.Region)
	}
	return fmt.Sprintf("%d rows with %s = %q but no numeric %q values", e.Rows, e.RegionField, e.Region, e.ValueField)
}

func (e *EmptyRegionError) Unwrap() error { return ErrEmptyRegion }
