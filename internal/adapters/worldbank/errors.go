package worldbank

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package.
var (
	// ErrFetch marks every failure to retrieve data from the API.
	ErrFetch = errors.New("worldbank: fetch failed")

	// ErrInvalidQuery is returned when a search pattern does not compile.
	ErrInvalidQuery = errors.New("worldbank: invalid query")
)

// APIMessage is one entry of the API's error envelope.
type APIMessage struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FetchError describes a failed call. It matches ErrFetch and, when set, the
// underlying transport or decode error.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Messages   []APIMessage
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "worldbank: %s: GET %s", e.Op, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	for _, m := range e.Messages {
		fmt.Fprintf(&b, ": %s (%s)", m.Value, m.Key)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}
