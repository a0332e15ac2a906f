package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/wbstats/internal/domain/table"
)

// MetadataDependencies lists the country and indicator lookups.
type MetadataDependencies interface {
	Countries(ctx context.Context) (table.Table, error)
	IndicatorsByTopic(ctx context.Context, topicID int) (table.Table, error)
	SearchIndicators(ctx context.Context, query string) (table.Table, error)
}

// MetadataHandler serves normalized country and indicator tables.
type MetadataHandler struct {
	deps MetadataDependencies
}

// NewMetadataHandler creates a new metadata handler.
func NewMetadataHandler(deps MetadataDependencies) *MetadataHandler {
	return &MetadataHandler{deps: deps}
}

// HandleCountries handles GET /countries requests.
func (h *MetadataHandler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	t, err := h.deps.Countries(r.Context())
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respondTable(w, r, "countries", t)
}

// HandleTopic handles GET /indicators?topic=N requests.
func (h *MetadataHandler) HandleTopic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := r.URL.Query().Get("topic")
	topic, err := strconv.Atoi(raw)
	if err != nil || topic < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: topic must be a positive integer, got %q", ErrBadRequest, raw))
		return
	}
	t, err := h.deps.IndicatorsByTopic(r.Context(), topic)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respondTable(w, r, "indicators_topic_"+strconv.Itoa(topic), t)
}

// HandleSearch handles GET /indicators/search?q= requests.
func (h *MetadataHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing q", ErrBadRequest))
		return
	}
	t, err := h.deps.SearchIndicators(r.Context(), q)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respondTable(w, r, "indicators_search", t)
}

func respondTable(w http.ResponseWriter, r *http.Request, name string, t table.Table) {
	respond(w, r, payload{name: name, body: newTableResponse(t), records: t})
}
