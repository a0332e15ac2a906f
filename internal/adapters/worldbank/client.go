// Package worldbank fetches country and indicator metadata from the World
// Bank v2 REST API and hands it back as raw records.
package worldbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/wbstats/internal/domain/normalize"
	"github.com/okian/wbstats/pkg/logger"
	"github.com/okian/wbstats/pkg/metrics"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.worldbank.org/v2"

// Operation names used in errors, logs and metric labels.
const (
	OpCountries    = "countries"
	OpTopic        = "indicators_by_topic"
	OpSearch       = "search_indicators"
	OpObservations = "observations"
)

const (
	defaultPerPage  = 1000
	defaultMaxPages = 50
	defaultTimeout  = 30 * time.Second
	maxBodyBytes    = 64 << 20
)

// Client is a blocking, retry-free World Bank API client.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	perPage   int
	maxPages  int
	userAgent string
	log       logger.Logger
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		timeout:   defaultTimeout,
		perPage:   defaultPerPage,
		maxPages:  defaultMaxPages,
		userAgent: "wbstats/1.0",
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Countries returns every country and aggregate known to the API.
func (c *Client) Countries(ctx context.Context) ([]normalize.Record, error) {
	return c.fetchAll(ctx, OpCountries, "country", nil)
}

// IndicatorsByTopic returns the indicators filed under a topic id.
func (c *Client) IndicatorsByTopic(ctx context.Context, topicID int) ([]normalize.Record, error) {
	return c.fetchAll(ctx, OpTopic, "topic/"+strconv.Itoa(topicID)+"/indicator", nil)
}

// SearchIndicators returns indicators whose name matches query, treated as a
// case-insensitive regular expression.
func (c *Client) SearchIndicators(ctx context.Context, query string) ([]normalize.Record, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidQuery, query, err)
	}
	all, err := c.fetchAll(ctx, OpSearch, "indicator", nil)
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Record, 0)
	for _, rec := range all {
		name, _ := rec["name"].(string)
		if re.MatchString(name) {
			out = append(out, rec)
		}
	}
	c.log.Debug(ctx, "indicator search filtered",
		logger.String("query", query),
		logger.Int("scanned", len(all)),
		logger.Int("matched", len(out)),
	)
	return out, nil
}

// Observations returns indicator values for the given countries, or for all
// countries when none are named. date is a year ("2022"), a range
// ("2010:2022") or empty for the API default.
func (c *Client) Observations(ctx context.Context, indicatorID, date string, countries ...string) ([]normalize.Record, error) {
	scope := "all"
	if len(countries) > 0 {
		codes := make([]string, len(countries))
		for i, cc := range countries {
			codes[i] = url.PathEscape(cc)
		}
		scope = strings.Join(codes, ";")
	}
	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}
	path := "country/" + scope + "/indicator/" + url.PathEscape(indicatorID)
	return c.fetchAll(ctx, OpObservations, path, params)
}

// fetchAll follows the paged envelope until the last page and concatenates
// the records in API order.
func (c *Client) fetchAll(ctx context.Context, op, path string, params url.Values) ([]normalize.Record, error) {
	start := time.Now()
	var out []normalize.Record
	pages := 0

	err := func() error {
		for page := 1; ; page++ {
			if page > c.maxPages {
				return &FetchError{
					Op:  op,
					URL: c.endpoint(path, params, page),
					Err: fmt.Errorf("more than %d pages", c.maxPages),
				}
			}
			m, recs, err := c.page(ctx, op, path, params, page)
			if err != nil {
				return err
			}
			pages++
			out = append(out, recs...)
			if int(m.Pages) <= page {
				return nil
			}
		}
	}()

	metrics.RecordFetch(op, err)
	metrics.RecordFetchLatency(op, float64(time.Since(start).Milliseconds()))
	metrics.RecordPagesFetched(op, pages)
	if err != nil {
		c.log.Warn(ctx, "world bank fetch failed", logger.String("op", op), logger.Error(err))
		return nil, err
	}
	metrics.RecordRecordsFetched(op, len(out))
	c.log.Debug(ctx, "world bank fetch complete",
		logger.String("op", op),
		logger.Int("pages", pages),
		logger.Int("records", len(out)),
		logger.Duration("elapsed", time.Since(start)),
	)
	if out == nil {
		out = []normalize.Record{}
	}
	return out, nil
}

func (c *Client) endpoint(path string, params url.Values, page int) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("format", "json")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	return c.baseURL + "/" + path + "?" + q.Encode()
}

func (c *Client) page(ctx context.Context, op, path string, params url.Values, page int) (meta, []normalize.Record, error) {
	u := c.endpoint(path, params, page)
	fail := func(status int, err error) (meta, []normalize.Record, error) {
		return meta{}, nil, &FetchError{Op: op, URL: u, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	c.log.Debug(ctx, "world bank request", logger.String("op", op), logger.String("url", u))

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		fe := &FetchError{Op: op, URL: u, StatusCode: resp.StatusCode}
		if msgs, ok := apiMessages(body); ok {
			fe.Messages = msgs
		}
		return meta{}, nil, fe
	}

	m, recs, msgs, err := decodePage(body)
	if err != nil {
		return fail(resp.StatusCode, err)
	}
	if len(msgs) > 0 {
		return meta{}, nil, &FetchError{Op: op, URL: u, StatusCode: resp.StatusCode, Messages: msgs}
	}
	return m, recs, nil
}

// meta is the first element of every paged response.
type meta struct {
	Page    flexInt `json:"page"`
	Pages   flexInt `json:"pages"`
	PerPage flexInt `json:"per_page"`
	Total   flexInt `json:"total"`
}

// flexInt accepts both 50 and "50"; the API is inconsistent between endpoints.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("paging field %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

var errMalformed = errors.New("malformed response envelope")

// decodePage splits a [meta, records] envelope. An error envelope comes back
// as messages with a nil error.
func decodePage(body []byte) (meta, []normalize.Record, []APIMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return meta{}, nil, nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if len(parts) == 0 {
		return meta{}, nil, nil, errMalformed
	}
	if msgs, ok := apiMessages(body); ok {
		return meta{}, nil, msgs, nil
	}

	var m meta
	if err := json.Unmarshal(parts[0], &m); err != nil {
		return meta{}, nil, nil, fmt.Errorf("%w: meta: %w", errMalformed, err)
	}
	if len(parts) < 2 || bytes.Equal(bytes.TrimSpace(parts[1]), []byte("null")) {
		return m, nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(parts[1]))
	dec.UseNumber()
	var recs []normalize.Record
	if err := dec.Decode(&recs); err != nil {
		return meta{}, nil, nil, fmt.Errorf("%w: records: %w", errMalformed, err)
	}
	return m, recs, nil, nil
}

// apiMessages recognises [{"message":[...]}].
func apiMessages(body []byte) ([]APIMessage, bool) {
	var env []struct {
		Message []APIMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env) == 0 || len(env[0].Message) == 0 {
		return nil, false
	}
	return env[0].Message, true
}
