package ga

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultReportingBaseURL is the Core Reporting API root.
const DefaultReportingBaseURL = "https://www.googleapis.com/analytics/v3/data/ga"

// queryCacheTTL bounds how long a reporting response may be replayed.
// Period boundaries only move at midnight, so an hour is comfortably
// inside a single edition's validity window.
const queryCacheTTL = time.Hour

// Query is a single reporting request: one profile, one inclusive date
// range, and the metric/dimension/sort sets that define the shape of
// the result. One parameterized descriptor covers every query the
// publication issues; only the parameters vary.
type Query struct {
	ProfileID  string   `json:"profile_id"`
	StartDate  string   `json:"start_date"` // YYYY-MM-DD
	EndDate    string   `json:"end_date"`   // YYYY-MM-DD
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions,omitempty"`
	Sort       []string `json:"sort,omitempty"`
}

// ColumnHeader describes one column of a reporting response.
type ColumnHeader struct {
	Name       string `json:"name"`
	ColumnType string `json:"columnType"`
	DataType   string `json:"dataType"`
}

// Result is a reporting response: ordered rows of dimension values
// followed by metric values, plus the provider-computed totals.
type Result struct {
	ColumnHeaders []ColumnHeader    `json:"columnHeaders"`
	Rows          [][]string        `json:"rows"`
	Totals        map[string]string `json:"totalsForAllResults"`
}

// QueryCache is the pluggable cache contract for reporting responses.
type QueryCache interface {
	Get(ctx context.Context, queryHash string, result interface{}) (bool, error)
	Put(ctx context.Context, queryHash string, params, result interface{}, ttl time.Duration) error
}

// ReportingClient issues metric queries against the Core Reporting API.
// Built per request around an authenticated HTTP client; the cache, if
// any, is shared across requests and keyed by query content so repeat
// same-day deliveries do not hit the provider again.
type ReportingClient struct {
	httpClient *http.Client
	baseURL    string
	cache      QueryCache
}

// NewReportingClient creates a reporting client. cache may be nil.
func NewReportingClient(httpClient *http.Client, cache QueryCache) *ReportingClient {
	return &ReportingClient{
		httpClient: httpClient,
		baseURL:    DefaultReportingBaseURL,
		cache:      cache,
	}
}

// SetBaseURL overrides the API root, for tests.
func (c *ReportingClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Run executes one reporting query and returns its rows in provider
// order. Any provider-side failure is terminal for the caller's
// request; no retry is attempted here.
func (c *ReportingClient) Run(ctx context.Context, q Query) (*Result, error) {
	if q.ProfileID == "" {
		return nil, fmt.Errorf("%w: profile ID is required", ErrQueryFailed)
	}
	if q.StartDate == "" || q.EndDate == "" {
		return nil, fmt.Errorf("%w: date range is required", ErrQueryFailed)
	}
	if len(q.Metrics) == 0 {
		return nil, fmt.Errorf("%w: at least one metric is required", ErrQueryFailed)
	}

	var hash string
	if c.cache != nil {
		hash = queryHash(q)
		var cached Result
		if found, err := c.cache.Get(ctx, hash, &cached); err == nil && found {
			return &cached, nil
		}
	}

	params := url.Values{}
	params.Set("ids", "ga:"+q.ProfileID)
	params.Set("start-date", q.StartDate)
	params.Set("end-date", q.EndDate)
	params.Set("metrics", strings.Join(q.Metrics, ","))
	if len(q.Dimensions) > 0 {
		params.Set("dimensions", strings.Join(q.Dimensions, ","))
	}
	if len(q.Sort) > 0 {
		params.Set("sort", strings.Join(q.Sort, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrQueryFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: reporting API returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: reporting API returned status %d: %s", ErrQueryFailed, resp.StatusCode, resp.Status)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQueryFailed, err)
	}

	if c.cache != nil && hash != "" {
		// Cache write failures are not the caller's problem.
		_ = c.cache.Put(ctx, hash, q, result, queryCacheTTL)
	}

	return &result, nil
}

// queryHash creates a deterministic content hash of a query for cache
// keying.
func queryHash(q Query) string {
	data, _ := json.Marshal(q)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
