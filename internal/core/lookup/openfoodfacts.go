// Package lookup queries the Open Food Facts product search for nutrient data.
//
// Every failure degrades to an empty candidate list. The reason is logged and
// counted, never returned to the caller.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/core"
	"github.com/platelog/platelog/internal/core/engine"
	"github.com/platelog/platelog/internal/metrics"
)

const (
	// DefaultBaseURL is the public Open Food Facts instance.
	DefaultBaseURL = "https://world.openfoodfacts.org"
	// DefaultPageSize is the number of candidates requested per search.
	DefaultPageSize = 5
	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 10 * time.Second

	searchPath = "/cgi/search.pl"
	// maxBodyBytes caps the response body read per search.
	maxBodyBytes = 4 << 20
)

// Failure reasons reported by UnavailableError.
const (
	ReasonRateLimited = "rate_limited"
	ReasonNetwork     = "network"
	ReasonTimeout     = "timeout"
	ReasonStatus      = "status"
	ReasonMalformed   = "malformed"
)

// UnavailableError describes why a search produced no usable response.
type UnavailableError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	msg := "lookup unavailable: " + e.Reason
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// OpenFoodFacts searches the Open Food Facts product database.
type OpenFoodFacts struct {
	Client    *http.Client
	Limiter   *engine.RateLimiter
	Logger    *logging.Logger
	BaseURL   string
	PageSize  int
	Timeout   time.Duration
	UserAgent string
	Clock     func() time.Time
}

// Search returns up to PageSize candidates for query in the order the API
// returned them. Any failure yields an empty result.
func (o *OpenFoodFacts) Search(ctx context.Context, query string) []core.ProductCandidate {
	if ctx == nil {
		ctx = context.Background()
	}

	startedAt := o.now()
	candidates, err := o.SearchProducts(ctx, query)
	elapsed := o.now().Sub(startedAt)

	if err != nil {
		var unavailable *UnavailableError
		outcome := metrics.LookupOutcomeUnavailable
		fields := []zap.Field{
			zap.String("lookup_id", uuid.New().String()),
			zap.String("query", query),
			zap.Duration("duration", elapsed),
		}
		if errors.As(err, &unavailable) {
			fields = append(fields, zap.String("reason", unavailable.Reason), zap.Int("status", unavailable.StatusCode))
			if unavailable.Reason == ReasonRateLimited {
				outcome = metrics.LookupOutcomeRateLimited
			}
		}
		fields = append(fields, zap.Error(err))
		if o != nil && o.Logger != nil {
			o.Logger.Warn("Nutrient lookup unavailable", fields...)
		}
		metrics.RecordLookup(outcome, elapsed)
		return nil
	}

	if len(candidates) == 0 {
		metrics.RecordLookup(metrics.LookupOutcomeEmpty, elapsed)
	} else {
		metrics.RecordLookup(metrics.LookupOutcomeOK, elapsed)
	}
	return candidates
}

// SearchProducts performs one search request and reports failures as
// *UnavailableError.
func (o *OpenFoodFacts) SearchProducts(ctx context.Context, query string) ([]core.ProductCandidate, error) {
	if o == nil {
		return nil, &UnavailableError{Reason: ReasonNetwork, Err: errors.New("lookup client is not configured")}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	baseURL := o.baseURL()
	endpoint := baseURL.Hostname()

	if o.Limiter != nil && endpoint != "" {
		allowed, wait, err := o.Limiter.Allow(ctx, endpoint)
		if err == nil && !allowed {
			return nil, &UnavailableError{
				Reason: ReasonRateLimited,
				Err:    fmt.Errorf("retry in %s", wait.Round(time.Second)),
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.searchURL(baseURL, query), nil)
	if err != nil {
		return nil, &UnavailableError{Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	if o.Limiter != nil && endpoint != "" {
		_ = o.Limiter.Record(ctx, endpoint)
	}

	client := o.Client
	if client == nil {
		client = &http.Client{Timeout: o.timeout()}
	}

	resp, err := client.Do(req)
	if err != nil {
		reason := ReasonNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return nil, &UnavailableError{Reason: reason, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp)
		if o.Limiter != nil && endpoint != "" && wait > 0 {
			_ = o.Limiter.Record429(ctx, endpoint, wait)
		}
		return nil, &UnavailableError{Reason: ReasonRateLimited, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &UnavailableError{Reason: ReasonStatus, StatusCode: resp.StatusCode}
	}

	candidates, err := decodeSearch(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		reason := ReasonMalformed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return nil, &UnavailableError{Reason: reason, StatusCode: resp.StatusCode, Err: err}
	}

	if size := o.pageSize(); len(candidates) > size {
		candidates = candidates[:size]
	}
	return candidates, nil
}

func (o *OpenFoodFacts) searchURL(base *url.URL, query string) string {
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(o.pageSize()))
	params.Set("sort_by", "relevancy")

	target := base.ResolveReference(&url.URL{Path: searchPath})
	target.RawQuery = params.Encode()
	return target.String()
}

func (o *OpenFoodFacts) baseURL() *url.URL {
	if o != nil && o.BaseURL != "" {
		if parsed, err := url.Parse(strings.TrimRight(o.BaseURL, "/")); err == nil {
			return parsed
		}
	}
	parsed, _ := url.Parse(DefaultBaseURL)
	return parsed
}

func (o *OpenFoodFacts) pageSize() int {
	if o != nil && o.PageSize > 0 {
		return o.PageSize
	}
	return DefaultPageSize
}

func (o *OpenFoodFacts) timeout() time.Duration {
	if o != nil && o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

func (o *OpenFoodFacts) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func retryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(value); err == nil {
		return time.Until(parsed)
	}
	return 0
}
