// Package relay talks to the hosted relay that forwards unlock commands to the lock.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/unlock-remote/device/internal/metrics"
)

// Result is one HTTP response as seen by the caller.
type Result struct {
	StatusCode int
	// Location is the Location header, empty when absent.
	Location string
	Body     string
	// Redirected is set when the result came from the follow-up GET.
	Redirected bool
}

// Requester issues relay requests and follows at most one redirect.
type Requester struct {
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewRequester creates a requester. A zero timeout leaves the transport defaults in place.
func NewRequester(timeout time.Duration, m *metrics.Metrics) *Requester {
	return &Requester{
		httpClient: &http.Client{
			Timeout: timeout,
			// Redirects are handled by Request.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		metrics: m,
	}
}

// Request sends one request. POST sends body as JSON; any other method, including
// an empty one, is a GET without body. A 302 Found is followed exactly once with a
// plain GET to its Location, and that response is returned unchecked. Every other
// status returns the body as-is.
func (r *Requester) Request(ctx context.Context, target, method string, body []byte) (Result, error) {
	start := time.Now()
	defer func() { r.metrics.RelayDuration(time.Since(start)) }()

	result, err := r.do(ctx, target, method, body)
	if err != nil {
		return result, err
	}

	if result.StatusCode == http.StatusFound && result.Location != "" {
		next := resolve(target, result.Location)
		log.Printf("Relay redirected to %s", redactQuery(next))
		r.metrics.Redirect()

		result, err = r.do(ctx, next, http.MethodGet, nil)
		result.Redirected = true
	}
	return result, err
}

func (r *Requester) do(ctx context.Context, target, method string, body []byte) (Result, error) {
	var reader io.Reader
	post := strings.EqualFold(method, http.MethodPost)
	method = http.MethodGet
	if post {
		method = http.MethodPost
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	if post {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.metrics.RelayRequest(method, "error")
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	r.metrics.RelayRequest(method, strconv.Itoa(resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	result := Result{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		Body:       string(data),
	}
	if err != nil {
		return result, fmt.Errorf("reading response: %w", err)
	}
	return result, nil
}

// resolve makes a relative Location absolute against the request URL.
func resolve(base, location string) string {
	b, err := url.Parse(base)
	if err != nil {
		return location
	}
	l, err := url.Parse(location)
	if err != nil {
		return location
	}
	return b.ResolveReference(l).String()
}

// redactQuery drops the query string, which may carry tokens, from logged URLs.
func redactQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i] + "?..."
	}
	return u
}
