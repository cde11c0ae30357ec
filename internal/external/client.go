// Package external is the boundary between TubePost domain logic and the
// third-party APIs it talks to (YouTube Data API, Google OAuth, YouTube web
// pages, Stripe). All outbound HTTP calls go through BaseClient, which applies
// circuit breaking, request id propagation and error mapping. Calls are never
// retried automatically: a posted comment must not be duplicated.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tubepost/internal/types"

	"github.com/sony/gobreaker/v2"
)

// RequestIDHeader carries the inbound request id to upstream services.
const RequestIDHeader = "X-Request-Id"

// upstreamStatusError marks a response the breaker should count as a failure
// while the caller still receives the response for decoding.
type upstreamStatusError struct {
	status int
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.status)
}

// BaseClient wraps an *http.Client and a circuit breaker. Provider clients
// (YouTube, OAuth, web, Stripe) embed one each so a failing provider trips
// only its own breaker.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient. httpClient must not itself use the
// transport returned by Transport().
func NewBaseClient(httpClient *http.Client, breakerName, userAgent string) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return NewBaseClientWithBreaker(httpClient, cb, userAgent)
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided
// circuit breaker.
func NewBaseClientWithBreaker(
	httpClient *http.Client,
	breaker *gobreaker.CircuitBreaker[*http.Response],
	userAgent string,
) *BaseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		userAgent: userAgent,
	}
}

// Do executes req exactly once with:
//  1. Request id injection (X-Request-Id from context)
//  2. User-Agent header injection
//  3. Circuit breaker wrapping (5xx and 429 count as failures)
//
// Every HTTP response, including 4xx and 5xx, is returned to the caller, who
// is responsible for closing the body. Transport failures and an open breaker
// come back as a *types.AppError.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if requestID := types.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, &upstreamStatusError{status: r.StatusCode}
		}
		return r, nil
	})

	var statusErr *upstreamStatusError
	if err != nil && errors.As(err, &statusErr) && resp != nil {
		return resp, nil
	}
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, c.mapError(err)
	}
	return resp, nil
}

// Transport exposes the client as an http.RoundTripper so SDKs that accept
// an *http.Client (oauth2, the YouTube API client) share the breaker.
func (c *BaseClient) Transport() http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return c.Do(req.Clone(req.Context()))
	})
}

// HTTPClient returns an *http.Client whose transport is Transport().
func (c *BaseClient) HTTPClient() *http.Client {
	return &http.Client{Transport: c.Transport()}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// mapError translates transport-level failures into AppErrors.
func (c *BaseClient) mapError(err error) *types.AppError {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; upstream service unavailable",
			err,
		)
	}
	return types.NewAppError(
		types.ErrCodeUpstreamUnavailable,
		"upstream request failed",
		err,
	)
}
