package external

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tubepost/internal/types"

	"github.com/sony/gobreaker/v2"
)

func newTestClient(t *testing.T) *BaseClient {
	t.Helper()
	return NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "test-breaker", "TubePost-Test/1.0")
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(t)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/test", nil)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestDo_InjectsHeaders(t *testing.T) {
	var gotID, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	ctx := types.WithRequestID(context.Background(), "req-abc-123")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := newTestClient(t).Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotID != "req-abc-123" {
		t.Errorf("request id = %q", gotID)
	}
	if gotUA != "TubePost-Test/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
}

func TestDo_NeverRetries(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusTooManyRequests, http.StatusBadRequest} {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			body, _ := io.ReadAll(r.Body)
			if string(body) != "payload" {
				t.Errorf("body = %q", body)
			}
			w.WriteHeader(status)
		}))

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader("payload"))
		resp, err := newTestClient(t).Do(req)
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", status, err)
		}
		if resp.StatusCode != status {
			t.Errorf("status = %d, want %d", resp.StatusCode, status)
		}
		resp.Body.Close()
		server.Close()

		if calls.Load() != 1 {
			t.Errorf("status %d: expected exactly 1 call, got %d", status, calls.Load())
		}
	}
}

func TestDo_CircuitBreakerOpensAfterThreshold(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "test-open",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})
	client := NewBaseClientWithBreaker(&http.Client{Timeout: 5 * time.Second}, breaker, "")

	for i := 0; i < 4; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	}
	before := callCount.Load()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
		t.Error("expected nil response when circuit breaker is open")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamUnavailable {
		t.Errorf("code = %s", appErr.Code)
	}
	if callCount.Load() != before {
		t.Error("server must not be called while breaker is open")
	}
}

func TestDo_NetworkErrorMapsToAppError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL, nil)
	resp, err := newTestClient(t).Do(req)
	if resp != nil {
		resp.Body.Close()
		t.Error("expected nil response for network error")
	}
	if !types.HasCode(err, types.ErrCodeUpstreamUnavailable) {
		t.Errorf("expected %s, got %v", types.ErrCodeUpstreamUnavailable, err)
	}
}

func TestTransport_DoesNotMutateCallerRequest(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	httpClient := newTestClient(t).HTTPClient()
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "sdk/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "TubePost-Test/1.0" {
		t.Errorf("upstream saw UA %q", gotUA)
	}
	if req.Header.Get("User-Agent") != "sdk/1.0" {
		t.Error("caller request headers were modified")
	}
}
