package core

import (
	"context"
	"sync"
	"time"

	"tubepost/internal/types"
)

// MockAuthenticator implements Authenticator for tests. It returns Actor,
// or Err when set; ResolveTokenFunc overrides both.
//
//	auth := &MockAuthenticator{Actor: &types.Actor{ID: "uid-1"}}
type MockAuthenticator struct {
	Actor            *types.Actor
	Err              error
	ResolveTokenFunc func(ctx context.Context, token string) (*types.Actor, error)

	mu    sync.Mutex
	Calls []string
}

// ResolveToken records the token and returns the configured outcome.
func (m *MockAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.ResolveTokenFunc != nil {
		return m.ResolveTokenFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}

// RecordedRequest is one call captured by MockMetrics.
type RecordedRequest struct {
	Method, Endpoint, Status string
	Duration                 time.Duration
}

// MockMetrics implements MetricsCollector and records every call.
type MockMetrics struct {
	mu    sync.Mutex
	Calls []RecordedRequest
}

// RecordRequest implements MetricsCollector.
func (m *MockMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, RecordedRequest{method, endpoint, status, duration})
}

var (
	_ Authenticator    = (*MockAuthenticator)(nil)
	_ MetricsCollector = (*MockMetrics)(nil)
)
