// Package telemetry provides the metrics backends for tubepost. Every
// backend records HTTP request telemetry (core.MetricsCollector) and the
// domain events emitted by the services (Recorder).
package telemetry

import "time"

// Outcome labels for recorded events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder receives domain events. Implementations must not block the
// caller for long and must be safe for concurrent use.
type Recorder interface {
	// RecordAction counts a send that reached the platform and succeeded.
	RecordAction(kind string)
	// RecordRejection counts a send refused before or by the platform.
	RecordRejection(kind, reason string)
	RecordConnect(outcome string)
	RecordUpgrade(source string)
	RecordExternalFailure(provider, reason string)
	RecordCacheHit(hit bool)
}

// Collector is a complete metrics backend.
type Collector interface {
	Recorder
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAction(string)                                  {}
func (Nop) RecordRejection(string, string)                       {}
func (Nop) RecordConnect(string)                                 {}
func (Nop) RecordUpgrade(string)                                 {}
func (Nop) RecordExternalFailure(string, string)                 {}
func (Nop) RecordCacheHit(bool)                                  {}
func (Nop) RecordRequest(string, string, string, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

var _ Collector = Nop{}
