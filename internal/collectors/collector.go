// Package collectors implements the collector fabric (spec §4.1): per-source
// adapters that own a remote protocol and emit RawEvents to the publisher,
// behind a small closed capability interface (event-based or streaming).
// Grounded on original_source/services/ingestion/src/collectors/base.py's
// BaseCollector/BaseEventCollector/BaseStreamCollector hierarchy, translated
// into Go interfaces plus an embeddable Base struct (the teacher's own
// embedding convention, e.g. internal/scheduler/base.JobBase).
package collectors

import (
	"context"

	"github.com/aristath/marketcore/internal/domain"
)

// Collector is the capability every concrete adapter implements.
type Collector interface {
	Name() string
	Source() domain.Source
	Initialize(ctx context.Context) error
	// Collect polls the remote source once and returns the number of
	// events accepted by the publisher. params carries adapter-specific
	// query parameters (e.g. subreddit, limit, symbol).
	Collect(ctx context.Context, params map[string]string) (int, error)
	Close(ctx context.Context) error
	Health(ctx context.Context) error
}

// StreamingCollector additionally supports a persistent background stream.
// Collect starts the stream if it is not already running (spec §4.1).
type StreamingCollector interface {
	Collector
	StartStream(ctx context.Context) error
	StopStream(ctx context.Context) error
	IsStreaming() bool
}

// Constructor builds a Collector (or StreamingCollector) given no arguments
// beyond what the registry entry closed over at registration time. Kept as
// a plain function type rather than reflection, per spec §9's "registry is
// a mapping from string name to constructor; no reflection required".
type Constructor func() (Collector, error)

// Registry maps a source name to its constructor. Registration happens at
// service wiring time in cmd/marketcore/main.go, mirroring the teacher's DI
// container pattern (internal/di/services.go) without a generic IoC
// framework.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a named constructor. A duplicate name panics at wiring
// time, matching the teacher's fail-fast startup convention (cmd/server/main.go).
func (r *Registry) Register(name string, ctor Constructor) {
	if _, exists := r.constructors[name]; exists {
		panic("collectors: duplicate registration for " + name)
	}
	r.constructors[name] = ctor
}

// Build constructs the named collector, or ErrNotImplemented if name is
// known to the catalogue but has no concrete constructor wired yet.
func (r *Registry) Build(name string) (Collector, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, ErrUnknownCollector
	}
	return ctor()
}

// Names lists every registered collector name, for admin/health introspection.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		out = append(out, name)
	}
	return out
}
