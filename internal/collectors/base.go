package collectors

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/publisher"
)

// httpClientTimeout is the per-request ceiling from spec §5 ("typical: 10s
// connect, 30s total").
const httpClientTimeout = 30 * time.Second

// Base is embedded by every concrete collector. It owns the HTTP session
// lifecycle (acquired on Initialize, released on Close, per spec §9's
// "per-collector async HTTP session" note) and the publish-events helper
// that implements the event-based partial-failure contract.
type Base struct {
	name       string
	source     domain.Source
	publisher  *publisher.Publisher
	log        zerolog.Logger
	httpClient *http.Client
}

// NewBase constructs the embeddable Base for a concrete collector.
func NewBase(name string, source domain.Source, pub *publisher.Publisher, log zerolog.Logger) Base {
	return Base{
		name:      name,
		source:    source,
		publisher: pub,
		log:       log.With().Str("component", "collector").Str("collector", name).Logger(),
	}
}

// Name returns the collector's registry name.
func (b *Base) Name() string { return b.name }

// Source returns the collector's RawEvent source enum value.
func (b *Base) Source() domain.Source { return b.source }

// Initialize acquires the HTTP client. Concrete collectors that need
// custom transports (e.g. the streaming collectors' websocket dialer)
// override this by calling InitHTTPClient themselves with a tailored
// *http.Client before their own setup.
func (b *Base) Initialize(ctx context.Context) error {
	b.InitHTTPClient(&http.Client{Timeout: httpClientTimeout})
	return nil
}

// InitHTTPClient installs a caller-provided HTTP client, overriding the
// default built by Initialize.
func (b *Base) InitHTTPClient(client *http.Client) {
	b.httpClient = client
}

// HTTPClient returns the collector's HTTP client, or nil before Initialize.
func (b *Base) HTTPClient() *http.Client { return b.httpClient }

// Close releases the HTTP client. Safe to call even if Collect raised.
func (b *Base) Close(ctx context.Context) error {
	if b.httpClient != nil {
		b.httpClient.CloseIdleConnections()
	}
	return nil
}

// Health reports ok as long as the HTTP client has been initialized. A
// concrete collector can override Health for a deeper upstream probe.
func (b *Base) Health(ctx context.Context) error {
	if b.httpClient == nil {
		return ErrNotInitialized
	}
	return nil
}

// Log returns the collector-scoped logger.
func (b *Base) Log() zerolog.Logger { return b.log }

// PublishReport mirrors the batch publish outcome in collector-facing terms.
type PublishReport struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []string
}

// PublishEvents attempts every event independently via the shared
// publisher's batch API: it never short-circuits mid-batch, and it fails
// as a whole only when the failed count exceeds 0 after every event has
// been attempted (spec §4.1).
func (b *Base) PublishEvents(ctx context.Context, events []*domain.RawEvent) (PublishReport, error) {
	result, err := b.publisher.PublishEvents(ctx, events)
	report := PublishReport{Total: len(events)}
	for i := range events {
		if _, ok := result.SucceededMessageID(i); ok {
			report.Succeeded++
		}
	}
	report.Failed = report.Total - report.Succeeded
	for i := 0; i < len(events) && len(report.Errors) < 5; i++ {
		if msg, failed := result.Errors[i]; failed {
			report.Errors = append(report.Errors, msg)
		}
	}
	return report, err
}
