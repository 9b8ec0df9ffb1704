// Package publisher implements the event publisher (spec §4.3): it
// serializes RawEvents and ProcessedSentiments to the topic bus with
// filterable attributes, and exposes batched publishing with
// partial-failure semantics.
package publisher

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/bus"
	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
	"github.com/aristath/marketcore/internal/domain"
)

// Publisher publishes RawEvents and ProcessedSentiments to the bus. Its
// underlying bus client must be safe for concurrent callers (spec §5); the
// teacher's InProcessBus and any real broker client satisfy that.
type Publisher struct {
	bus bus.Bus
	log zerolog.Logger
}

// New constructs a Publisher over the given bus.
func New(b bus.Bus, log zerolog.Logger) *Publisher {
	return &Publisher{bus: b, log: log.With().Str("component", "publisher").Logger()}
}

// PublishRawEvent serializes event to JSON and publishes it to raw-events
// with attributes source, event_id, and (when present) tenant_id and
// comma-joined symbols. Returns the broker-assigned message id.
func (p *Publisher) PublishRawEvent(ctx context.Context, event *domain.RawEvent) (string, error) {
	return p.publish(ctx, bus.TopicRawEvents, event, eventAttributes(event))
}

// PublishProcessedSentiment publishes a ProcessedSentiment to
// processed-sentiment. The publisher supports this entry point for
// testability even though production traffic on this topic is normally
// authored by the upstream sentiment enricher, not this service (spec §4.3).
func (p *Publisher) PublishProcessedSentiment(ctx context.Context, ps *domain.ProcessedSentiment) (string, error) {
	attrs := map[string]string{
		"source": string(ps.Source),
		"symbol": ps.Symbol,
	}
	return p.publish(ctx, bus.TopicProcessedSentiment, ps, attrs)
}

// PublishMarketContext publishes a MarketContextEvent to market-context
// with attributes event_type=market_context, symbol, market_type (spec
// §4.4 step 2).
func (p *Publisher) PublishMarketContext(ctx context.Context, event *domain.MarketContextEvent) (string, error) {
	attrs := map[string]string{
		"event_type":  "market_context",
		"symbol":      event.Symbol,
		"market_type": string(event.MarketType),
	}
	return p.publish(ctx, bus.TopicMarketContext, event, attrs)
}

// PublishAnomaly publishes an AnomalyDetection to anomalies with
// attributes event_type, severity, symbol (mirrors the original
// publish_anomaly attribute shape).
func (p *Publisher) PublishAnomaly(ctx context.Context, anomaly *domain.AnomalyDetection) (string, error) {
	attrs := map[string]string{
		"event_type": string(anomaly.AnomalyType),
		"severity":   string(anomaly.Severity),
		"symbol":     anomaly.Symbol,
	}
	return p.publish(ctx, bus.TopicAnomalies, anomaly, attrs)
}

func eventAttributes(event *domain.RawEvent) map[string]string {
	attrs := map[string]string{
		"source":   string(event.Source),
		"event_id": event.EventID,
	}
	if event.TenantID != nil {
		attrs["tenant_id"] = *event.TenantID
	}
	if len(event.Symbols) > 0 {
		attrs["symbols"] = strings.Join(event.Symbols, ",")
	}
	return attrs
}

func (p *Publisher) publish(ctx context.Context, topic string, payload interface{}, attrs map[string]string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", &coreerrors.ExternalServiceError{Service: "publisher", Details: "marshal failed", Err: err}
	}
	id, err := p.bus.Publish(ctx, bus.Message{Topic: topic, Payload: data, Attributes: attrs})
	if err != nil {
		return "", &coreerrors.ExternalServiceError{Service: "publisher", Details: "broker publish failed", Err: err}
	}
	return id, nil
}

// BatchResult is the per-batch partial-failure report: succeeded message
// ids in input order (empty string where that index failed) plus the error
// text for each failed index.
type BatchResult struct {
	MessageIDs []string
	Errors     map[int]string
}

// PublishEvents attempts every event independently; it never short-circuits
// mid-batch. It returns a *coreerrors.PubSubError iff at least one event
// failed, with Total == len(events) and FirstErrors capped at 5, alongside
// the full BatchResult so the caller can recover per-event message ids for
// every event that did succeed.
func (p *Publisher) PublishEvents(ctx context.Context, events []*domain.RawEvent) (BatchResult, error) {
	result := BatchResult{
		MessageIDs: make([]string, len(events)),
		Errors:     make(map[int]string),
	}
	if len(events) == 0 {
		return result, nil
	}

	succeeded := 0
	var firstErrors []string
	for i, event := range events {
		id, err := p.PublishRawEvent(ctx, event)
		if err != nil {
			msg := err.Error()
			result.Errors[i] = msg
			if len(firstErrors) < 5 {
				firstErrors = append(firstErrors, msg)
			}
			p.log.Error().Err(err).Str("event_id", event.EventID).Int("index", i).Msg("failed to publish event in batch")
			continue
		}
		result.MessageIDs[i] = id
		succeeded++
	}

	if succeeded < len(events) {
		return result, &coreerrors.PubSubError{
			Total:       len(events),
			Succeeded:   succeeded,
			Failed:      len(events) - succeeded,
			FirstErrors: firstErrors,
		}
	}
	return result, nil
}

// SucceededMessageID is a convenience accessor matching the spec's "the
// remaining N message ids are available to the caller" requirement.
func (r BatchResult) SucceededMessageID(index int) (string, bool) {
	if index < 0 || index >= len(r.MessageIDs) {
		return "", false
	}
	if _, failed := r.Errors[index]; failed {
		return "", false
	}
	id := r.MessageIDs[index]
	return id, id != ""
}
