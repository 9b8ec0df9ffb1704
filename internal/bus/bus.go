// Package bus defines the topic-bus abstraction the pipeline publishes
// through (spec §6, glossary "Topic bus") and an in-process implementation
// suitable for a single service instance or tests. A production deployment
// swaps Bus for a real broker client (e.g. Pub/Sub, SQS, Kafka) behind the
// same interface; the core never depends on a concrete broker.
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Topic names fixed by spec §6.
const (
	TopicRawEvents          = "raw-events"
	TopicProcessedSentiment = "processed-sentiment"
	TopicMarketContext      = "market-context"
	TopicAnomalies          = "anomalies"
)

// Message is a single published payload with filterable attributes.
type Message struct {
	Topic      string
	Payload    []byte
	Attributes map[string]string
}

// Bus is the broker capability the publisher and processor depend on.
// Publish returns the broker-assigned message id on success (at-least-once
// delivery; subscribers dedupe on event_id per spec §4.3).
type Bus interface {
	Publish(ctx context.Context, msg Message) (messageID string, err error)
	// Subscribe registers a push-style handler invoked for every message on
	// topic. The in-process implementation calls it synchronously from
	// Publish; a real push-subscription broker would instead deliver via
	// HTTP to internal/pushserver, which is why Subscribe is only used in
	// tests and local/dev wiring here.
	Subscribe(topic string, handler func(Message))
}

// InProcessBus fans a Publish call out to any handlers registered on the
// same topic, synchronously, with topic-prefixing applied the way the
// teacher's deployment-aware config namespaces resources. Safe for
// concurrent callers (the event publisher is shared, per spec §5).
type InProcessBus struct {
	prefix string
	log    zerolog.Logger

	mu       sync.RWMutex
	handlers map[string][]func(Message)
}

// New creates an in-process bus. topicPrefix is prepended to every topic
// name (spec §6 TOPIC_PREFIX env var), letting multiple environments share
// a broker namespace without collision.
func New(topicPrefix string, log zerolog.Logger) *InProcessBus {
	return &InProcessBus{
		prefix:   topicPrefix,
		log:      log.With().Str("component", "bus").Logger(),
		handlers: make(map[string][]func(Message)),
	}
}

func (b *InProcessBus) qualify(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + "." + topic
}

// Subscribe registers handler for topic (unqualified name; prefixing is
// applied internally so callers never think about the deployment prefix).
func (b *InProcessBus) Subscribe(topic string, handler func(Message)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.qualify(topic)
	b.handlers[q] = append(b.handlers[q], handler)
}

// Publish assigns a message id and invokes every handler registered on the
// message's topic. A handler panic or error must not prevent sibling
// handlers from running; handlers are expected to handle their own errors,
// matching the partial-failure semantics the rest of the pipeline follows.
func (b *InProcessBus) Publish(ctx context.Context, msg Message) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	messageID := uuid.NewString()
	q := b.qualify(msg.Topic)

	b.mu.RLock()
	handlers := append([]func(Message){}, b.handlers[q]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error().Interface("panic", r).Str("topic", msg.Topic).Msg("bus handler panicked")
				}
			}()
			h(msg)
		}()
	}
	b.log.Debug().Str("topic", msg.Topic).Str("message_id", messageID).Int("handlers", len(handlers)).Msg("published")
	return messageID, nil
}
