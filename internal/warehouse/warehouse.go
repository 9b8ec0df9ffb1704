// Package warehouse implements the thin data-warehouse sink (spec §6): an
// append-only analytical store, interface-only from the core's point of
// view. Sink is consumed by the market-context processor and (indirectly)
// by gateway reads, which are out of this core's scope.
package warehouse

import "context"

// Sink is the interface the core depends on. Writes are expected to be
// transactionally durable and idempotent on event_id/context_id; the core
// never assumes a specific storage technology.
type Sink interface {
	InsertRawEvent(ctx context.Context, payload map[string]interface{}) error
	InsertMarketContext(ctx context.Context, payload map[string]interface{}) error
}

// NoopSink discards every write. Used when no warehouse bucket is
// configured, so the rest of the pipeline runs unmodified rather than
// forcing a storage dependency on local/dev deployments.
type NoopSink struct{}

func (NoopSink) InsertRawEvent(ctx context.Context, payload map[string]interface{}) error {
	return nil
}

func (NoopSink) InsertMarketContext(ctx context.Context, payload map[string]interface{}) error {
	return nil
}
