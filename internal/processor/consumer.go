package processor

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/publisher"
	"github.com/aristath/marketcore/internal/warehouse"
)

// Consumer is the market-context processor's per-message work (spec §4.4):
// build a MarketContextEvent, publish it, and insert it into the warehouse,
// with the publish and insert running in parallel while the handler waits
// for both.
type Consumer struct {
	publisher *publisher.Publisher
	sink      warehouse.Sink
	log       zerolog.Logger
}

// NewConsumer constructs a Consumer over the shared publisher and sink.
func NewConsumer(pub *publisher.Publisher, sink warehouse.Sink, log zerolog.Logger) *Consumer {
	return &Consumer{publisher: pub, sink: sink, log: log.With().Str("component", "market_context_consumer").Logger()}
}

// Process constructs the context event, fans out the publish and the
// warehouse insert, and returns once both finish. Either failing returns an
// error (the push handler maps this to a 500 for broker redelivery).
func (c *Consumer) Process(ctx context.Context, ps domain.ProcessedSentiment, tenantID *string) (domain.MarketContextEvent, error) {
	event := domain.NewMarketContextEvent(ps, tenantID)

	var pubErr, insErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, pubErr = c.publisher.PublishMarketContext(ctx, &event)
	}()
	go func() {
		defer wg.Done()
		insErr = c.sink.InsertMarketContext(ctx, marketContextPayload(event))
	}()
	wg.Wait()

	if pubErr != nil {
		c.log.Error().Err(pubErr).Str("event_id", event.EventID).Msg("failed to publish market context")
		return event, pubErr
	}
	if insErr != nil {
		c.log.Error().Err(insErr).Str("event_id", event.EventID).Msg("failed to insert market context into warehouse")
		return event, insErr
	}
	return event, nil
}

func marketContextPayload(event domain.MarketContextEvent) map[string]interface{} {
	data, _ := json.Marshal(event)
	var payload map[string]interface{}
	_ = json.Unmarshal(data, &payload)
	return payload
}
