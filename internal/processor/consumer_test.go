package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketcore/internal/bus"
	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/publisher"
	"github.com/aristath/marketcore/internal/warehouse"
)

type recordingSink struct {
	inserted []map[string]interface{}
	failWith error
}

func (s *recordingSink) InsertRawEvent(ctx context.Context, payload map[string]interface{}) error {
	return nil
}

func (s *recordingSink) InsertMarketContext(ctx context.Context, payload map[string]interface{}) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.inserted = append(s.inserted, payload)
	return nil
}

func newInProcessPublisher() *publisher.Publisher {
	return publisher.New(bus.New("", zerolog.Nop()), zerolog.Nop())
}

func TestConsumerProcessPublishesAndInserts(t *testing.T) {
	sink := &recordingSink{}
	consumer := NewConsumer(newInProcessPublisher(), sink, zerolog.Nop())

	ps := domain.ProcessedSentiment{
		EventID: "evt-1", Symbol: "BTC", MarketType: domain.MarketCrypto,
		Sentiment: domain.Sentiment{Score: 0.5, Label: domain.SentimentPositive},
	}

	event, err := consumer.Process(context.Background(), ps, nil)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.EventID)
	require.Len(t, sink.inserted, 1)
	assert.Equal(t, "BTC", sink.inserted[0]["symbol"])
}

func TestConsumerProcessReturnsWarehouseError(t *testing.T) {
	sink := &recordingSink{failWith: errors.New("disk full")}
	consumer := NewConsumer(newInProcessPublisher(), sink, zerolog.Nop())

	ps := domain.ProcessedSentiment{EventID: "evt-2", Symbol: "ETH", MarketType: domain.MarketCrypto}
	_, err := consumer.Process(context.Background(), ps, nil)
	assert.Error(t, err)
}

var _ warehouse.Sink = (*recordingSink)(nil)
