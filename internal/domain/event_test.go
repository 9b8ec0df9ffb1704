package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
)

func TestNewRawEvent(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	event, err := NewRawEvent(SourceExchange, "binance:BTCUSDT:1", "BTC breaks out", nil, []string{"btc"}, now)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(event.EventID)
	assert.NoError(t, parseErr)
	assert.Equal(t, []string{"BTC"}, event.Symbols)
	assert.Equal(t, now, event.CollectedAt)
	assert.NoError(t, event.Validate())
}

func TestNewRawEventRejectsInvalidSource(t *testing.T) {
	_, err := NewRawEvent(Source("bogus"), "id", "content", nil, nil, time.Now())
	var validationErr *coreerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNewRawEventRejectsOversizedSymbol(t *testing.T) {
	_, err := NewRawEvent(SourceRSS, "id", "content", nil, []string{"WAYTOOLONGASYMBOL"}, time.Now())
	var validationErr *coreerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNewRawEventRejectsSymbolOutsideCanonicalVocabulary(t *testing.T) {
	_, err := NewRawEvent(SourceRSS, "id", "content", nil, []string{"ZZZ9"}, time.Now())
	var validationErr *coreerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestRawEventValidateRejectsSymbolOutsideCanonicalVocabulary(t *testing.T) {
	event := &RawEvent{
		EventID:     uuid.NewString(),
		Source:      SourceRSS,
		CollectedAt: time.Now(),
		Symbols:     []string{"ZZZ9"},
	}
	var validationErr *coreerrors.ValidationError
	require.ErrorAs(t, event.Validate(), &validationErr)
}

func TestRawEventValidateRejectsPublishedAfterCollected(t *testing.T) {
	collected := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	published := collected.Add(time.Hour)
	event := &RawEvent{
		EventID:     uuid.NewString(),
		Source:      SourceRSS,
		CollectedAt: collected,
		PublishedAt: &published,
	}
	assert.Error(t, event.Validate())
}

func TestNewMarketContextEventMintsFreshContextIDOnRedelivery(t *testing.T) {
	ps := ProcessedSentiment{
		EventID:    "evt-1",
		Symbol:     "BTC",
		MarketType: MarketCrypto,
		Sentiment:  Sentiment{Score: 0.4, Label: SentimentPositive, Confidence: 0.8},
		Timestamp:  time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC),
		Source:     SourceExchange,
	}

	first := NewMarketContextEvent(ps, nil)
	second := NewMarketContextEvent(ps, nil)

	assert.NotEqual(t, first.ContextID, second.ContextID)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, first.SentimentScore, second.SentimentScore)
}

func TestNewMarketContextEventPropagatesTenant(t *testing.T) {
	tenant := "tenant-a"
	ps := ProcessedSentiment{EventID: "evt-2", Symbol: "ETH", MarketType: MarketCrypto}
	event := NewMarketContextEvent(ps, &tenant)
	require.NotNil(t, event.TenantID)
	assert.Equal(t, tenant, *event.TenantID)
}
