package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
)

// Source is the closed set of collector categories.
type Source string

const (
	SourceExchange          Source = "exchange"
	SourceNewsAPI           Source = "news-api"
	SourceSocial            Source = "social"
	SourceRSS               Source = "rss"
	SourceSpotMetal         Source = "spot-metal"
	SourceCentralBank       Source = "central-bank"
	SourceEconomicIndicator Source = "economic-indicator"
	SourceCustom            Source = "custom"
)

// ValidSources enumerates the closed Source set for exhaustive validation.
var ValidSources = map[Source]bool{
	SourceExchange: true, SourceNewsAPI: true, SourceSocial: true,
	SourceRSS: true, SourceSpotMetal: true, SourceCentralBank: true,
	SourceEconomicIndicator: true, SourceCustom: true,
}

// MetadataValue is an open sum type for RawEvent.Metadata values: string,
// integer, real, boolean, or a nested mapping. JSON marshaling is whatever
// the Go value naturally produces; accessor helpers below give typed reads.
type MetadataValue = interface{}

// Metadata maps source-specific fields to primitive or nested values.
type Metadata map[string]MetadataValue

// String reads key as a string, returning ok=false on absence or type mismatch.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float64 reads key as a float64, accepting int/int64/float64 representations.
func (m Metadata) Float64(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// RawEvent is the atom of ingestion, produced by a collector and published
// exactly once to the raw-events topic. It is immutable after publish.
type RawEvent struct {
	EventID     string    `json:"event_id"`
	Source      Source    `json:"source"`
	SourceID    string    `json:"source_id"`
	Content     string    `json:"content"`
	Metadata    Metadata  `json:"metadata"`
	CollectedAt time.Time `json:"collected_at"`
	PublishedAt *time.Time `json:"published_at"`
	Symbols     []string  `json:"symbols"`
	Title       *string   `json:"title"`
	URL         *string   `json:"url"`
	Author      *string   `json:"author"`
	// TenantID is an optional top-level attribute, propagated to message
	// attributes when present. Never synthesized; see spec open question.
	TenantID *string `json:"tenant_id,omitempty"`
}

// NewRawEvent constructs a RawEvent with a freshly assigned UUID and
// collected_at stamped to now. Symbols are normalized and validated; an
// invalid symbol is a caller bug and returns an error rather than silently
// dropping data, since the invariant is collector-owned.
func NewRawEvent(source Source, sourceID, content string, metadata Metadata, symbols []string, now time.Time) (*RawEvent, error) {
	if !ValidSources[source] {
		return nil, &coreerrors.ValidationError{Field: "source", Reason: fmt.Sprintf("%q is not a recognized source", source)}
	}
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if len(n) == 0 || len(n) > 12 {
			return nil, &coreerrors.ValidationError{Field: "symbols", Reason: fmt.Sprintf("%q exceeds canonical length bound", s)}
		}
		if !symbolPattern.MatchString(n) {
			return nil, &coreerrors.ValidationError{Field: "symbols", Reason: fmt.Sprintf("%q fails canonical-symbol pattern", s)}
		}
		if !CanonicalVocabulary[n] {
			return nil, &coreerrors.ValidationError{Field: "symbols", Reason: fmt.Sprintf("%q is not in the canonical vocabulary", s)}
		}
		normalized = append(normalized, n)
	}
	if metadata == nil {
		metadata = Metadata{}
	}
	return &RawEvent{
		EventID:     uuid.NewString(),
		Source:      source,
		SourceID:    sourceID,
		Content:     content,
		Metadata:    metadata,
		CollectedAt: now.UTC(),
		Symbols:     normalized,
	}, nil
}

// Validate checks the cross-field invariants from the data model:
// collected_at >= published_at when both present, and well-formed symbols.
func (e *RawEvent) Validate() error {
	if _, err := uuid.Parse(e.EventID); err != nil {
		return fmt.Errorf("domain: event_id not a well-formed uuid: %w", err)
	}
	if e.PublishedAt != nil && e.CollectedAt.Before(*e.PublishedAt) {
		return fmt.Errorf("domain: collected_at %s precedes published_at %s", e.CollectedAt, *e.PublishedAt)
	}
	for _, s := range e.Symbols {
		if !symbolPattern.MatchString(s) {
			return &coreerrors.ValidationError{Field: "symbols", Reason: fmt.Sprintf("%q fails canonical-symbol pattern", s)}
		}
		if !CanonicalVocabulary[s] {
			return &coreerrors.ValidationError{Field: "symbols", Reason: fmt.Sprintf("%q is not in the canonical vocabulary", s)}
		}
	}
	return nil
}

// SentimentLabel is the closed enum for ProcessedSentiment.Sentiment.Label.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// MarketType is the closed enum shared by ProcessedSentiment and
// MarketContextEvent.
type MarketType string

const (
	MarketCrypto  MarketType = "crypto"
	MarketGold    MarketType = "gold"
	MarketGeneric MarketType = "generic"
)

// Sentiment is the nested sentiment payload on ProcessedSentiment.
type Sentiment struct {
	Score      float64        `json:"score"`
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}

// ProcessedSentiment is authored by an upstream sentiment enricher (an
// external collaborator in this core's scope) and consumed by the
// market-context processor's push handler.
type ProcessedSentiment struct {
	EventID    string     `json:"event_id"`
	Symbol     string     `json:"symbol"`
	MarketType MarketType `json:"market_type"`
	Sentiment  Sentiment  `json:"sentiment"`
	Timestamp  time.Time  `json:"timestamp"`
	Source     Source     `json:"source"`
}

// MarketContextEvent is emitted by the processor per processed input.
type MarketContextEvent struct {
	ContextID      string     `json:"context_id"`
	EventID        string     `json:"event_id"`
	Symbol         string     `json:"symbol"`
	MarketType     MarketType `json:"market_type"`
	SentimentScore float64    `json:"sentiment_score"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
	Source         Source     `json:"source"`
	Timestamp      time.Time  `json:"timestamp"`
	TenantID       *string    `json:"tenant_id,omitempty"`
}

// NewMarketContextEvent builds a fresh context event from a processed
// sentiment reading. Each call mints a new ContextID even when replaying the
// same envelope, by design: redelivery is safe because EventID/Timestamp
// stay stable while ContextID does not (see spec idempotence laws).
func NewMarketContextEvent(ps ProcessedSentiment, tenantID *string) MarketContextEvent {
	return MarketContextEvent{
		ContextID:      uuid.NewString(),
		EventID:        ps.EventID,
		Symbol:         ps.Symbol,
		MarketType:     ps.MarketType,
		SentimentScore: ps.Sentiment.Score,
		SentimentLabel: ps.Sentiment.Label,
		Source:         ps.Source,
		Timestamp:      ps.Timestamp,
		TenantID:       tenantID,
	}
}
