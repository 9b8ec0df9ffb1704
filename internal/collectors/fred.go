package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/publisher"
)

// fredObservationsResponse is the subset of the FRED (Federal Reserve
// Economic Data) observations API this collector consumes.
type fredObservationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FREDCollector is an event-based economic-indicator collector polling the
// FRED observations endpoint for a configured set of series ids.
type FREDCollector struct {
	Base
	apiKey      string
	seriesIDs   []string
	baseURL     string
	rateLimiter *RateLimiter
}

// NewFREDCollector constructs a FRED collector. apiKey is not checked here:
// the collector is registered regardless, and config.Validate rejects
// COLLECTOR_FRED_ENABLED without FRED_API_KEY.
func NewFREDCollector(apiKey string, seriesIDs []string, pub *publisher.Publisher, log zerolog.Logger) *FREDCollector {
	return &FREDCollector{
		Base:        NewBase("fred", domain.SourceEconomicIndicator, pub, log),
		apiKey:      apiKey,
		seriesIDs:   seriesIDs,
		baseURL:     "https://api.stlouisfed.org/fred/series/observations",
		rateLimiter: NewRateLimiter(60),
	}
}

// Collect fetches the latest observation for each configured series id (or
// just params["series_id"] if set) and emits one RawEvent per observation.
func (c *FREDCollector) Collect(ctx context.Context, params map[string]string) (int, error) {
	seriesIDs := c.seriesIDs
	if id, ok := params["series_id"]; ok && id != "" {
		seriesIDs = []string{id}
	}
	if len(seriesIDs) == 0 {
		return 0, nil
	}

	var events []*domain.RawEvent
	now := time.Now().UTC()
	for _, id := range seriesIDs {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
		obs, err := c.fetchLatest(ctx, id)
		if err != nil {
			c.Log().Warn().Err(err).Str("series_id", id).Msg("fred fetch failed")
			continue
		}
		if obs == nil {
			continue
		}
		event, err := c.observationToEvent(id, *obs, now)
		if err != nil {
			c.Log().Warn().Err(err).Msg("skipping malformed fred observation")
			continue
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return 0, nil
	}
	report, err := c.PublishEvents(ctx, events)
	return report.Succeeded, err
}

func (c *FREDCollector) fetchLatest(ctx context.Context, seriesID string) (*struct{ Date, Value string }, error) {
	url := fmt.Sprintf("%s?series_id=%s&api_key=%s&file_type=json&sort_order=desc&limit=1", c.baseURL, seriesID, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient().Do(req)
	if err != nil {
		return nil, &coreerrors.ExternalServiceError{Service: "fred", Details: seriesID, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &coreerrors.ExternalServiceError{Service: "fred", StatusCode: resp.StatusCode, Details: seriesID}
	}
	var parsed fredObservationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Observations) == 0 {
		return nil, nil
	}
	return &struct{ Date, Value string }{Date: parsed.Observations[0].Date, Value: parsed.Observations[0].Value}, nil
}

func (c *FREDCollector) observationToEvent(seriesID string, obs struct{ Date, Value string }, now time.Time) (*domain.RawEvent, error) {
	content := fmt.Sprintf("%s: %s on %s", seriesID, obs.Value, obs.Date)
	metadata := domain.Metadata{
		"series_id": seriesID,
		"value":     obs.Value,
		"date":      obs.Date,
	}
	sourceID := fmt.Sprintf("%s:%s", seriesID, obs.Date)
	return domain.NewRawEvent(domain.SourceEconomicIndicator, sourceID, content, metadata, nil, now)
}
