package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/collectors/cache"
	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/publisher"
	"github.com/aristath/marketcore/internal/quota"
)

// truncgilEndpoint is the upstream Turkish gold/FX quote feed, grounded on
// original_source/services/ingestion/src/collectors/turkish_sources/truncgil.py.
const truncgilEndpoint = "https://finans.truncgil.com/today.json"

// truncgilSymbolMap maps the upstream Turkish field names to canonical
// symbols this collector emits.
var truncgilSymbolMap = map[string]string{
	"GRA":    "XAUTRY", // gram gold
	"CEYREK": "XAUTRY",
	"ONS":    "XAUUSD", // spot ounce, quoted in USD upstream
	"USD":    "USDTRY",
	"EUR":    "EURTRY",
}

type truncgilQuote struct {
	Alis string `json:"Alış"`
	Satis string `json:"Satış"`
}

// TruncgilCollector scrapes the Turkish finans.truncgil.com quote feed for
// gold and FX prices quoted in Turkish numeric format (dot thousands
// separator, comma decimal point), and is quota-tracked per spec §6.
type TruncgilCollector struct {
	Base
	counter     *quota.Counter
	cache       *cache.ResponseCache
	rateLimiter *RateLimiter
}

// NewTruncgilCollector constructs the collector. counter may be nil when
// quota persistence is unavailable in a given deployment; the collector
// still functions, it simply skips quota accounting.
func NewTruncgilCollector(counter *quota.Counter, pub *publisher.Publisher, log zerolog.Logger) *TruncgilCollector {
	return &TruncgilCollector{
		Base:        NewBase("truncgil", domain.SourceSpotMetal, pub, log),
		counter:     counter,
		cache:       cache.New(30 * time.Second),
		rateLimiter: NewRateLimiter(30),
	}
}

// Collect fetches the quote feed (served from the 30s cache when fresh),
// parses Turkish-formatted numbers, and emits one RawEvent per recognized
// instrument.
func (c *TruncgilCollector) Collect(ctx context.Context, params map[string]string) (int, error) {
	now := time.Now().UTC()

	var raw map[string]json.RawMessage
	if !c.cache.Get("today", &raw, now) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
		fetched, err := c.fetch(ctx)
		if err != nil {
			return 0, err
		}
		if c.counter != nil {
			if _, err := c.counter.Increment(ctx, now); err != nil {
				c.Log().Warn().Err(err).Msg("quota counter increment failed")
			}
		}
		raw = fetched
		if err := c.cache.Set("today", raw, now); err != nil {
			c.Log().Warn().Err(err).Msg("failed to cache truncgil response")
		}
	}

	var events []*domain.RawEvent
	for upstreamKey, symbol := range truncgilSymbolMap {
		payload, ok := raw[upstreamKey]
		if !ok {
			continue
		}
		var q truncgilQuote
		if err := json.Unmarshal(payload, &q); err != nil {
			continue
		}
		buy, err := parseTurkishNumber(q.Alis)
		if err != nil {
			continue
		}
		sell, err := parseTurkishNumber(q.Satis)
		if err != nil {
			continue
		}
		content := fmt.Sprintf("%s buy %.4f sell %.4f", symbol, buy, sell)
		metadata := domain.Metadata{"buy": buy, "sell": sell, "upstream_key": upstreamKey}
		sourceID := fmt.Sprintf("truncgil:%s:%s", upstreamKey, now.Format("2006-01-02T15:04"))
		event, err := domain.NewRawEvent(domain.SourceSpotMetal, sourceID, content, metadata, []string{symbol}, now)
		if err != nil {
			c.Log().Warn().Err(err).Msg("skipping malformed truncgil quote")
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

func (c *TruncgilCollector) fetch(ctx context.Context) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, truncgilEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient().Do(req)
	if err != nil {
		return nil, &coreerrors.ExternalServiceError{Service: "truncgil", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &coreerrors.ExternalServiceError{Service: "truncgil", StatusCode: resp.StatusCode}
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// parseTurkishNumber removes the Turkish thousands separator ('.') and
// converts the Turkish decimal comma (',') to a dot, grounded on the
// original _parse_price behaviour.
func parseTurkishNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
