package pushserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketcore/internal/bus"
	"github.com/aristath/marketcore/internal/collectors"
	"github.com/aristath/marketcore/internal/colsched"
	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/processor"
	"github.com/aristath/marketcore/internal/publisher"
	"github.com/aristath/marketcore/internal/warehouse"
)

type fakeCollector struct {
	name       string
	collectErr error
	healthErr  error
	collected  int
}

func (f *fakeCollector) Name() string               { return f.name }
func (f *fakeCollector) Source() domain.Source      { return domain.SourceRSS }
func (f *fakeCollector) Initialize(ctx context.Context) error { return nil }
func (f *fakeCollector) Collect(ctx context.Context, params map[string]string) (int, error) {
	return f.collected, f.collectErr
}
func (f *fakeCollector) Close(ctx context.Context) error  { return nil }
func (f *fakeCollector) Health(ctx context.Context) error { return f.healthErr }

func newTestServer(collectorSet map[string]collectors.Collector, adminKey string) *Server {
	pub := publisher.New(bus.New("", zerolog.Nop()), zerolog.Nop())
	consumer := processor.NewConsumer(pub, warehouse.NoopSink{}, zerolog.Nop())
	scheduler := colsched.New(zerolog.Nop())
	return New(consumer, scheduler, collectorSet, adminKey, zerolog.Nop())
}

func pushBody(t *testing.T, ps domain.ProcessedSentiment, attrs map[string]string) []byte {
	t.Helper()
	raw, err := json.Marshal(ps)
	require.NoError(t, err)
	envelope := map[string]interface{}{
		"message": map[string]interface{}{
			"data":       base64.StdEncoding.EncodeToString(raw),
			"messageId":  "m1",
			"attributes": attrs,
		},
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)
	return body
}

func TestHandlePushAcceptsValidEnvelope(t *testing.T) {
	srv := newTestServer(nil, "")
	body := pushBody(t, domain.ProcessedSentiment{
		EventID: "evt-1", Symbol: "BTC", MarketType: domain.MarketCrypto,
		Sentiment: domain.Sentiment{Score: 0.2, Label: domain.SentimentNeutral},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/pubsub-push/processed-sentiment", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePushRejectsMalformedEnvelope(t *testing.T) {
	srv := newTestServer(nil, "")
	req := httptest.NewRequest(http.MethodPost, "/pubsub-push/processed-sentiment", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePushRejectsBadBase64(t *testing.T) {
	srv := newTestServer(nil, "")
	envelope := map[string]interface{}{"message": map[string]interface{}{"data": "***not-base64***"}}
	body, _ := json.Marshal(envelope)
	req := httptest.NewRequest(http.MethodPost, "/pubsub-push/processed-sentiment", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCollectUnknownSourceReturnsServiceUnavailable(t *testing.T) {
	srv := newTestServer(map[string]collectors.Collector{}, "")
	req := httptest.NewRequest(http.MethodPost, "/collect/ghost", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleCollectRequiresAdminKeyWhenConfigured(t *testing.T) {
	srv := newTestServer(map[string]collectors.Collector{"rss": &fakeCollector{name: "rss", collected: 3}}, "secret")
	req := httptest.NewRequest(http.MethodPost, "/collect/rss", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/collect/rss", nil)
	req2.Header.Set("X-API-Key", "secret")
	rec2 := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestHandleHealthReportsStatusFromCollectorMix(t *testing.T) {
	srv := newTestServer(map[string]collectors.Collector{
		"rss":     &fakeCollector{name: "rss"},
		"binance": &fakeCollector{name: "binance", healthErr: assertError{}},
	}, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "degraded", payload["status"])
}

func TestHandleReadyReturnsServiceUnavailableWhenAnyCollectorUnhealthy(t *testing.T) {
	srv := newTestServer(map[string]collectors.Collector{
		"rss": &fakeCollector{name: "rss", healthErr: assertError{}},
	}, "")
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type assertError struct{}

func (assertError) Error() string { return "unhealthy" }
