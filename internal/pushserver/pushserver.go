// Package pushserver implements the two chi-routed HTTP surfaces this core
// owns (spec §4.4, §6): the broker's push-subscription delivery endpoint
// for processed-sentiment, and the collector admin-trigger endpoints.
// Grounded on internal/server/server.go's chi.Mux + middleware + cors
// wiring, narrowed to only the routes this core is responsible for.
package pushserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/marketcore/internal/collectors"
	"github.com/aristath/marketcore/internal/colsched"
	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/processor"
)

// pushHandlerDeadline is the 60s processing ceiling from spec §5; on
// expiry the handler returns 500 so the broker redelivers.
const pushHandlerDeadline = 60 * time.Second

// maxInFlight bounds concurrent push-handler processing; beyond this the
// handler answers 429 with Retry-After (spec §4.4 backpressure).
const maxInFlight = 64

// Server owns the HTTP routing for the two endpoint families this core is
// responsible for.
type Server struct {
	router      *chi.Mux
	consumer    *processor.Consumer
	scheduler   *colsched.Scheduler
	collectors  map[string]collectors.Collector
	adminAPIKey string
	log         zerolog.Logger
	inFlight    chan struct{}
}

// New builds the router and registers routes.
func New(consumer *processor.Consumer, scheduler *colsched.Scheduler, liveCollectors map[string]collectors.Collector, adminAPIKey string, log zerolog.Logger) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		consumer:    consumer,
		scheduler:   scheduler,
		collectors:  liveCollectors,
		adminAPIKey: adminAPIKey,
		log:         log.With().Str("component", "pushserver").Logger(),
		inFlight:    make(chan struct{}, maxInFlight),
	}
	s.routes()
	return s
}

// Router exposes the chi.Mux for embedding into a larger HTTP server, or
// for http.ListenAndServe directly.
func (s *Server) Router() *chi.Mux { return s.router }

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}))

	s.router.Post("/pubsub-push/processed-sentiment", s.handlePush)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Route("/collect", func(r chi.Router) {
		r.Use(s.requireAdminKey)
		r.Post("/{source}", s.handleCollect)
	})
}

// pushEnvelope is the broker delivery envelope (spec §6).
type pushEnvelope struct {
	Message *struct {
		Data       string            `json:"data"`
		MessageID  string            `json:"messageId"`
		PublishTime string           `json:"publishTime"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	select {
	case s.inFlight <- struct{}{}:
		defer func() { <-s.inFlight }()
	default:
		err := &coreerrors.RateLimitError{RetryAfterSeconds: 5}
		s.log.Warn().Err(err).Msg("push handler at capacity, rejecting")
		w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfterSeconds))
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil || envelope.Message == nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var ps domain.ProcessedSentiment
	if err := json.Unmarshal(raw, &ps); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pushHandlerDeadline)
	defer cancel()

	var tenantID *string
	if t, ok := envelope.Message.Attributes["tenant_id"]; ok && t != "" {
		tenantID = &t
	}

	if _, err := s.consumer.Process(ctx, ps, tenantID); err != nil {
		s.log.Error().Err(err).Msg("market-context processing failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey != "" && r.Header.Get("X-API-Key") != s.adminAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	collector, ok := s.collectors[source]
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	count, err := collector.Collect(r.Context(), params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"collected": count,
		"source":    source,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total := len(s.collectors)
	active := 0
	for _, c := range s.collectors {
		if c.Health(r.Context()) == nil {
			active++
		}
	}

	var memPercent float64
	if vm, err := mem.VirtualMemory(); err == nil {
		memPercent = vm.UsedPercent
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             healthStatus(total, active),
		"total_expected":      total,
		"total_active":        active,
		"goroutines":          runtime.NumGoroutine(),
		"memory_used_percent": memPercent,
		"circuit_breakers_open": s.scheduler.OpenBreakerCount(),
	})
}

func healthStatus(total, active int) string {
	if total == 0 || active == total {
		return "healthy"
	}
	if active == 0 {
		return "unhealthy"
	}
	return "degraded"
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	readiness := make(map[string]bool, len(s.collectors))
	allReady := true
	for name, c := range s.collectors {
		ok := c.Health(r.Context()) == nil
		readiness[name] = ok
		if !ok {
			allReady = false
		}
	}
	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{"ready": allReady, "collectors": readiness})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
