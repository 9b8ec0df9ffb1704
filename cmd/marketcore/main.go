// Package main is the entry point for the market-intelligence data-plane
// core: it wires the collector fabric, the collection scheduler, the event
// publisher, the market-context processor, and the warehouse sink, then
// serves the push-subscription and admin HTTP surfaces until a shutdown
// signal arrives.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/bus"
	"github.com/aristath/marketcore/internal/collectors"
	collstream "github.com/aristath/marketcore/internal/collectors/stream"
	"github.com/aristath/marketcore/internal/colsched"
	"github.com/aristath/marketcore/internal/config"
	"github.com/aristath/marketcore/internal/database"
	"github.com/aristath/marketcore/internal/processor"
	"github.com/aristath/marketcore/internal/publisher"
	"github.com/aristath/marketcore/internal/pushserver"
	"github.com/aristath/marketcore/internal/quota"
	"github.com/aristath/marketcore/internal/warehouse"
	"github.com/aristath/marketcore/pkg/logger"
)

// collectionInterval is the fixed per-collector poll interval. A future
// revision could make this per-source configurable; every source shares
// one interval today.
const collectionInterval = 5 * time.Minute

func main() {
	cfg, err := config.LoadCore()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)
	log.Info().Msg("starting marketcore")

	topicBus := bus.New(cfg.TopicPrefix, log)
	pub := publisher.New(topicBus, log)

	sink := newWarehouseSink(cfg, log)

	scheduler := colsched.New(log)
	registry := collectors.NewRegistry()
	liveCollectors := make(map[string]collectors.Collector)

	registerCollectors(cfg, registry, pub, log)
	initializeEnabled(cfg, registry, scheduler, liveCollectors, log)

	consumer := processor.NewConsumer(pub, sink, log)
	httpServer := pushserver.New(consumer, scheduler, liveCollectors, cfg.AdminAPIKey, log)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, syscall.SIGINT, syscall.SIGTERM)
	<-quitCh

	log.Info().Msg("shutting down marketcore")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}

	for _, c := range liveCollectors {
		if err := c.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Str("collector", c.Name()).Msg("error closing collector")
		}
	}

	log.Info().Msg("marketcore stopped")
}

// newWarehouseSink builds the S3-backed sink when WAREHOUSE_S3_BUCKET is
// set, using the default AWS credential chain (compatible with R2 and
// other S3-compatible stores via AWS_ENDPOINT_URL_S3 / a custom resolver
// supplied in the environment). Without a bucket configured the service
// still runs — warehouse writes simply never happen, matching the
// "degrade, don't abort" posture of the rest of this startup sequence.
func newWarehouseSink(cfg *config.CoreConfig, log zerolog.Logger) warehouse.Sink {
	if cfg.WarehouseBucket == "" {
		log.Warn().Msg("WAREHOUSE_S3_BUCKET not set; market-context events will not be persisted to the warehouse")
		return warehouse.NoopSink{}
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config for warehouse sink")
	}
	client := s3.NewFromConfig(awsCfg)
	return warehouse.NewS3Sink(client, cfg.WarehouseBucket, cfg.WarehousePrefix, log)
}

// registerCollectors populates the registry with a constructor per known
// source name. Sources without a concrete adapter yet (spec §12's
// placeholder catalogue) register a constructor that always fails with
// ErrNotImplemented, so admin /collect/<source> calls and health reporting
// behave consistently regardless of implementation status.
func registerCollectors(cfg *config.CoreConfig, registry *collectors.Registry, pub *publisher.Publisher, log zerolog.Logger) {
	registry.Register("binance", func() (collectors.Collector, error) {
		return collstream.NewBinanceCollector(cfg.BinanceWSURL, pub, log), nil
	})
	registry.Register("rss", func() (collectors.Collector, error) {
		return collectors.NewRSSCollector(cfg.RSSFeedURLs, 30, pub, log), nil
	})
	registry.Register("fred", func() (collectors.Collector, error) {
		return collectors.NewFREDCollector(cfg.FREDAPIKey, cfg.FREDSeriesIDs, pub, log), nil
	})

	if cfg.TruncgilEnabled {
		db, err := database.New(database.Config{Path: cfg.QuotaDBPath, Name: "quota"})
		if err != nil {
			log.Error().Err(err).Msg("failed to open quota database; truncgil collector disabled")
		} else {
			counter, err := quota.NewCounter(db, "truncgil", quota.DefaultDailyLimit, log)
			if err != nil {
				log.Error().Err(err).Msg("failed to initialize truncgil quota counter; collector disabled")
			} else {
				registry.Register("truncgil", func() (collectors.Collector, error) {
					return collectors.NewTruncgilCollector(counter, pub, log), nil
				})
			}
		}
	}

	for _, placeholder := range []string{"reddit", "goldapi", "cryptopanic", "santiment", "lunarcrush", "tcmb"} {
		name := placeholder
		registry.Register(name, func() (collectors.Collector, error) {
			return nil, collectors.ErrNotImplemented
		})
	}
}

// initializeEnabled builds and initializes every collector whose enable
// flag is set, registering it with the scheduler and the live-collector
// map the HTTP admin/health endpoints read from. A Build or Initialize
// failure logs a warning and skips that source rather than aborting
// startup. No credential check happens here: a missing FRED key has
// already failed config validation at load time.
func initializeEnabled(cfg *config.CoreConfig, registry *collectors.Registry, scheduler *colsched.Scheduler, live map[string]collectors.Collector, log zerolog.Logger) {
	type entry struct {
		name    string
		enabled bool
	}
	for _, e := range []entry{
		{"binance", cfg.BinanceEnabled},
		{"rss", cfg.RSSEnabled && len(cfg.RSSFeedURLs) > 0},
		{"fred", cfg.FREDEnabled},
		{"truncgil", cfg.TruncgilEnabled},
	} {
		if !e.enabled {
			continue
		}
		collector, err := registry.Build(e.name)
		if err != nil {
			log.Warn().Err(err).Str("collector", e.name).Msg("collector unavailable, skipping")
			continue
		}
		if err := collector.Initialize(context.Background()); err != nil {
			log.Warn().Err(err).Str("collector", e.name).Msg("collector initialization failed, skipping")
			continue
		}
		live[e.name] = collector

		if streaming, ok := collector.(collectors.StreamingCollector); ok {
			if err := streaming.StartStream(context.Background()); err != nil {
				log.Warn().Err(err).Str("collector", e.name).Msg("failed to start collector stream")
			}
		}

		if err := scheduler.AddJob(colsched.NewCollectorJob(collector), collectionInterval); err != nil {
			log.Error().Err(err).Str("collector", e.name).Msg("failed to schedule collector")
		}
		log.Info().Str("collector", e.name).Msg("collector initialized and scheduled")
	}
}

