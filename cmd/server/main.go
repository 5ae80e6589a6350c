package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"matchbook/api/httpapi"
	"matchbook/cfg"
	"matchbook/domain/book"
	"matchbook/infra/eventlog"
	"matchbook/infra/kafka"
	"matchbook/infra/logger"
	"matchbook/infra/sequence"
	"matchbook/infra/wal"
	"matchbook/jobs/broadcaster"
	"matchbook/monitoring"
	"matchbook/pricing"
	"matchbook/service"
)

func main() {
	config := cfg.MustLoad()

	log, sync := logger.New(config.Prod)
	defer func() { _ = sync() }()

	monitoring.InitMetrics()

	conv, err := pricing.NewConverter(config.TickSize)
	if err != nil {
		log.Error("bad tick size", "err", err)
		os.Exit(1)
	}

	// ---------------- Durability ----------------

	entryWAL, err := wal.Open(wal.Config{
		Dir:         config.WALDir,
		SegmentSize: config.WALSegmentSize,
	})
	if err != nil {
		log.Error("entry WAL init failed", "err", err)
		os.Exit(1)
	}
	defer entryWAL.Close()

	outbox, err := eventlog.Open(config.OutboxDir)
	if err != nil {
		log.Error("outbox init failed", "err", err)
		os.Exit(1)
	}
	defer outbox.Close()

	// ---------------- Domain + recovery ----------------

	b := book.NewBook()
	seqGen := sequence.New(0)

	if err := service.Recover(config.SnapshotDir, config.WALDir, b, seqGen, log); err != nil {
		log.Error("recovery failed", "err", err)
		os.Exit(1)
	}

	// ---------------- Service ----------------

	ticks := kafka.NewProducer(config.Kafka.Brokers, config.Kafka.TickTopic)
	defer ticks.Close()

	svc := service.New(b, seqGen, entryWAL, outbox, ticks, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc.StartSnapshotJob(ctx, config.SnapshotDir, config.SnapshotInterval)

	if len(config.Kafka.Brokers) > 0 {
		bc, err := broadcaster.New(
			outbox,
			config.Kafka.Brokers,
			config.Kafka.TradeTopic,
			config.Kafka.BroadcastInterval,
			log,
		)
		if err != nil {
			log.Error("broadcaster init failed", "err", err)
			os.Exit(1)
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	// ---------------- HTTP ----------------

	if config.Prod {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	httpapi.NewServer(svc, conv, log).RegisterRoutes(engine)

	srv := &http.Server{
		Addr:    config.ListenAddr,
		Handler: engine,
	}

	go func() {
		log.Info("matchbook engine listening", "addr", config.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "err", err)
	}
	if err := entryWAL.Sync(); err != nil {
		log.Warn("wal sync failed", "err", err)
	}
}
