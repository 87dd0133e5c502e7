package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"vela/api"
	"vela/config"
	"vela/jobs/broadcaster"
	"vela/jobs/marketdata"
	"vela/outbox"
	"vela/replica"
	"vela/service"
	"vela/snapshot"
	"vela/util"
)

func main() {
	cfg := config.LoadFromEnv("")

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// ---------------- Storage ----------------

	store, err := snapshot.OpenPebble(filepath.Join(cfg.Storage.DataDir, "snapshots"))
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}
	defer store.Close()

	ob, err := outbox.Open(filepath.Join(cfg.Storage.DataDir, "outbox"))
	if err != nil {
		logger.Fatal("outbox init failed", zap.Error(err))
	}
	defer ob.Close()

	// ---------------- Service (recovery inside) ----------------

	rep := replica.New()

	svc, err := service.New(service.Config{
		WALDir:         cfg.Storage.WALDir,
		WALSegmentSize: cfg.Storage.SegmentSize,
		Pairs:          cfg.Engine.Pairs,
		Strict:         cfg.Engine.Strict,
	}, store, ob, rep, logger)
	if err != nil {
		logger.Fatal("service init failed", zap.Error(err))
	}
	defer svc.Close()

	// ---------------- Background Jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartSnapshotJob(ctx, cfg.Engine.SnapshotInterval)
	svc.StartExpiryJob(ctx, cfg.Engine.ExpiryInterval)

	bc, err := broadcaster.New(ob, cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, logger)
	if err != nil {
		logger.Warn("broadcaster init failed, events stay queued", zap.Error(err))
	} else {
		bc.Start(ctx)
		defer bc.Close()
	}

	md := marketdata.New(cfg.Kafka.Brokers, cfg.Kafka.MarketDataTopic, rep, logger)
	md.Start(ctx)
	defer md.Close()

	// ---------------- HTTP / WS ----------------

	srv := api.NewServer(svc, logger)
	go func() {
		if err := srv.Start(cfg.HTTP.Addr); err != nil {
			logger.Fatal("api server exited", zap.Error(err))
		}
	}()

	logger.Info("vela matching engine running",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Strings("pairs", cfg.Engine.Pairs))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	// Final snapshot per pair so the next start replays almost nothing.
	for _, pair := range svc.Pairs() {
		if err := svc.Snapshot(ctx, pair); err != nil {
			logger.Warn("final snapshot failed", zap.String("pair", pair), zap.Error(err))
		}
	}
}
