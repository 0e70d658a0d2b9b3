package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openwebdata/watlinks/internal/config"
	"github.com/openwebdata/watlinks/internal/job"
	"github.com/openwebdata/watlinks/internal/logging"
	"github.com/openwebdata/watlinks/internal/metrics"
	"github.com/openwebdata/watlinks/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("WATLINKS_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	metrics.Init("watlinks")
	metrics.Serve(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Address: cfg.Metrics.Address,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Printf("[shutdown] received signal: %v", sig)
		cancel()
	}()

	source, err := storage.Open(ctx, cfg.Source.BucketURL)
	if err != nil {
		log.Fatalf("[main] failed to open source bucket: %v", err)
	}
	defer source.Close()

	output, err := storage.Open(ctx, cfg.Job.OutputPath)
	if err != nil {
		log.Fatalf("[main] failed to open output bucket: %v", err)
	}
	defer output.Close()

	j, err := job.New(cfg, source, output)
	if err != nil {
		log.Fatalf("[main] failed to create job: %v", err)
	}

	if err := j.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Printf("[main] shutdown complete")
			return
		}
		log.Fatalf("[main] job failed: %v", err)
	}
}
