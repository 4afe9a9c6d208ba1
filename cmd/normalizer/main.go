package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/jaeyongpark0121/product-normalizer/internal/batch"
	"github.com/jaeyongpark0121/product-normalizer/internal/compositor"
	"github.com/jaeyongpark0121/product-normalizer/internal/config"
	"github.com/jaeyongpark0121/product-normalizer/internal/kafka/producer"
	"github.com/jaeyongpark0121/product-normalizer/internal/rembg"
	filestorage "github.com/jaeyongpark0121/product-normalizer/internal/storage/file"
	miniostorage "github.com/jaeyongpark0121/product-normalizer/internal/storage/minio"
)

func main() {
	// Context & signals: lets a long batch stop cleanly on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	background, err := cfg.Processor.BackgroundColor()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid background color")
	}

	// Subject-extraction collaborator (external AI service).
	remover, err := rembg.NewClient(cfg.Rembg.Endpoint, cfg.Rembg.Timeout)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create subject extraction client")
	}

	// Primary sink is the local output tree; an S3-compatible mirror is optional.
	out := filestorage.NewStorage(cfg.Paths.OutputDir)

	compCfg := compositor.Config{
		TargetWidth:  cfg.Processor.TargetWidth,
		TargetHeight: cfg.Processor.TargetHeight,
		Background:   background,
		Watermark: compositor.Watermark{
			Enabled:  cfg.Watermark.Enabled,
			Text:     cfg.Watermark.Text,
			FontPath: cfg.Watermark.FontPath,
		},
	}

	comp := compositor.New(compCfg, remover, out, nil)
	if cfg.Mirror.Enabled {
		mirror, err := miniostorage.NewStorage(
			ctx,
			cfg.Mirror.Endpoint,
			cfg.Mirror.AccessKey,
			cfg.Mirror.SecretKey,
			cfg.Mirror.BucketName,
			cfg.Mirror.UseSSL,
		)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to mirror storage")
		}
		comp = compositor.New(compCfg, remover, out, mirror)
	}

	opts := batch.Options{
		Extensions:             cfg.Processor.Extensions,
		UseAIBackgroundRemoval: cfg.Processor.UseAIBgRemoval,
		Workers:                cfg.Processor.Workers,
	}

	// Optional per-file result events.
	var runner *batch.Runner
	var pub *producer.Producer

	if cfg.Events.Enabled {
		strategy := retry.Strategy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
			Backoff:  cfg.Retry.Backoff,
		}
		pub = producer.New(&cfg.Events, strategy)
		runner = batch.New(opts, comp, pub, zlog.Logger)
	} else {
		runner = batch.New(opts, comp, nil, zlog.Logger)
	}

	if _, err := runner.Run(ctx, cfg.Paths.InputDir); err != nil {
		// A missing input root is reported, not fatal: zero files were
		// processed and the process still exits normally.
		if !errors.Is(err, batch.ErrInputDirNotFound) {
			zlog.Logger.Error().Err(err).Msg("run failed")
		}
	}

	if pub != nil {
		if err := pub.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
}
