package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	fromStart := flag.Bool("from-start", false, "replay retained events for a new group")
	untilRun := flag.String("run", "", "exit once this run completes or fails")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitConfig
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumer := kafka.NewConsumer(cfg.Kafka, *fromStart)
	defer consumer.Close()
	slog.Info("following run events", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.ConsumerGroup)

	exit := apperrors.ExitOK
	err = notify.Follow(ctx, consumer, func(ev notify.RunEvent) error {
		attrs := []any{
			"run_id", ev.RunID,
			"status", ev.Status,
			"measure", ev.Measure,
			"output", ev.Output,
			"time", ev.Time,
		}
		switch ev.Status {
		case notify.StatusFailed:
			slog.Error("run event", append(attrs, "stage", ev.Stage, "error", ev.Error)...)
		case notify.StatusCompleted:
			slog.Info("run event", append(attrs, "pairs", ev.Pairs, "chunks", ev.Chunks, "duration_ms", ev.DurationMS)...)
		default:
			slog.Info("run event", attrs...)
		}
		if *untilRun != "" && ev.RunID == *untilRun && ev.Status != notify.StatusStarted {
			if ev.Status == notify.StatusFailed {
				exit = apperrors.ExitFailure
			}
			cancel()
		}
		return nil
	})
	if err != nil {
		slog.Error("consumer error", "error", err)
		exit = apperrors.ExitFailure
	}
	slog.Info("event follower stopped")
	return exit
}
