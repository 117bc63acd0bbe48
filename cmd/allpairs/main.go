package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/allpairs"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/measure"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/tracing"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	input := flag.String("input", "", "entry/feature/weight file (A side)")
	inputB := flag.String("input-b", "", "B-side entry/feature/weight file, defaults to -input")
	features := flag.String("features", "", "feature frequency file")
	output := flag.String("output", "", "output file, compressed by extension")
	measureName := flag.String("measure", "", "proximity measure")
	reversed := flag.Bool("reversed", false, "swap the arguments of the measure")
	threads := flag.Int("threads", 0, "worker count, 0 for one more than the CPU count")
	chunk := flag.Int("chunk", 0, "A-side entries per work unit")
	minSim := flag.Float64("min", 0, "smallest similarity to emit")
	maxSim := flag.Float64("max", 0, "largest similarity to emit")
	verbose := flag.Bool("verbose", false, "one pair per output line")
	listMeasures := flag.Bool("list-measures", false, "print the known measures and exit")
	check := flag.Bool("check", false, "probe the inputs and enabled backends, print a report and exit")
	flag.Parse()

	if *listMeasures {
		fmt.Println(strings.Join(measure.Names(), "\n"))
		return apperrors.ExitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitConfig
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input.EntryFeatures = *input
		case "input-b":
			cfg.Input.EntryFeaturesB = *inputB
		case "features":
			cfg.Input.Features = *features
		case "output":
			cfg.Output.Path = *output
		case "measure":
			cfg.Measure.Name = *measureName
		case "reversed":
			cfg.Measure.Reversed = *reversed
		case "threads":
			cfg.Engine.Threads = *threads
		case "chunk":
			cfg.Engine.ChunkSize = *chunk
		case "min":
			cfg.Filter.MinSimilarity = *minSim
		case "max":
			cfg.Filter.MaxSimilarity = *maxSim
		case "verbose":
			cfg.Output.Compact = !*verbose
		}
	})

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	runID := uuid.NewString()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRun(ctx, runID)
	log := logger.FromContext(ctx)
	if *check {
		report := allpairs.Preflight(ctx, cfg)
		if err := report.WriteJSON(os.Stdout); err != nil {
			log.Error("writing preflight report", "error", err)
		}
		if !report.Healthy() {
			log.Error("preflight failed", "checks", report.Failed())
			return apperrors.ExitConfig
		}
		return apperrors.ExitOK
	}
	log.Info("starting all-pairs run", "measure", cfg.Measure.Name, "input", cfg.Input.EntryFeatures)

	ctx, root := tracing.StartSpan(ctx, "run", runID)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled || cfg.Metrics.PushgatewayURL != "" {
		m = metrics.New()
	}
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	var notifier *notify.Notifier
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		notifier = notify.New(producer)
	}

	code := execute(ctx, cfg, allpairs.Deps{Metrics: m, Notifier: notifier})

	root.End()
	if cfg.Tracing.Enabled {
		root.Log(log)
	}
	if m != nil && cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := m.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, runID); err != nil {
			log.Warn("metrics push failed", "error", err)
		}
		cancel()
	}
	return code
}

func execute(ctx context.Context, cfg *config.Config, deps allpairs.Deps) int {
	log := logger.FromContext(ctx)
	job, err := allpairs.Prepare(ctx, cfg, deps)
	if err != nil {
		log.Error("run setup failed", "error", err)
		return apperrors.ExitCode(err)
	}
	defer job.Close()

	summary, err := job.Run(ctx)
	if err != nil {
		log.Error("run failed",
			"error", err,
			"chunks", summary.Chunks,
			"output", cfg.Output.Path,
		)
		return apperrors.ExitCode(err)
	}
	log.Info("all-pairs run finished",
		"pairs", summary.Pairs,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return apperrors.ExitOK
}
