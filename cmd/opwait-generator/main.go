package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	natscomp "github.com/10Narratives/opwait/internal/app/components/nats"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	complrepo "github.com/10Narratives/opwait/internal/repositories/completions"
	oprepo "github.com/10Narratives/opwait/internal/repositories/operations"
	opsrv "github.com/10Narratives/opwait/internal/services/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	errorutils "github.com/10Narratives/opwait/pkg/errors"
	logutils "github.com/10Narratives/opwait/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var cfg producerConfig
	bucket := flag.String("bucket", "operations", "key-value bucket holding operations")
	level := flag.String("log-level", "debug", "log level")
	events := flag.Bool("events", false, "report completions as events on "+complrepo.SubjectComplete+" instead of writing the store")
	flag.IntVar(&cfg.Count, "count", 0, "number of operations to create (0 = unlimited)")
	flag.StringVar(&cfg.Parent, "parent", "", "resource prefix of created names, e.g. projects/p")
	flag.DurationVar(&cfg.MinTime, "min-time", time.Second, "min execution time")
	flag.DurationVar(&cfg.MaxTime, "max-time", 30*time.Second, "max execution time")
	flag.DurationVar(&cfg.Wait, "wait", 500*time.Millisecond, "pause between created operations")
	flag.Float64Var(&cfg.FailFraction, "fail-fraction", 0.2, "fraction of operations that fail with RESOURCE_EXHAUSTED")
	flag.Parse()

	natsURL := "nats://localhost:4222"
	if url := os.Getenv("NATS_URL"); url != "" {
		natsURL = url
	}

	log := errorutils.Must(logutils.NewLogger("dev", *level))
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nc, err := natscomp.NewConnection(natsURL, "opwait-generator", log)
	if err != nil {
		log.Fatal("nats connect failed", zap.Error(err))
	}
	defer nc.Close()

	js := errorutils.Must(natscomp.NewJetStream(nc))
	repo := errorutils.Must(oprepo.NewRepository(ctx, js, *bucket))
	service := errorutils.Must(opsrv.NewService(repo, opsrv.WithLogger(log)))

	var completer opdomain.OperationCompleter = service
	if *events {
		completer = errorutils.Must(complrepo.NewPublisher(ctx, js))
	}

	p, err := newProducer(cfg, service, completer, pollsrv.SystemClock(), log, uint64(time.Now().UnixNano()))
	if err != nil {
		log.Fatal("invalid flags", zap.Error(err))
	}

	log.Info("operation generator ready",
		zap.Int("count", cfg.Count),
		zap.Duration("min-time", cfg.MinTime),
		zap.Duration("max-time", cfg.MaxTime),
		zap.Duration("wait", cfg.Wait),
		zap.Float64("fail-fraction", cfg.FailFraction),
		zap.Bool("events", *events),
	)

	if err := p.Run(ctx); err != nil {
		log.Error("generator stopped", zap.Error(err))
		return
	}
	log.Info("generator stopped")
}
