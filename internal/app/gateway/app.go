package gatewayapp

import (
	"context"
	"fmt"

	natscomp "github.com/10Narratives/opwait/internal/app/components/nats"
	complrepo "github.com/10Narratives/opwait/internal/repositories/completions"
	oprepo "github.com/10Narratives/opwait/internal/repositories/operations"
	opsrv "github.com/10Narratives/opwait/internal/services/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	grpctr "github.com/10Narratives/opwait/internal/transport/grpc"
	opapi "github.com/10Narratives/opwait/internal/transport/grpc/api/operations"
	healthapi "github.com/10Narratives/opwait/internal/transport/grpc/health"
	"github.com/10Narratives/opwait/internal/transport/grpc/interceptors/logging"
	"github.com/10Narratives/opwait/internal/transport/grpc/interceptors/recovery"
	"github.com/10Narratives/opwait/internal/transport/grpc/interceptors/validator"
	httptr "github.com/10Narratives/opwait/internal/transport/http"
	natscons "github.com/10Narratives/opwait/internal/transport/nats/consumer"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

type App struct {
	cfg *Config
	log *zap.Logger

	unifiedStorage *nats.Conn
	health         *health.Server
	grpcServer     *grpctr.Component
	debugServer    *httptr.Component
	// nil when completion events are disabled
	completions    *natscons.Consumer
}

func NewApp(ctx context.Context, cfg *Config, log *zap.Logger) (*App, error) {
	unifiedStorage, err := natscomp.NewConnection(cfg.UnifiedStorage.URL, "opwait-gateway", log)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to unified storage: %w", err)
	}
	log.Info("connection to unified storage established")

	js, err := natscomp.NewJetStream(unifiedStorage)
	if err != nil {
		unifiedStorage.Close()
		return nil, err
	}

	operationRepository, err := oprepo.NewRepository(ctx, js, cfg.UnifiedStorage.Bucket)
	if err != nil {
		unifiedStorage.Close()
		return nil, fmt.Errorf("cannot open operation store: %w", err)
	}

	operationService, err := opsrv.NewService(operationRepository,
		opsrv.WithLogger(log.Named("operations")),
		opsrv.WithWaitLimits(cfg.Wait.DefaultTimeout, cfg.Wait.MaxTimeout),
		opsrv.WithPollIntervals(cfg.Wait.PollInterval, cfg.Wait.MaxPollInterval),
		opsrv.WithPollerOptions(pollsrv.WithProgressTracker(pollsrv.NewLogTracker(log.Named("poller")))),
	)
	if err != nil {
		unifiedStorage.Close()
		return nil, err
	}

	var completions *natscons.Consumer
	if cfg.Completions.Enabled {
		stream, err := complrepo.EnsureStream(ctx, js)
		if err != nil {
			unifiedStorage.Close()
			return nil, fmt.Errorf("cannot open completion stream: %w", err)
		}

		completions, err = natscons.NewConsumer(ctx, stream, natscons.Config{
			Durable:       cfg.Completions.Durable,
			FilterSubject: complrepo.SubjectComplete,
			Slots:         cfg.Completions.Slots,
		}, natscons.NewCompletionHandler(operationService, log.Named("completions")), log.Named("completions"))
		if err != nil {
			unifiedStorage.Close()
			return nil, fmt.Errorf("cannot create completion consumer: %w", err)
		}
	}

	healthRegistration, healthServer := healthapi.NewRegistration(healthapi.OperationsService)

	grpcOpts := []grpctr.ComponentOption{
		grpctr.WithLogger(log),
		grpctr.WithServerOptions(
			grpc.ChainUnaryInterceptor(
				recovery.NewUnaryServerInterceptor(log),
				logging.NewUnaryServerInterceptor(log),
				validator.NewUnaryServerInterceptor(),
			),
			grpc.ChainStreamInterceptor(
				recovery.NewStreamServerInterceptor(log),
				logging.NewStreamServerInterceptor(log),
				validator.NewStreamServerInterceptor(),
			),
		),
		grpctr.WithServiceRegistration(
			healthRegistration,
			opapi.NewRegistration(operationService),
		),
	}
	if cfg.Server.Grpc.Reflection {
		grpcOpts = append(grpcOpts, grpctr.WithReflection())
	}

	debugServer := httptr.NewComponent(cfg.Server.Debug.Address, log, map[string]httptr.Checker{
		"unified_storage": natscomp.Checker(unifiedStorage),
	})

	return &App{
		cfg:            cfg,
		log:            log,
		unifiedStorage: unifiedStorage,
		health:         healthServer,
		grpcServer:     grpctr.NewComponent(cfg.Server.Grpc.Address, grpcOpts...),
		debugServer:    debugServer,
		completions:    completions,
	}, nil
}

func (a *App) Startup(ctx context.Context) error {
	errGroup, ctx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		a.log.Debug("starting gRPC server")
		return a.grpcServer.Startup(ctx)
	})

	errGroup.Go(func() error {
		a.log.Debug("starting debug http server")
		return a.debugServer.Startup(ctx)
	})

	if a.completions != nil {
		a.log.Debug("starting completion consumer")
		if err := a.completions.Run(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	return errGroup.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.health.Shutdown()

	errGroup, ctx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		a.log.Debug("stopping gRPC server")
		return a.grpcServer.Shutdown(ctx)
	})

	errGroup.Go(func() error {
		a.log.Debug("stopping debug http server")
		return a.debugServer.Shutdown(ctx)
	})

	if a.completions != nil {
		errGroup.Go(func() error {
			a.log.Debug("stopping completion consumer")
			return a.completions.Stop(ctx)
		})
	}

	if err := errGroup.Wait(); err != nil {
		a.unifiedStorage.Close()
		return err
	}

	a.log.Debug("draining connection to unified storage")
	if err := a.unifiedStorage.Drain(); err != nil {
		a.unifiedStorage.Close()
		return fmt.Errorf("drain unified storage connection: %w", err)
	}
	a.log.Info("connection to unified storage closed")

	return nil
}
