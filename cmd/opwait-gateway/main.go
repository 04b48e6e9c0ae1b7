package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	gatewayapp "github.com/10Narratives/opwait/internal/app/gateway"
	configutils "github.com/10Narratives/opwait/pkg/config"
	errorutils "github.com/10Narratives/opwait/pkg/errors"
	logutils "github.com/10Narratives/opwait/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	path := flag.String("config", "", "path to configuration file")
	env := flag.String("env", "", "launch environment, overrides the configured one")

	flag.Parse()

	cfg := errorutils.Must(configutils.Read[gatewayapp.Config](*path))
	if *env != "" {
		cfg.Env = *env
	}

	log := errorutils.Must(logutils.NewLogger(cfg.Env, cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	startupContext, startupCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	app := errorutils.Must(gatewayapp.NewApp(startupContext, cfg, log))

	log.Info("starting opwait-gateway application",
		zap.String("grpc_address", cfg.Server.Grpc.Address),
		zap.String("debug_address", cfg.Server.Debug.Address),
	)
	errorutils.Try(app.Startup(startupContext))

	<-startupContext.Done()
	startupCancel()

	log.Info("stopping opwait-gateway application")
	shutdownContext, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	errorutils.Try(app.Shutdown(shutdownContext))
}
