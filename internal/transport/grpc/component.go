package grpctr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type Component struct {
	address  string
	listener net.Listener
	server   *grpc.Server
	log      *zap.Logger
}

func NewComponent(address string, opts ...ComponentOption) *Component {
	options := defaultComponentOptions()
	for _, opt := range opts {
		opt(options)
	}

	server := grpc.NewServer(options.serverOptions...)
	for _, reg := range options.serviceRegs {
		reg(server)
	}

	return &Component{
		address:  address,
		listener: options.listener,
		server:   server,
		log:      options.log,
	}
}

// Startup serves until ctx is done or the server stops on its own.
func (c *Component) Startup(ctx context.Context) error {
	lis := c.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", c.address)
		if err != nil {
			return fmt.Errorf("cannot listen address %s: %w", c.address, err)
		}
	}

	c.log.Info("grpc server started", zap.String("address", lis.Addr().String()))

	channel := make(chan error)
	go func() {
		defer close(channel)
		select {
		case channel <- c.server.Serve(lis):
		case <-ctx.Done():
		}
	}()

	select {
	case err := <-channel:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("error while serve %s: %w", lis.Addr(), err)
	case <-ctx.Done():
		return nil
	}
}

func (c *Component) Shutdown(ctx context.Context) error {
	channel := make(chan struct{})
	go func() {
		c.server.GracefulStop()
		close(channel)
	}()

	select {
	case <-channel:
		c.log.Info("grpc server stopped")
		return nil
	case <-ctx.Done():
		c.server.Stop()
		return errors.New("shutdown context exceeded")
	}
}
