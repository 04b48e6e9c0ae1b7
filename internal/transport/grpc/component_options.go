package grpctr

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

type ServiceRegistration func(s *grpc.Server)

type componentOptions struct {
	serverOptions []grpc.ServerOption
	serviceRegs   []ServiceRegistration
	listener      net.Listener
	log           *zap.Logger
}

type ComponentOption func(co *componentOptions)

func defaultComponentOptions() *componentOptions {
	return &componentOptions{log: zap.NewNop()}
}

func WithServerOptions(options ...grpc.ServerOption) ComponentOption {
	return func(co *componentOptions) {
		co.serverOptions = append(co.serverOptions, options...)
	}
}

func WithServiceRegistration(regs ...ServiceRegistration) ComponentOption {
	return func(co *componentOptions) {
		co.serviceRegs = append(co.serviceRegs, regs...)
	}
}

// WithListener serves on lis instead of listening on the address.
func WithListener(lis net.Listener) ComponentOption {
	return func(co *componentOptions) {
		co.listener = lis
	}
}

func WithLogger(log *zap.Logger) ComponentOption {
	return func(co *componentOptions) {
		if log != nil {
			co.log = log
		}
	}
}

// WithReflection registers the server reflection service, used by grpcurl
// and similar tools.
func WithReflection() ComponentOption {
	return WithServiceRegistration(func(s *grpc.Server) {
		reflection.Register(s)
	})
}
