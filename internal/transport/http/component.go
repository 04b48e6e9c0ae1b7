package httptr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const probeTimeout = 2 * time.Second

// Checker reports whether a dependency is usable; nil means healthy.
type Checker func(ctx context.Context) error

// Component serves the debug surface of a process: /metrics, /livez and
// /readyz.
type Component struct {
	address string
	server  *http.Server
	log     *zap.Logger
}

func NewComponent(address string, log *zap.Logger, readiness map[string]Checker) *Component {
	if log == nil {
		log = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/livez", probeHandler(nil)).Methods(http.MethodGet)
	router.Handle("/readyz", probeHandler(readiness)).Methods(http.MethodGet)

	return &Component{
		address: address,
		server: &http.Server{
			Addr:              address,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

func (c *Component) Handler() http.Handler {
	return c.server.Handler
}

func (c *Component) Startup(ctx context.Context) error {
	lis, err := net.Listen("tcp", c.address)
	if err != nil {
		return fmt.Errorf("cannot listen address %s: %w", c.address, err)
	}

	c.log.Info("debug http server started", zap.String("address", lis.Addr().String()))

	channel := make(chan error, 1)
	go func() {
		channel <- c.server.Serve(lis)
	}()

	select {
	case err := <-channel:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error while serve %s: %w", c.address, err)
	case <-ctx.Done():
		return nil
	}
}

func (c *Component) Shutdown(ctx context.Context) error {
	if err := c.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown debug http server: %w", err)
	}
	c.log.Info("debug http server stopped")
	return nil
}

func probeHandler(checkers map[string]Checker) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		names := make([]string, 0, len(checkers))
		for name := range checkers {
			names = append(names, name)
		}
		sort.Strings(names)

		var failures []string
		for _, name := range names {
			if err := checkers[name](ctx); err != nil {
				failures = append(failures, fmt.Sprintf("[-] %s: %v", name, err))
			}
		}

		if len(failures) > 0 {
			rw.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(rw, strings.Join(failures, "\n"))
			return
		}
		fmt.Fprintln(rw, "ok")
	})
}
