package opcmd

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opclient "github.com/10Narratives/opwait/internal/clients/operations"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	logutils "github.com/10Narratives/opwait/pkg/logging"
	"go.uber.org/zap"
)

// Client is the gateway surface the commands use.
type Client interface {
	opdomain.OperationGetter
	opdomain.OperationLister
	opdomain.OperationCanceler
	opdomain.OperationDeleter
	Getter() pollsrv.GetFunc[*longrunningpb.Operation]
	Close() error
}

type ConnectFunc func(ctx context.Context, s *Settings) (Client, error)

type Runtime struct {
	Settings *Settings
	Log      *zap.Logger
	Connect  ConnectFunc
	// Clock drives poll sleeps; nil means the system clock.
	Clock pollsrv.Clock
}

func NewRuntime(settings *Settings) *Runtime {
	return &Runtime{
		Settings: settings,
		Log:      zap.NewNop(),
		Connect:  DialGateway,
	}
}

func DialGateway(ctx context.Context, s *Settings) (Client, error) {
	c, err := opclient.Dial(ctx, opclient.DialConfig{
		Address: s.Gateway,
		TLS:     s.TLS,
		CAFile:  s.TLSCA,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Init validates settings and builds the logger; it runs once flags are
// parsed.
func (rt *Runtime) Init() error {
	if err := rt.Settings.Validate(); err != nil {
		return err
	}

	level := strings.ToLower(rt.Settings.Verbosity)
	switch level {
	case "none":
		rt.Log = zap.NewNop()
		return nil
	case "warning":
		level = "warn"
	}

	log, err := logutils.NewLogger("dev", level)
	if err != nil {
		return fmt.Errorf("invalid --verbosity: %w", err)
	}
	rt.Log = log
	return nil
}

func (rt *Runtime) pollerOptions(tracker pollsrv.ProgressTracker) []pollsrv.Option {
	opts := []pollsrv.Option{
		pollsrv.WithLogger(rt.Log),
		pollsrv.WithProgressTracker(tracker),
	}
	if rt.Clock != nil {
		opts = append(opts, pollsrv.WithClock(rt.Clock))
	}
	return opts
}

func (rt *Runtime) withClient(ctx context.Context, fn func(c Client) error) error {
	c, err := rt.Connect(ctx, rt.Settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			rt.Log.Debug("close gateway connection", zap.Error(err))
		}
	}()

	return fn(c)
}
