package opcmd

import (
	"fmt"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	configutils "github.com/10Narratives/opwait/pkg/config"
	"github.com/spf13/pflag"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatName = "name"
)

// Settings holds the global CLI state. Values come from OPWAIT_* variables
// and are overridden by flags.
type Settings struct {
	Gateway   string `env:"OPWAIT_GATEWAY" env-default:"127.0.0.1:55055" env-description:"gateway gRPC address host:port"`
	TLS       bool   `env:"OPWAIT_TLS" env-default:"false" env-description:"use TLS towards the gateway"`
	TLSCA     string `env:"OPWAIT_TLS_CA" env-description:"CA bundle (PEM) for TLS"`
	Format    string `env:"OPWAIT_FORMAT" env-default:"yaml" env-description:"output format: yaml, json or name"`
	Verbosity string `env:"OPWAIT_VERBOSITY" env-default:"warning" env-description:"log level: debug, info, warning, error or none"`

	Wait WaitSettings
}

type WaitSettings struct {
	Timeout          time.Duration `env:"OPWAIT_WAIT_TIMEOUT" env-default:"30m" env-description:"maximum time to wait, 0 waits forever"`
	PollInterval     time.Duration `env:"OPWAIT_WAIT_POLL_INTERVAL" env-default:"1s" env-description:"first poll interval"`
	MaxPollInterval  time.Duration `env:"OPWAIT_WAIT_MAX_POLL_INTERVAL" env-default:"10s" env-description:"poll interval cap"`
	Multiplier       float64       `env:"OPWAIT_WAIT_MULTIPLIER" env-default:"1.5" env-description:"poll interval growth factor"`
	Jitter           float64       `env:"OPWAIT_WAIT_JITTER" env-default:"0" env-description:"poll interval randomization factor in [0,1)"`
	TransientRetries int           `env:"OPWAIT_WAIT_TRANSIENT_RETRIES" env-default:"3" env-description:"retries of transient status read failures"`
}

func LoadSettings() (*Settings, error) {
	return configutils.ReadFromEnv[Settings]()
}

func (s *Settings) Validate() error {
	switch s.Format {
	case FormatYAML, FormatJSON, FormatName:
	default:
		return fmt.Errorf("unsupported --format %q: want yaml, json or name", s.Format)
	}
	if s.TLSCA != "" && !s.TLS {
		return fmt.Errorf("--tls-ca requires --tls")
	}
	return nil
}

func (w WaitSettings) Policy() opdomain.WaitPolicy {
	return opdomain.WaitPolicy{
		Timeout:             w.Timeout,
		InitialInterval:     w.PollInterval,
		MaxInterval:         w.MaxPollInterval,
		Multiplier:          w.Multiplier,
		RandomizationFactor: w.Jitter,
		TransientRetries:    w.TransientRetries,
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, s *Settings) {
	fs.StringVar(&s.Gateway, "gateway", s.Gateway, "Gateway gRPC address host:port")
	fs.BoolVar(&s.TLS, "tls", s.TLS, "Use TLS")
	fs.StringVar(&s.TLSCA, "tls-ca", s.TLSCA, "CA file (PEM), optional")
	fs.StringVar(&s.Format, "format", s.Format, "Output format: yaml, json or name")
	fs.StringVar(&s.Verbosity, "verbosity", s.Verbosity, "Log level: debug, info, warning, error or none")
}

func bindWaitFlags(fs *pflag.FlagSet, w *WaitSettings) {
	fs.DurationVar(&w.Timeout, "timeout", w.Timeout, "Maximum time to wait for the operation, 0 waits forever")
	fs.DurationVar(&w.PollInterval, "poll-interval", w.PollInterval, "First interval between status reads")
	fs.DurationVar(&w.MaxPollInterval, "max-poll-interval", w.MaxPollInterval, "Upper bound of the interval between status reads")
	fs.Float64Var(&w.Multiplier, "multiplier", w.Multiplier, "Growth factor of the interval between status reads")
	fs.Float64Var(&w.Jitter, "jitter", w.Jitter, "Randomization factor of the interval, in [0,1)")
	fs.IntVar(&w.TransientRetries, "transient-retries", w.TransientRetries, "Retries of transient status read failures per poll")
}
