package gatewayapp

import "time"

type Config struct {
	Env            string               `yaml:"env" env:"OPWAIT_ENV" env-default:"dev"`
	LogLevel       string               `yaml:"log_level" env:"OPWAIT_LOG_LEVEL"`
	Server         ServerConfig         `yaml:"server"`
	UnifiedStorage UnifiedStorageConfig `yaml:"unified_storage"`
	Wait           WaitConfig           `yaml:"wait"`
	Completions    CompletionsConfig    `yaml:"completions"`
}

type ServerConfig struct {
	Grpc            GrpcConfig    `yaml:"grpc"`
	Debug           DebugConfig   `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"OPWAIT_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type GrpcConfig struct {
	Address    string `yaml:"address" env:"OPWAIT_GRPC_ADDRESS" env-default:":55055"`
	Reflection bool   `yaml:"reflection" env:"OPWAIT_GRPC_REFLECTION" env-default:"true"`
}

type DebugConfig struct {
	Address string `yaml:"address" env:"OPWAIT_DEBUG_ADDRESS" env-default:":9090"`
}

type UnifiedStorageConfig struct {
	URL    string `yaml:"url" env:"OPWAIT_NATS_URL" env-required:"true"`
	Bucket string `yaml:"bucket" env:"OPWAIT_NATS_BUCKET" env-default:"operations"`
}

// WaitConfig bounds server-side WaitOperation calls.
type WaitConfig struct {
	DefaultTimeout  time.Duration `yaml:"default_timeout" env:"OPWAIT_WAIT_DEFAULT_TIMEOUT" env-default:"1m"`
	MaxTimeout      time.Duration `yaml:"max_timeout" env:"OPWAIT_WAIT_MAX_TIMEOUT" env-default:"10m"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"OPWAIT_WAIT_POLL_INTERVAL" env-default:"250ms"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval" env:"OPWAIT_WAIT_MAX_POLL_INTERVAL" env-default:"2s"`
}

// CompletionsConfig controls the consumer applying completion events.
type CompletionsConfig struct {
	Enabled bool   `yaml:"enabled" env:"OPWAIT_COMPLETIONS_ENABLED" env-default:"true"`
	Durable string `yaml:"durable" env:"OPWAIT_COMPLETIONS_DURABLE" env-default:"opwait-gateway"`
	Slots   int    `yaml:"slots" env:"OPWAIT_COMPLETIONS_SLOTS" env-default:"8"`
}
