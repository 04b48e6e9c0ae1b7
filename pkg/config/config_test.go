package configutils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	configutils "github.com/10Narratives/opwait/pkg/config"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Address string        `yaml:"address" env:"TEST_OPWAIT_ADDRESS" env-default:":55055"`
	Timeout time.Duration `yaml:"timeout" env:"TEST_OPWAIT_TIMEOUT" env-default:"1m"`
}

func TestRead(t *testing.T) {
	t.Run("ok: env defaults", func(t *testing.T) {
		cfg, err := configutils.Read[testConfig]("")
		require.NoError(t, err)
		require.Equal(t, ":55055", cfg.Address)
		require.Equal(t, time.Minute, cfg.Timeout)
	})

	t.Run("ok: file with env override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("address: :7000\ntimeout: 5s\n"), 0o600))
		t.Setenv("TEST_OPWAIT_TIMEOUT", "10s")

		cfg, err := configutils.Read[testConfig](path)
		require.NoError(t, err)
		require.Equal(t, ":7000", cfg.Address)
		require.Equal(t, 10*time.Second, cfg.Timeout)
	})

	t.Run("error: missing file", func(t *testing.T) {
		_, err := configutils.Read[testConfig](filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("ok: usage lists env vars", func(t *testing.T) {
		usage, err := configutils.Usage[testConfig]("Environment:")
		require.NoError(t, err)
		require.Contains(t, usage, "TEST_OPWAIT_ADDRESS")
	})
}
