package pollsrv

import (
	"testing"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Next(t *testing.T) {
	t.Parallel()

	t.Run("grows and caps without jitter", func(t *testing.T) {
		s := newSchedule(opdomain.WaitPolicy{
			InitialInterval: time.Second,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
		}, SystemClock())

		var got []time.Duration
		for range 5 {
			got = append(got, s.next())
		}
		require.Equal(t, []time.Duration{
			time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second,
		}, got)
	})

	t.Run("jitter never exceeds the cap", func(t *testing.T) {
		s := newSchedule(opdomain.WaitPolicy{
			InitialInterval:     time.Second,
			MaxInterval:         3 * time.Second,
			Multiplier:          2,
			RandomizationFactor: 0.9,
		}, SystemClock())

		for range 100 {
			d := s.next()
			require.Positive(t, d)
			require.LessOrEqual(t, d, 3*time.Second)
		}
	})
}
