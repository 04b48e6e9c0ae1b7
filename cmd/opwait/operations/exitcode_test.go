package opcmd_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	opcmd "github.com/10Narratives/opwait/cmd/opwait/operations"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, opcmd.ExitOK},
		{"failed", &opdomain.OperationFailedError{Name: "operations/a", Code: codes.Internal}, opcmd.ExitFailed},
		{"plain", errors.New("boom"), opcmd.ExitFailed},
		{"usage", fmt.Errorf("%w: unknown flag", opcmd.ErrUsage), opcmd.ExitUsage},
		{"timeout", &opdomain.WaitTimeoutError{Name: "operations/a", Timeout: time.Second}, opcmd.ExitTimeout},
		{"wrapped timeout", fmt.Errorf("wait: %w", &opdomain.WaitTimeoutError{Name: "operations/a"}), opcmd.ExitTimeout},
		{"aborted", &opdomain.PollerAbortedError{Name: "operations/a", Cause: errors.New("permission denied")}, opcmd.ExitAborted},
		{"interrupted", &opdomain.PollerAbortedError{Name: "operations/a", Cause: context.Canceled}, opcmd.ExitInterrupted},
		{"interrupted rpc", status.Error(codes.Canceled, "context canceled"), opcmd.ExitInterrupted},
		{"wrapped interrupted rpc", fmt.Errorf("get operation: %w", status.Error(codes.Canceled, "context canceled")), opcmd.ExitInterrupted},
		{"interrupted before dial", fmt.Errorf("dial: %w", context.Canceled), opcmd.ExitInterrupted},
		{"operation cancelled on the server", &opdomain.OperationFailedError{Name: "operations/a", Code: codes.Canceled}, opcmd.ExitFailed},
		{"invalid name argument", fmt.Errorf("%w: %w", opcmd.ErrUsage, opdomain.ErrInvalidOperationName), opcmd.ExitUsage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, opcmd.ExitCode(tc.err))
		})
	}
}

func TestAdvice(t *testing.T) {
	t.Parallel()

	require.Empty(t, opcmd.Advice(nil))
	require.Empty(t, opcmd.Advice(&opdomain.OperationFailedError{Name: "operations/a"}))
	require.Empty(t, opcmd.Advice(&opdomain.PollerAbortedError{Name: "operations/a", Cause: context.Canceled}))

	require.Equal(t,
		"Run `opwait operations describe operations/a` to check its status later.",
		opcmd.Advice(&opdomain.WaitTimeoutError{Name: "operations/a"}))
	require.Contains(t,
		opcmd.Advice(&opdomain.PollerAbortedError{Name: "operations/a", Cause: errors.New("eof")}),
		"opwait operations wait operations/a")
}
