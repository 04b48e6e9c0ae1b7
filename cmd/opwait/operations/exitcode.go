package opcmd

import (
	"context"
	"errors"
	"fmt"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrUsage marks bad flags or arguments.
var ErrUsage = errors.New("usage error")

const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitUsage       = 2
	ExitTimeout     = 3
	ExitAborted     = 4
	ExitInterrupted = 130
)

func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, opdomain.ErrWaitTimeout):
		return ExitTimeout
	case errors.Is(err, opdomain.ErrPollerAborted) && errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, opdomain.ErrPollerAborted):
		return ExitAborted
	case errors.Is(err, opdomain.ErrOperationFailed):
		return ExitFailed
	case errors.Is(err, context.Canceled), status.Code(err) == codes.Canceled:
		// interrupted during a plain RPC rather than a poll
		return ExitInterrupted
	default:
		return ExitFailed
	}
}

// Advice returns a follow-up hint for err, or an empty string.
func Advice(err error) string {
	var timeout *opdomain.WaitTimeoutError
	if errors.As(err, &timeout) {
		return fmt.Sprintf("Run `opwait operations describe %s` to check its status later.", timeout.Name)
	}

	var aborted *opdomain.PollerAbortedError
	if errors.As(err, &aborted) && !errors.Is(err, context.Canceled) {
		return fmt.Sprintf("The operation was not cancelled; run `opwait operations wait %s` to resume waiting.", aborted.Name)
	}

	return ""
}

func usageErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageErr(validate(cmd, args))
	}
}
