package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	opcmd "github.com/10Narratives/opwait/cmd/opwait/operations"
	errorutils "github.com/10Narratives/opwait/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := errorutils.Must(opcmd.LoadSettings())
	rt := opcmd.NewRuntime(settings)

	err := opcmd.NewRootCmd(rt).ExecuteContext(ctx)
	if advice := opcmd.Advice(err); advice != "" {
		fmt.Fprintln(os.Stderr, advice)
	}

	errorutils.TryCode(err, opcmd.ExitCode)
}
