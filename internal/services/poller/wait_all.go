package pollsrv

import (
	"context"
	"fmt"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"golang.org/x/sync/errgroup"
)

type WaitOutcome[R any] struct {
	Name     opdomain.OperationName
	Resource R
	Err      error
}

// WaitAll waits for every name concurrently, each in its own poll loop with
// its own backoff. Outcomes keep the order of names. A limit <= 0 means no
// limit on concurrent loops.
func (p *Poller[S, R]) WaitAll(ctx context.Context, names []opdomain.OperationName, policy *opdomain.WaitPolicy, limit int) []WaitOutcome[R] {
	outcomes := make([]WaitOutcome[R], len(names))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, name := range names {
		g.Go(func() error {
			message := fmt.Sprintf("Waiting for operation [%s] to complete", name)
			res, err := p.Wait(ctx, name, policy, message)
			outcomes[i] = WaitOutcome[R]{Name: name, Resource: res, Err: err}
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}
