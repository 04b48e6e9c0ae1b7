package pollsrv_test

import (
	"context"
	"sync"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"google.golang.org/grpc/codes"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock advances virtual time instantly on Sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) elapsed() time.Duration {
	return c.Now().Sub(epoch)
}

func (c *fakeClock) recordedSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeStatus struct {
	done     bool
	resource string
	failure  *opdomain.OperationFailedError
}

func pending() fakeStatus { return fakeStatus{} }

func done(resource string) fakeStatus { return fakeStatus{done: true, resource: resource} }

func failed(code codes.Code, message string) fakeStatus {
	return fakeStatus{done: true, failure: &opdomain.OperationFailedError{Code: code, Message: message}}
}

func classifyFake(s fakeStatus) (opdomain.PollResult[string], error) {
	switch {
	case !s.done:
		return opdomain.Pending[string](nil), nil
	case s.failure != nil:
		return opdomain.Failed[string](s.failure), nil
	case s.resource == "":
		return opdomain.DoneEmpty[string](), nil
	default:
		return opdomain.Done(s.resource), nil
	}
}

type step struct {
	status fakeStatus
	err    error
}

// scriptedGetter replays steps in order and repeats the last one forever.
type scriptedGetter struct {
	mu    sync.Mutex
	clock *fakeClock
	steps []step
	calls []time.Duration
	hook  func(call int)
}

func newScriptedGetter(clock *fakeClock, steps ...step) *scriptedGetter {
	return &scriptedGetter{clock: clock, steps: steps}
}

func (g *scriptedGetter) Get(_ context.Context, _ opdomain.OperationName) (fakeStatus, error) {
	g.mu.Lock()
	call := len(g.calls)
	g.calls = append(g.calls, g.clock.elapsed())
	s := g.steps[min(call, len(g.steps)-1)]
	hook := g.hook
	g.mu.Unlock()

	if hook != nil {
		hook(call + 1)
	}
	return s.status, s.err
}

func (g *scriptedGetter) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *scriptedGetter) callTimes() []time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]time.Duration(nil), g.calls...)
}
