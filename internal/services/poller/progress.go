package pollsrv

import (
	"errors"
	"fmt"
	"io"
	"sync"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"go.uber.org/zap"
)

// ProgressTracker surfaces a wait to the user. It never affects the wait.
type ProgressTracker interface {
	Start(message string)
	Tick(attempt int, metadata any)
	Stop(message string, err error)
}

type NopTracker struct{}

func (NopTracker) Start(string)       {}
func (NopTracker) Tick(int, any)      {}
func (NopTracker) Stop(string, error) {}

type LogTracker struct {
	log *zap.Logger
}

func NewLogTracker(log *zap.Logger) *LogTracker {
	return &LogTracker{log: log}
}

func (t *LogTracker) Start(message string) {
	t.log.Info(message)
}

func (t *LogTracker) Tick(attempt int, metadata any) {
	t.log.Debug("operation still running", zap.Int("attempt", attempt), zap.Any("metadata", metadata))
}

func (t *LogTracker) Stop(message string, err error) {
	if err != nil {
		t.log.Warn(message, zap.String("result", outcomeWord(err)), zap.Error(err))
		return
	}
	t.log.Info(message, zap.String("result", outcomeWord(nil)))
}

// WriterTracker prints "message..." followed by one dot per pending poll
// and a final verdict.
type WriterTracker struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterTracker(w io.Writer) *WriterTracker {
	return &WriterTracker{w: w}
}

func (t *WriterTracker) Start(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s...", message)
}

func (t *WriterTracker) Tick(int, any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.w, ".")
}

func (t *WriterTracker) Stop(_ string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s.\n", outcomeWord(err))
}

func outcomeWord(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, opdomain.ErrOperationFailed):
		return "failed"
	case errors.Is(err, opdomain.ErrWaitTimeout):
		return "timed out"
	default:
		return "aborted"
	}
}
