package opdomain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrOperationNotFound      = errors.New("operation not found")
	ErrOperationAlreadyExists = errors.New("operation already exists")
	ErrOperationAlreadyDone   = errors.New("operation already done")
	ErrOperationConflict      = errors.New("operation was modified concurrently")
	ErrInvalidOperationName   = errors.New("invalid operation name")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidPageToken       = errors.New("invalid page token")
	ErrInvalidWaitPolicy      = errors.New("invalid wait policy")

	ErrOperationFailed = errors.New("operation failed")
	ErrWaitTimeout     = errors.New("wait timeout")
	ErrPollerAborted   = errors.New("poller aborted")
)

// TransientTransportError marks a status read failure that is worth retrying,
// e.g. a dropped connection. The operation itself is unaffected.
type TransientTransportError struct {
	Err error
}

func (e *TransientTransportError) Error() string {
	return fmt.Sprintf("transient transport error: %v", e.Err)
}

func (e *TransientTransportError) Unwrap() error {
	return e.Err
}

// OperationFailedError is the failure reported by the server for the
// operation itself. Code and Message are kept exactly as reported.
type OperationFailedError struct {
	Name    OperationName
	Code    codes.Code
	Message string
	Details []string
}

func (e *OperationFailedError) Error() string {
	var sb strings.Builder
	if e.Name != "" {
		fmt.Fprintf(&sb, "operation %s failed", e.Name)
	} else {
		sb.WriteString("operation failed")
	}
	fmt.Fprintf(&sb, ": code=%d (%s), message=%s", uint32(e.Code), e.Code, e.Message)
	for _, d := range e.Details {
		sb.WriteString("\n  - ")
		sb.WriteString(d)
	}
	return sb.String()
}

func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}

func (e *OperationFailedError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// WaitTimeoutError reports that the wait ceiling elapsed while the operation
// was still pending. The operation may still complete on the server.
type WaitTimeoutError struct {
	Name    OperationName
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("operation %s has not finished within %s (waited %s); it may still complete, check its status later",
		e.Name, e.Timeout, e.Elapsed.Round(time.Millisecond))
}

func (e *WaitTimeoutError) Is(target error) bool {
	return target == ErrWaitTimeout
}

// PollerAbortedError stops a wait without a verdict about the operation:
// the caller canceled, or reading the status kept failing.
type PollerAbortedError struct {
	Name     OperationName
	Attempts int
	Cause    error
}

func (e *PollerAbortedError) Error() string {
	return fmt.Sprintf("polling operation %s aborted after %d attempt(s): %v", e.Name, e.Attempts, e.Cause)
}

func (e *PollerAbortedError) Is(target error) bool {
	return target == ErrPollerAborted
}

func (e *PollerAbortedError) Unwrap() error {
	return e.Cause
}
