package opdomain

import (
	"fmt"
	"strings"
)

const operationsSegment = "operations/"

type OperationName string

func ParseOperationName(s string) (OperationName, error) {
	i := strings.Index(s, operationsSegment)
	if i < 0 || len(s) == i+len(operationsSegment) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperationName, s)
	}
	if i > 0 && s[i-1] != '/' {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperationName, s)
	}
	return OperationName(s), nil
}

// ID returns the last path segment of the name.
func (n OperationName) ID() string {
	s := string(n)
	return s[strings.LastIndex(s, "/")+1:]
}

func (n OperationName) String() string {
	return string(n)
}

type PollState int

const (
	PollStatePending PollState = iota
	PollStateDone
	PollStateFailed
)

func (s PollState) String() string {
	switch s {
	case PollStatePending:
		return "pending"
	case PollStateDone:
		return "done"
	case PollStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("PollState(%d)", int(s))
	}
}

// PollResult is the classified status of one poll. Only the fields matching
// State are meaningful.
type PollResult[R any] struct {
	State    PollState
	Resource R
	Metadata any
	Err      *OperationFailedError

	hasResource bool
}

func Pending[R any](metadata any) PollResult[R] {
	return PollResult[R]{State: PollStatePending, Metadata: metadata}
}

func Done[R any](resource R) PollResult[R] {
	return PollResult[R]{State: PollStateDone, Resource: resource, hasResource: true}
}

// DoneEmpty is a successful result without a payload, as for deletes.
func DoneEmpty[R any]() PollResult[R] {
	return PollResult[R]{State: PollStateDone}
}

func Failed[R any](err *OperationFailedError) PollResult[R] {
	return PollResult[R]{State: PollStateFailed, Err: err}
}

func (r PollResult[R]) HasResource() bool {
	return r.State == PollStateDone && r.hasResource
}

func (r PollResult[R]) Terminal() bool {
	return r.State == PollStateDone || r.State == PollStateFailed
}
