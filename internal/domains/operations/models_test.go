package opdomain_test

import (
	"errors"
	"testing"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
)

func TestParseOperationName(t *testing.T) {
	t.Parallel()

	valid := []string{
		"operations/123",
		"projects/p/locations/us-central1/operations/op-1",
	}
	for _, s := range valid {
		name, err := opdomain.ParseOperationName(s)
		require.NoError(t, err, s)
		require.Equal(t, s, name.String())
	}

	invalid := []string{"", "bad", "operations/", "xoperations/1", "projects/p/operations/"}
	for _, s := range invalid {
		_, err := opdomain.ParseOperationName(s)
		require.ErrorIs(t, err, opdomain.ErrInvalidOperationName, s)
	}
}

func TestOperationName_ID(t *testing.T) {
	require.Equal(t, "op-1", opdomain.OperationName("projects/p/operations/op-1").ID())
	require.Equal(t, "1", opdomain.OperationName("operations/1").ID())
}

func TestPollResult(t *testing.T) {
	t.Run("pending carries metadata", func(t *testing.T) {
		r := opdomain.Pending[string]("50%")
		require.Equal(t, opdomain.PollStatePending, r.State)
		require.Equal(t, "50%", r.Metadata)
		require.False(t, r.Terminal())
		require.False(t, r.HasResource())
	})

	t.Run("done with and without resource", func(t *testing.T) {
		r := opdomain.Done("R")
		require.True(t, r.Terminal())
		require.True(t, r.HasResource())
		require.Equal(t, "R", r.Resource)

		e := opdomain.DoneEmpty[string]()
		require.True(t, e.Terminal())
		require.False(t, e.HasResource())
	})

	t.Run("failed", func(t *testing.T) {
		r := opdomain.Failed[string](&opdomain.OperationFailedError{Code: codes.FailedPrecondition})
		require.True(t, r.Terminal())
		require.Equal(t, "failed", r.State.String())
	})
}

func TestErrors_Taxonomy(t *testing.T) {
	t.Parallel()

	failed := &opdomain.OperationFailedError{Name: "operations/1", Code: 9, Message: "quota exceeded"}
	require.ErrorIs(t, failed, opdomain.ErrOperationFailed)
	require.NotErrorIs(t, failed, opdomain.ErrWaitTimeout)
	require.Equal(t, codes.FailedPrecondition, status.Code(failed))
	require.Contains(t, failed.Error(), "message=quota exceeded")

	timeout := &opdomain.WaitTimeoutError{Name: "operations/1", Timeout: 5 * time.Second, Elapsed: 4 * time.Second}
	require.ErrorIs(t, timeout, opdomain.ErrWaitTimeout)
	require.NotErrorIs(t, timeout, opdomain.ErrOperationFailed)
	require.Contains(t, timeout.Error(), "may still complete")

	cause := errors.New("connection refused")
	aborted := &opdomain.PollerAbortedError{Name: "operations/1", Attempts: 4, Cause: cause}
	require.ErrorIs(t, aborted, opdomain.ErrPollerAborted)
	require.ErrorIs(t, aborted, cause)

	transient := &opdomain.TransientTransportError{Err: cause}
	require.ErrorIs(t, transient, cause)
}

func TestNewOperationFailedError(t *testing.T) {
	t.Parallel()

	t.Run("nil status", func(t *testing.T) {
		err := opdomain.NewOperationFailedError("operations/1", nil)
		require.Equal(t, codes.Unknown, err.Code)
	})

	t.Run("code, message and violations preserved", func(t *testing.T) {
		quota, err := anypb.New(&errdetails.QuotaFailure{
			Violations: []*errdetails.QuotaFailure_Violation{
				{Subject: "project:p", Description: "CPUS limit reached"},
			},
		})
		require.NoError(t, err)
		badReq, err := anypb.New(&errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{
				{Field: "instance.nodes", Description: "must be positive"},
			},
		})
		require.NoError(t, err)

		got := opdomain.NewOperationFailedError("operations/1", &rpcstatus.Status{
			Code:    9,
			Message: "quota exceeded",
			Details: []*anypb.Any{quota, badReq, {TypeUrl: "type.googleapis.com/unknown.Type"}},
		})

		require.Equal(t, opdomain.OperationName("operations/1"), got.Name)
		require.Equal(t, codes.Code(9), got.Code)
		require.Equal(t, "quota exceeded", got.Message)
		require.Equal(t, []string{
			"quota violation: project:p: CPUS limit reached",
			"field violation: instance.nodes: must be positive",
			"unknown detail type.googleapis.com/unknown.Type",
		}, got.Details)
	})
}

func TestWaitPolicy(t *testing.T) {
	t.Parallel()

	require.NoError(t, opdomain.DefaultWaitPolicy().Validate())

	filled := opdomain.WaitPolicy{Timeout: time.Minute}.WithDefaults()
	require.Equal(t, time.Minute, filled.Timeout)
	require.Equal(t, opdomain.DefaultPollInterval, filled.InitialInterval)
	require.Equal(t, opdomain.DefaultMaxPollInterval, filled.MaxInterval)
	require.Equal(t, opdomain.DefaultPollMultiplier, filled.Multiplier)
	require.Zero(t, filled.TransientRetries)
	require.NoError(t, filled.Validate())

	wide := opdomain.WaitPolicy{InitialInterval: time.Minute}.WithDefaults()
	require.Equal(t, time.Minute, wide.MaxInterval)

	bad := []opdomain.WaitPolicy{
		{Timeout: -1, InitialInterval: time.Second, MaxInterval: time.Second, Multiplier: 1},
		{InitialInterval: 2 * time.Second, MaxInterval: time.Second, Multiplier: 1},
		{InitialInterval: time.Second, MaxInterval: time.Second, Multiplier: 0.5},
		{InitialInterval: time.Second, MaxInterval: time.Second, Multiplier: 1, RandomizationFactor: 1},
		{InitialInterval: time.Second, MaxInterval: time.Second, Multiplier: 1, TransientRetries: -1},
	}
	for i, p := range bad {
		require.ErrorIs(t, p.Validate(), opdomain.ErrInvalidWaitPolicy, "policy #%d", i)
	}
}
