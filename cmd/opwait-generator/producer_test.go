package main

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"
)

type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func newInstantClock() *instantClock {
	return &instantClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type fakeStore struct {
	mu          sync.Mutex
	created     []opdomain.OperationName
	completed   []*opdomain.CompleteOperationArgs
	completeErr error
}

func (s *fakeStore) CreateOperation(_ context.Context, args *opdomain.CreateOperationArgs) (*opdomain.CreateOperationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, args.Name)
	return &opdomain.CreateOperationResult{}, nil
}

func (s *fakeStore) CompleteOperation(_ context.Context, args *opdomain.CompleteOperationArgs) (*opdomain.CompleteOperationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	s.completed = append(s.completed, args)
	return &opdomain.CompleteOperationResult{}, nil
}

func TestProducerConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  producerConfig
		want string
	}{
		{"error: min above max", producerConfig{MinTime: 2 * time.Second, MaxTime: time.Second}, "min-time"},
		{"error: fraction above one", producerConfig{FailFraction: 1.5}, "fail-fraction"},
		{"error: negative wait", producerConfig{Wait: -time.Second}, "wait"},
		{"ok", producerConfig{MinTime: time.Second, MaxTime: time.Second, FailFraction: 0.5}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestProducer_Run(t *testing.T) {
	t.Parallel()

	t.Run("ok: every operation fails with quota details", func(t *testing.T) {
		s := &fakeStore{}
		p, err := newProducer(producerConfig{
			Count:        4,
			Parent:       "projects/p",
			MinTime:      time.Second,
			MaxTime:      5 * time.Second,
			FailFraction: 1,
		}, s, s, newInstantClock(), zap.NewNop(), 1)
		require.NoError(t, err)

		require.NoError(t, p.Run(context.Background()))
		require.Len(t, s.created, 4)
		require.Len(t, s.completed, 4)

		for _, name := range s.created {
			require.True(t, strings.HasPrefix(string(name), "projects/p/operations/gen-"))
			_, err := opdomain.ParseOperationName(string(name))
			require.NoError(t, err)
		}

		for _, args := range s.completed {
			require.Nil(t, args.Response)
			require.Equal(t, int32(codes.ResourceExhausted), args.Error.GetCode())
			require.Len(t, args.Error.GetDetails(), 1)

			var quota errdetails.QuotaFailure
			require.NoError(t, args.Error.GetDetails()[0].UnmarshalTo(&quota))
			require.Equal(t, string(args.Name), quota.GetViolations()[0].GetSubject())
		}
	})

	t.Run("ok: every operation succeeds", func(t *testing.T) {
		s := &fakeStore{}
		p, err := newProducer(producerConfig{Count: 3, MinTime: time.Second, MaxTime: time.Second}, s, s, newInstantClock(), zap.NewNop(), 7)
		require.NoError(t, err)

		require.NoError(t, p.Run(context.Background()))
		require.Len(t, s.completed, 3)

		for _, args := range s.completed {
			require.Nil(t, args.Error)

			var resp structpb.Struct
			require.NoError(t, args.Response.UnmarshalTo(&resp))
			require.Equal(t, string(args.Name), resp.GetFields()["operation"].GetStringValue())
			require.Equal(t, "1s", resp.GetFields()["execution_time"].GetStringValue())
		}
	})

	t.Run("ok: completion conflicts are tolerated", func(t *testing.T) {
		s := &fakeStore{completeErr: opdomain.ErrOperationAlreadyDone}
		p, err := newProducer(producerConfig{Count: 2}, s, s, newInstantClock(), zap.NewNop(), 3)
		require.NoError(t, err)

		require.NoError(t, p.Run(context.Background()))
		require.Len(t, s.created, 2)
		require.Empty(t, s.completed)
	})

	t.Run("ok: stops on cancel", func(t *testing.T) {
		s := &fakeStore{}
		p, err := newProducer(producerConfig{}, s, s, newInstantClock(), zap.NewNop(), 3)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, p.Run(ctx))
		require.Empty(t, s.created)
	})

	t.Run("error: invalid config", func(t *testing.T) {
		_, err := newProducer(producerConfig{FailFraction: -1}, &fakeStore{}, &fakeStore{}, newInstantClock(), zap.NewNop(), 1)
		require.ErrorContains(t, err, "fail-fraction")
	})
}
