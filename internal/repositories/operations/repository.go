package oprepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/nats-io/nats.go/jetstream"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
)

const (
	filterDone    = "done=true"
	filterPending = "done=false"
)

//go:generate mockery --name KeyValue --output ./mocks --outpkg mocks --with-expecter --filename key_value.go
type KeyValue interface {
	jetstream.KeyValue
}

type Repository struct {
	kv KeyValue
}

func NewRepository(ctx context.Context, js jetstream.JetStream, bucket string) (*Repository, error) {
	if bucket == "" {
		return nil, errors.New("bucket is empty")
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "long-running operations",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv %s: %w", bucket, err)
	}

	return &Repository{kv: kv}, nil
}

func (r *Repository) CreateOperation(ctx context.Context, args *opdomain.CreateOperationArgs) (*opdomain.CreateOperationResult, error) {
	if args == nil {
		return nil, opdomain.ErrInvalidArgument
	}
	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return nil, err
	}

	op := &longrunningpb.Operation{
		Name:     string(args.Name),
		Metadata: args.Metadata,
	}

	b, err := proto.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("marshal operation: %w", err)
	}

	if _, err := r.kv.Create(ctx, string(args.Name), b); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return nil, opdomain.ErrOperationAlreadyExists
		}
		return nil, err
	}

	return &opdomain.CreateOperationResult{Operation: op}, nil
}

func (r *Repository) GetOperation(ctx context.Context, args *opdomain.GetOperationArgs) (*opdomain.GetOperationResult, error) {
	if args == nil || args.Name == "" {
		return nil, opdomain.ErrInvalidOperationName
	}

	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return nil, err
	}

	_, op, err := r.getOperationEntry(ctx, string(args.Name))
	if err != nil {
		return nil, err
	}

	return &opdomain.GetOperationResult{Operation: op}, nil
}

func (r *Repository) ListOperations(ctx context.Context, args *opdomain.ListOperationsArgs) (*opdomain.ListOperationsResult, error) {
	if args == nil {
		return nil, opdomain.ErrInvalidArgument
	}
	if args.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be greater than 0", opdomain.ErrInvalidArgument)
	}

	match, err := parseFilter(args.Filter)
	if err != nil {
		return nil, err
	}

	keys, err := r.listOperationKeys(ctx, args.Name)
	if err != nil {
		return nil, err
	}

	start := 0
	if args.PageToken != "" {
		if _, err := opdomain.ParseOperationName(args.PageToken); err != nil {
			return nil, opdomain.ErrInvalidPageToken
		}
		// the token key may be gone by now; resume after it either way
		start = sort.SearchStrings(keys, args.PageToken)
		if start < len(keys) && keys[start] == args.PageToken {
			start++
		}
	}

	ops := make([]*longrunningpb.Operation, 0, args.PageSize)
	next := ""
	for i := start; i < len(keys); i++ {
		_, op, err := r.getOperationEntry(ctx, keys[i])
		if err != nil {
			// deleted between listing and reading
			if errors.Is(err, opdomain.ErrOperationNotFound) {
				continue
			}
			return nil, err
		}
		if !match(op) {
			continue
		}

		ops = append(ops, op)
		if len(ops) == int(args.PageSize) {
			if i+1 < len(keys) {
				next = keys[i]
			}
			break
		}
	}

	return &opdomain.ListOperationsResult{
		Operations:    ops,
		NextPageToken: next,
	}, nil
}

func (r *Repository) DeleteOperation(ctx context.Context, args *opdomain.DeleteOperationArgs) error {
	if args == nil || args.Name == "" {
		return opdomain.ErrInvalidOperationName
	}

	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return err
	}
	if _, _, err := r.getOperationEntry(ctx, string(args.Name)); err != nil {
		return err
	}

	if err := r.kv.Delete(ctx, string(args.Name)); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return opdomain.ErrOperationNotFound
		}
		return err
	}
	return nil
}

// CancelOperation finishes a pending operation with google.rpc.Code
// CANCELLED, the way servers report a successful cancellation.
func (r *Repository) CancelOperation(ctx context.Context, args *opdomain.CancelOperationArgs) error {
	if args == nil || args.Name == "" {
		return opdomain.ErrInvalidOperationName
	}

	_, err := r.finish(ctx, args.Name, func(op *longrunningpb.Operation) {
		op.Result = &longrunningpb.Operation_Error{Error: &rpcstatus.Status{
			Code:    int32(codes.Canceled),
			Message: "operation was cancelled",
		}}
	})
	return err
}

func (r *Repository) CompleteOperation(ctx context.Context, args *opdomain.CompleteOperationArgs) (*opdomain.CompleteOperationResult, error) {
	if args == nil || args.Name == "" {
		return nil, opdomain.ErrInvalidOperationName
	}
	if (args.Response == nil) == (args.Error == nil) {
		return nil, fmt.Errorf("%w: exactly one of response or error is required", opdomain.ErrInvalidArgument)
	}

	op, err := r.finish(ctx, args.Name, func(op *longrunningpb.Operation) {
		if args.Error != nil {
			op.Result = &longrunningpb.Operation_Error{Error: args.Error}
			return
		}
		op.Result = &longrunningpb.Operation_Response{Response: args.Response}
	})
	if err != nil {
		return nil, err
	}

	return &opdomain.CompleteOperationResult{Operation: op}, nil
}

func (r *Repository) finish(ctx context.Context, name opdomain.OperationName, set func(op *longrunningpb.Operation)) (*longrunningpb.Operation, error) {
	if _, err := opdomain.ParseOperationName(string(name)); err != nil {
		return nil, err
	}

	entry, op, err := r.getOperationEntry(ctx, string(name))
	if err != nil {
		return nil, err
	}
	if op.GetDone() {
		return nil, opdomain.ErrOperationAlreadyDone
	}

	updated := proto.Clone(op).(*longrunningpb.Operation)
	updated.Done = true
	set(updated)

	b, err := proto.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("marshal operation: %w", err)
	}

	if _, err := r.kv.Update(ctx, string(name), b, entry.Revision()); err != nil {
		return nil, fmt.Errorf("%w: %v", opdomain.ErrOperationConflict, err)
	}

	return updated, nil
}

func (r *Repository) getOperationEntry(ctx context.Context, key string) (jetstream.KeyValueEntry, *longrunningpb.Operation, error) {
	entry, err := r.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil, opdomain.ErrOperationNotFound
		}
		return nil, nil, err
	}

	var op longrunningpb.Operation
	if err := proto.Unmarshal(entry.Value(), &op); err != nil {
		return nil, nil, fmt.Errorf("unmarshal operation %s: %w", key, err)
	}
	if op.GetName() == "" {
		op.Name = key
	}

	return entry, &op, nil
}

func (r *Repository) listOperationKeys(ctx context.Context, parent string) ([]string, error) {
	lister, err := r.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	defer lister.Stop()

	var keys []string
	for k := range lister.Keys() {
		if _, err := opdomain.ParseOperationName(k); err != nil {
			continue
		}
		if parent != "" && !strings.HasPrefix(k, strings.TrimSuffix(parent, "/")+"/") {
			continue
		}
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys, nil
}

func parseFilter(filter string) (func(*longrunningpb.Operation) bool, error) {
	switch strings.ReplaceAll(strings.TrimSpace(filter), " ", "") {
	case "":
		return func(*longrunningpb.Operation) bool { return true }, nil
	case filterDone:
		return func(op *longrunningpb.Operation) bool { return op.GetDone() }, nil
	case filterPending:
		return func(op *longrunningpb.Operation) bool { return !op.GetDone() }, nil
	default:
		return nil, fmt.Errorf("%w: unsupported filter %q", opdomain.ErrInvalidArgument, filter)
	}
}
