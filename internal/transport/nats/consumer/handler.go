package natscons

import (
	"context"
	"errors"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	complrepo "github.com/10Narratives/opwait/internal/repositories/completions"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// NewCompletionHandler applies completion events to the store. Events that
// can never apply are dropped.
func NewCompletionHandler(completer opdomain.OperationCompleter, log *zap.Logger) Handler {
	return func(ctx context.Context, msg jetstream.Msg) error {
		args, err := complrepo.DecodeCompletion(msg.Data())
		if err != nil {
			log.Warn("dropping malformed completion event",
				zap.String("subject", msg.Subject()),
				zap.Error(err),
			)
			return nil
		}

		res, err := completer.CompleteOperation(ctx, args)
		switch {
		case err == nil:
			log.Info("operation completed",
				zap.Stringer("operation", args.Name),
				zap.Bool("failed", res.Operation.GetError() != nil),
			)
			return nil
		case errors.Is(err, opdomain.ErrOperationNotFound),
			errors.Is(err, opdomain.ErrOperationAlreadyDone),
			errors.Is(err, opdomain.ErrInvalidOperationName),
			errors.Is(err, opdomain.ErrInvalidArgument):
			log.Warn("dropping completion event",
				zap.Stringer("operation", args.Name),
				zap.Error(err),
			)
			return nil
		default:
			return err
		}
	}
}
