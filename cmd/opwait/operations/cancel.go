package opcmd

import (
	"errors"
	"fmt"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
)

func NewCancelCmd(rt *Runtime) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "cancel NAME",
		Short: "Request cancellation of an operation and wait until it stops",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := opdomain.ParseOperationName(args[0])
			if err != nil {
				return usageErr(err)
			}

			policy := rt.Settings.Wait.Policy()

			return rt.withClient(cmd.Context(), func(c Client) error {
				if err := c.CancelOperation(cmd.Context(), &opdomain.CancelOperationArgs{Name: name}); err != nil {
					return err
				}

				if async {
					fmt.Fprintf(cmd.ErrOrStderr(), "Cancellation requested for [%s].\n", name)
					_, err := fmt.Fprintln(cmd.OutOrStdout(), name)
					return err
				}

				poller, err := newOperationPoller(rt, c, pollsrv.NewWriterTracker(cmd.ErrOrStderr()))
				if err != nil {
					return err
				}

				_, err = poller.Wait(cmd.Context(), name, &policy, fmt.Sprintf("Cancelling operation [%s]", name))

				var failed *opdomain.OperationFailedError
				switch {
				case err == nil:
					fmt.Fprintf(cmd.ErrOrStderr(), "Operation [%s] completed before it could be cancelled.\n", name)
					return nil
				case errors.As(err, &failed) && failed.Code == codes.Canceled:
					fmt.Fprintf(cmd.ErrOrStderr(), "Cancelled [%s].\n", name)
					return nil
				default:
					return err
				}
			})
		},
	}

	bindWaitFlags(cmd.Flags(), &rt.Settings.Wait)
	cmd.Flags().BoolVar(&async, "async", false, "Return right after the cancellation request, printing the operation name")

	return cmd
}
