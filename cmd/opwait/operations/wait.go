package opcmd

import (
	"fmt"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	sliceutils "github.com/10Narratives/opwait/pkg/slices"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/anypb"
)

const defaultParallelism = 8

func NewWaitCmd(rt *Runtime) *cobra.Command {
	var parallelism int

	cmd := &cobra.Command{
		Use:   "wait NAME...",
		Short: "Wait for operations to complete and print their results",
		Long: "Polls each operation with exponential backoff until it is done, fails or the timeout elapses.\n" +
			"Interrupting the wait does not cancel the operation.",
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := sliceutils.TryMap(args, opdomain.ParseOperationName)
			if err != nil {
				return usageErr(err)
			}

			policy := rt.Settings.Wait.Policy()

			return rt.withClient(cmd.Context(), func(c Client) error {
				if len(names) == 1 {
					return waitOne(cmd, rt, c, names[0], &policy)
				}
				return waitMany(cmd, rt, c, names, &policy, parallelism)
			})
		},
	}

	bindWaitFlags(cmd.Flags(), &rt.Settings.Wait)
	cmd.Flags().IntVar(&parallelism, "parallelism", defaultParallelism, "Max operations polled at once")

	return cmd
}

func newOperationPoller(rt *Runtime, c Client, tracker pollsrv.ProgressTracker) (*pollsrv.Poller[*longrunningpb.Operation, *anypb.Any], error) {
	return pollsrv.NewPoller[*longrunningpb.Operation, *anypb.Any](c.Getter(), pollsrv.OperationClassifier, rt.pollerOptions(tracker)...)
}

func waitOne(cmd *cobra.Command, rt *Runtime, c Client, name opdomain.OperationName, policy *opdomain.WaitPolicy) error {
	poller, err := newOperationPoller(rt, c, pollsrv.NewWriterTracker(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	resp, err := poller.Wait(cmd.Context(), name, policy, "")
	if err != nil {
		return err
	}

	return printResult(cmdPrinter(cmd, rt.Settings.Format), name, resp)
}

func waitMany(cmd *cobra.Command, rt *Runtime, c Client, names []opdomain.OperationName, policy *opdomain.WaitPolicy, parallelism int) error {
	poller, err := newOperationPoller(rt, c, pollsrv.NewLogTracker(rt.Log))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for %d operations to complete...\n", len(names))

	var firstErr error
	for _, outcome := range poller.WaitAll(cmd.Context(), names, policy, parallelism) {
		if outcome.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %v\n", outcome.Name, outcome.Err)
			if firstErr == nil {
				firstErr = outcome.Err
			}
			continue
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] done.\n", outcome.Name)
		if err := printResult(cmdPrinter(cmd, rt.Settings.Format), outcome.Name, outcome.Resource); err != nil {
			return err
		}
	}

	return firstErr
}

// printResult prints the operation response, or the name in name format.
// Operations finishing without a payload print nothing.
func printResult(p printer, name opdomain.OperationName, resp *anypb.Any) error {
	switch {
	case p.format == FormatName:
		_, err := fmt.Fprintln(p.w, name)
		return err
	case resp == nil:
		return nil
	default:
		return p.message(resp)
	}
}
