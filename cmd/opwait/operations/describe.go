package opcmd

import (
	"errors"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/spf13/cobra"
)

func NewDescribeCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Show the current state of an operation",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := opdomain.ParseOperationName(args[0])
			if err != nil {
				return usageErr(err)
			}

			return rt.withClient(cmd.Context(), func(c Client) error {
				res, err := c.GetOperation(cmd.Context(), &opdomain.GetOperationArgs{Name: name})
				if err != nil {
					return err
				}
				if res == nil || res.Operation == nil {
					return errors.New("gateway returned no operation")
				}

				return cmdPrinter(cmd, rt.Settings.Format).operation(res.Operation)
			})
		},
	}
}
