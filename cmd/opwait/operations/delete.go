package opcmd

import (
	"fmt"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/spf13/cobra"
)

func NewDeleteCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an operation record; the work it tracks is not affected",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := opdomain.ParseOperationName(args[0])
			if err != nil {
				return usageErr(err)
			}

			return rt.withClient(cmd.Context(), func(c Client) error {
				if err := c.DeleteOperation(cmd.Context(), &opdomain.DeleteOperationArgs{Name: name}); err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "Deleted [%s].\n", name)
				return nil
			})
		},
	}
}
