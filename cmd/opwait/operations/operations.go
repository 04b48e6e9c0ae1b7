package opcmd

import "github.com/spf13/cobra"

func NewOperationsGroup(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operations",
		Aliases: []string{"ops"},
		Short:   "Commands for long-running operations",
	}

	cmd.AddCommand(
		NewDescribeCmd(rt),
		NewListCmd(rt),
		NewWaitCmd(rt),
		NewCancelCmd(rt),
		NewDeleteCmd(rt),
	)

	return cmd
}
