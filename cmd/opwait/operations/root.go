package opcmd

import "github.com/spf13/cobra"

func NewRootCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opwait",
		Short: "Tool for waiting on long-running operations",
		Long: "Tool for waiting on and managing long-running operations " +
			"exposed by an opwait gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return usageErr(rt.Init())
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})

	BindGlobalFlags(cmd.PersistentFlags(), rt.Settings)
	cmd.AddCommand(NewOperationsGroup(rt))

	return cmd
}
