package opcmd

import (
	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/spf13/cobra"
)

func NewListCmd(rt *Runtime) *cobra.Command {
	var (
		parent    string
		filter    string
		pageSize  int32
		pageToken string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List operations",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withClient(cmd.Context(), func(c Client) error {
				res, err := c.ListOperations(cmd.Context(), &opdomain.ListOperationsArgs{
					Name:      parent,
					Filter:    filter,
					PageSize:  pageSize,
					PageToken: pageToken,
				})
				if err != nil {
					return err
				}

				return cmdPrinter(cmd, rt.Settings.Format).operations(&longrunningpb.ListOperationsResponse{
					Operations:    res.Operations,
					NextPageToken: res.NextPageToken,
					Unreachable:   res.Unreachable,
				})
			})
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Only operations under this resource, e.g. projects/p")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter expression: done=true or done=false")
	cmd.Flags().Int32Var(&pageSize, "page-size", 0, "Max number of operations to return (0 = server default)")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Pagination token from previous response")

	return cmd
}
