package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [view|list]",
		Short: "Runs",
		Long:  `View and list curve computations.`,
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View run",
		Long:  `View run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := fsdk.GetRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [offset] [limit]",
		Short: "List runs",
		Long:  `List runs.`,
		Run: func(cmd *cobra.Command, args []string) {
			offset, limit, err := pageArgs(args)
			if err != nil {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			rp, err := fsdk.ListRuns(offset, limit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, rp)
		},
	}

	cmd.AddCommand(viewCmd, listCmd)

	return cmd
}

func NewNodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes [list]",
		Short: "Nodes",
		Long:  `List the nodes registered with the coordinator.`,
	}

	listCmd := &cobra.Command{
		Use:   "list [offset] [limit]",
		Short: "List nodes",
		Long:  `List nodes and their liveness.`,
		Run: func(cmd *cobra.Command, args []string) {
			offset, limit, err := pageArgs(args)
			if err != nil {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			np, err := fsdk.ListNodes(offset, limit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, np)
		},
	}

	cmd.AddCommand(listCmd)

	return cmd
}

func pageArgs(args []string) (offset, limit uint64, err error) {
	offset, limit = defOffset, defLimit
	if len(args) > 2 {
		return 0, 0, strconv.ErrSyntax
	}
	if len(args) > 0 {
		if offset, err = strconv.ParseUint(args[0], 10, 64); err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 {
		if limit, err = strconv.ParseUint(args[1], 10, 64); err != nil {
			return 0, 0, err
		}
	}

	return offset, limit, nil
}
