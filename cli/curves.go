package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/absmach/fedkm/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10

	nodeIDs     []int
	binSize     int
	filterValue string
	asTable     bool
)

var fsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	fsdk = s
}

func NewCurvesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curves [compute]",
		Short: "Survival curves",
		Long:  `Compute Kaplan-Meier survival curves across nodes.`,
	}

	computeCmd := &cobra.Command{
		Use:   "compute <time_column> <censor_column>",
		Short: "Compute curve",
		Long: `Compute a Kaplan-Meier curve over the datasets of the nodes.

Examples:
  # Use every live node
  fedkm-cli curves compute TIME_AT_RISK MORTALITY_FLAG

  # Use three nodes, bin times by 30 and select a cohort
  fedkm-cli curves compute TIME_AT_RISK MORTALITY_FLAG --nodes=1,2,3 --bin-size=30 --filter=female`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			run, err := fsdk.ComputeCurve(sdk.CurveRequest{
				TimeColumn:   args[0],
				CensorColumn: args[1],
				Nodes:        nodeIDs,
				BinSize:      binSize,
				FilterValue:  filterValue,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if asTable && run.Curve != nil {
				printCurve(*cmd, *run.Curve)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}

	computeCmd.Flags().IntSliceVar(&nodeIDs, "nodes", nil, "IDs of the nodes taking part (comma-separated), defaults to every live node")
	computeCmd.Flags().IntVar(&binSize, "bin-size", 0, "Width of the time bins, 0 disables binning")
	computeCmd.Flags().StringVar(&filterValue, "filter", "", "Cohort the nodes select through their filter column")
	computeCmd.Flags().BoolVar(&asTable, "table", false, "Print the curve as a table")

	cmd.AddCommand(computeCmd)

	return cmd
}

func printCurve(cmd cobra.Command, c sdk.Curve) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{c.TimeColumn, "removed", "observed", "censored", "at_risk", "hazard", "survival", "cdf", "pmf"}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")
	for _, r := range c.Rows {
		fmt.Fprintln(w, strings.Join([]string{
			strconv.FormatFloat(r.Time, 'f', -1, 64),
			strconv.FormatInt(r.Removed, 10),
			strconv.FormatInt(r.Observed, 10),
			strconv.FormatInt(r.Censored, 10),
			strconv.FormatInt(r.AtRisk, 10),
			strconv.FormatFloat(r.Hazard, 'f', 4, 64),
			strconv.FormatFloat(r.Survival, 'f', 4, 64),
			strconv.FormatFloat(r.CDF, 'f', 4, 64),
			strconv.FormatFloat(r.PMF, 'f', 4, 64),
		}, "\t")+"\t")
	}
	w.Flush()
}
