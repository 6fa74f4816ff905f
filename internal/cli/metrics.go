package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// metricsCmd prints the operation counters of this process.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print vault operation metrics",
	Long: `Print vault operation counters in Prometheus text format, or as a JSON
snapshot with -o json. Counters cover this process only; run "metrics"
inside "satvault shell" to see a whole session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printMetrics(GetCmdContext(cmd), cmd.OutOrStdout())
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(metricsCmd)
}

func printMetrics(cc *CommandContext, w io.Writer) error {
	if cc.Formatter.IsJSON() {
		snap, err := cc.Metrics.Snapshot()
		if err != nil {
			return err
		}
		return cc.Formatter.Print(snap)
	}
	return cc.Metrics.WriteText(w)
}
