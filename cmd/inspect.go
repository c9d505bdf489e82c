package cmd

import (
	"fmt"

	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <node>",
	Short: "Converge the network, then print the lsdb and forwarding table of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := startConverged(cmd.Context(), logLevel(cmd), convergeTimeout)
		if err != nil {
			return err
		}
		out, inspectErr := n.Inspect(state.NodeId(args[0]))
		if err = n.Stop(); err != nil {
			return err
		}
		if inspectErr != nil {
			return inspectErr
		}
		fmt.Println(out)
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
