package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

var convergeTimeout = 10 * time.Second

var traceCmd = &cobra.Command{
	Use:   "trace <from> <node|address>",
	Short: "Converge the network, then traceroute between two nodes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := startConverged(cmd.Context(), logLevel(cmd), convergeTimeout)
		if err != nil {
			return err
		}
		hops, traceErr := n.Trace(cmd.Context(), state.NodeId(args[0]), args[1])
		if err = n.Stop(); err != nil {
			return err
		}
		if traceErr != nil {
			return traceErr
		}
		fmt.Printf("%s (%d hops)\n", strings.Join(hops, " -> "), len(hops)-1)
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	traceCmd.Flags().DurationVar(&convergeTimeout, "timeout", convergeTimeout, "how long to wait for the network to converge")
}
