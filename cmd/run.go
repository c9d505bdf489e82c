package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/encodeous/lsr/sim"
	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated network",
	Long:  `Starts every node in the network config and runs until interrupted, or for the given duration. Forwarding tables are printed when the run ends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if runFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runFor)
			defer cancel()
		}

		cfg, err := state.ReadNetworkConfig(networkConfigPath)
		if err != nil {
			return err
		}
		n, err := sim.New(cfg, logLevel(cmd))
		if err != nil {
			return err
		}
		if err = n.Start(context.Background()); err != nil {
			return err
		}

		if watchChanges {
			changes, err := n.Watch()
			if err != nil {
				_ = n.Stop()
				return err
			}
			go func() {
				for change := range changes {
					fmt.Printf("%s: %s -> %s\n", change.Node, change.Dst, change.Entry)
				}
			}()
		}

		<-ctx.Done()
		if printTables {
			ids := cfg.NodeIds()
			slices.Sort(ids)
			for _, id := range ids {
				out, err := n.Inspect(id)
				if err != nil {
					return err
				}
				fmt.Println(out)
				fmt.Println()
			}
		}
		return n.Stop()
	},
	GroupID: "sim",
}

var (
	runFor       time.Duration
	watchChanges bool
	printTables  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().DurationVar(&runFor, "for", 0, "stop after this long, 0 runs until interrupted")
	runCmd.Flags().BoolVarP(&watchChanges, "watch", "w", false, "print every forwarding table change")
	runCmd.Flags().BoolVarP(&printTables, "ltable", "t", true, "print every node's lsdb and forwarding table on exit")
}
