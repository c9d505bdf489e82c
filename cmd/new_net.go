package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/encodeous/lsr/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var overwrite bool

var netCmd = &cobra.Command{
	Use:   "new-net",
	Short: "Write a sample network config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(networkConfigPath); err == nil && !overwrite {
			return fmt.Errorf("%s already exists, pass --force to overwrite it", networkConfigPath)
		}
		out, err := yaml.Marshal(sampleNetwork())
		if err != nil {
			return err
		}
		if err = os.WriteFile(networkConfigPath, out, 0600); err != nil {
			return err
		}
		fmt.Printf("Wrote sample network to %s\n", networkConfigPath)
		return nil
	},
	GroupID: "init",
}

func sampleNetwork() *state.NetworkCfg {
	node := func(id state.NodeId, prefix string) state.NodeCfg {
		return state.NodeCfg{Id: id, Prefixes: []netip.Prefix{netip.MustParsePrefix(prefix)}}
	}
	return &state.NetworkCfg{
		Heartbeat: 2 * time.Second,
		Nodes: []state.NodeCfg{
			node("a", "10.0.1.0/24"),
			node("b", "10.0.2.0/24"),
			node("c", "10.0.3.0/24"),
			node("d", "10.0.4.0/24"),
			node("e", "10.0.5.0/24"),
		},
		Graph: []string{
			"core = a, b, c",
			"core, core",
			"c, d",
		},
		Links: []state.LinkCfg{
			{A: "a", B: "c", Cost: 10, Latency: 5 * time.Millisecond},
			{A: "d", B: "e", Cost: 2, Down: true},
		},
		Events: []state.EventCfg{
			{At: 3 * time.Second, A: "d", B: "e", Action: state.ActionUp},
			{At: 6 * time.Second, A: "b", B: "c", Action: state.ActionDown},
		},
	}
}

func init() {
	rootCmd.AddCommand(netCmd)
	netCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing config")
}
