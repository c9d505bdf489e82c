package cmd

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Lists the prefixes owned by each node, usable as traceroute destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadNetworkConfig(networkConfigPath)
		if err != nil {
			return err
		}
		fmt.Print(formatHosts(cfg))
		return nil
	},
	GroupID: "cfg",
}

func formatHosts(cfg *state.NetworkCfg) string {
	type host struct {
		prefix netip.Prefix
		node   state.NodeId
	}
	hosts := make([]host, 0)
	for _, node := range cfg.Nodes {
		for _, prefix := range node.Prefixes {
			hosts = append(hosts, host{prefix.Masked(), node.Id})
		}
	}
	slices.SortFunc(hosts, func(a, b host) int {
		if c := a.prefix.Addr().Compare(b.prefix.Addr()); c != 0 {
			return c
		}
		return a.prefix.Bits() - b.prefix.Bits()
	})
	sb := strings.Builder{}
	for _, h := range hosts {
		sb.WriteString(fmt.Sprintf("%s\t%s\n", h.prefix, h.node))
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}
