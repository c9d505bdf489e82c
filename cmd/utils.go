package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/encodeous/lsr/sim"
	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

func logLevel(cmd *cobra.Command) slog.Level {
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// startConverged starts the network in the config file and waits until every node has optimal routes
func startConverged(ctx context.Context, level slog.Level, timeout time.Duration) (*sim.Network, error) {
	cfg, err := state.ReadNetworkConfig(networkConfigPath)
	if err != nil {
		return nil, err
	}
	n, err := sim.New(cfg, level)
	if err != nil {
		return nil, err
	}
	if err = n.Start(ctx); err != nil {
		return nil, err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err = n.WaitConverged(wctx); err != nil {
		_ = n.Stop()
		return nil, err
	}
	return n, nil
}

// parseNeighbours reads adjacency entries of the form name=cost
func parseNeighbours(args []string) (map[string]uint32, error) {
	res := make(map[string]uint32)
	for _, arg := range args {
		name, cost, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=cost, got %q", arg)
		}
		val, err := strconv.ParseUint(cost, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid cost for %s: %w", name, err)
		}
		if _, dup := res[name]; dup {
			return nil, fmt.Errorf("duplicate neighbour %s", name)
		}
		res[name] = uint32(val)
	}
	return res, nil
}
