package core

import (
	"github.com/encodeous/lsr/perf"
	"github.com/encodeous/lsr/state"
)

// ComputeRoutes rebuilds the forwarding table from the current graph. A destination only gets a next hop when the first hop on its shortest path is a live neighbour.
func ComputeRoutes(s *state.RouterState, r Router) {
	perf.SpfRuns.Add(1)
	tree := ComputeShortestPathTree(s.Graph, s.Id)
	table := make(map[state.NodeId]state.FwdEntry, s.Graph.Len())

	for _, dst := range s.Graph.Nodes() {
		if dst == s.Id {
			continue
		}
		entry := state.FwdEntry{}
		path, err := tree.PathTo(dst)
		if err == nil && len(path) >= 2 {
			if _, ok := s.Adjacency[path[1]]; ok {
				entry.Nh = path[1]
				entry.Metric, _ = tree.Metric(dst)
			} else {
				r.Log(DeadNextHop, "first hop is not a live neighbour", "dst", dst, "nh", path[1])
			}
		}
		table[dst] = entry

		if old, ok := s.Forward[dst]; !ok || old != entry {
			r.Log(RouteChanged, "forwarding entry changed", "dst", dst, "old", old, "new", entry)
			r.TableUpdate(dst, entry)
		}
	}
	s.Forward = table
}
