package core

import (
	"container/heap"
	"errors"
	"slices"

	"github.com/encodeous/lsr/state"
)

var ErrNoPath = errors.New("no path")

// ShortestPathTree holds the result of a single-source Dijkstra run
type ShortestPathTree struct {
	Source state.NodeId
	dist   map[state.NodeId]uint64
	prev   map[state.NodeId]state.NodeId
}

type spfItem struct {
	node state.NodeId
	dist uint64
}

// spfQueue orders by distance, then node id, so that equal cost paths resolve the same way on every run
type spfQueue []spfItem

func (q spfQueue) Len() int { return len(q) }
func (q spfQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q spfQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *spfQueue) Push(x any)   { *q = append(*q, x.(spfItem)) }
func (q *spfQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

// ComputeShortestPathTree runs Dijkstra from src over g
func ComputeShortestPathTree(g *state.Graph, src state.NodeId) *ShortestPathTree {
	t := &ShortestPathTree{
		Source: src,
		dist:   make(map[state.NodeId]uint64),
		prev:   make(map[state.NodeId]state.NodeId),
	}
	if !g.HasNode(src) {
		return t
	}
	t.dist[src] = 0
	done := make(map[state.NodeId]bool)
	q := &spfQueue{{node: src}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(spfItem)
		if done[cur.node] {
			continue
		}
		done[cur.node] = true
		for next, cost := range g.Neighbours(cur.node) {
			if done[next] {
				continue
			}
			alt := cur.dist + uint64(cost)
			old, seen := t.dist[next]
			if !seen || alt < old || (alt == old && cur.node < t.prev[next]) {
				t.dist[next] = alt
				t.prev[next] = cur.node
				heap.Push(q, spfItem{node: next, dist: alt})
			}
		}
	}
	return t
}

// Metric returns the cost of the shortest path to dst
func (t *ShortestPathTree) Metric(dst state.NodeId) (uint64, bool) {
	d, ok := t.dist[dst]
	return d, ok
}

// PathTo returns the vertices of the shortest path from the source to dst, both included
func (t *ShortestPathTree) PathTo(dst state.NodeId) ([]state.NodeId, error) {
	if _, ok := t.dist[dst]; !ok {
		return nil, ErrNoPath
	}
	path := []state.NodeId{dst}
	for cur := dst; cur != t.Source; {
		cur = t.prev[cur]
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path, nil
}

// ShortestPath returns the least cost path from src to dst, or ErrNoPath
func ShortestPath(g *state.Graph, src, dst state.NodeId) ([]state.NodeId, error) {
	return ComputeShortestPathTree(g, src).PathTo(dst)
}
