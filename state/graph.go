package state

import (
	"iter"
	"maps"
	"slices"
)

// Graph is an undirected weighted graph with at most one edge per pair of vertices
type Graph struct {
	adj map[NodeId]map[NodeId]Cost
}

func NewGraph() *Graph {
	return &Graph{adj: make(map[NodeId]map[NodeId]Cost)}
}

func (g *Graph) AddNode(n NodeId) {
	if _, ok := g.adj[n]; !ok {
		g.adj[n] = make(map[NodeId]Cost)
	}
}

// RemoveNode deletes n and every edge incident to it
func (g *Graph) RemoveNode(n NodeId) {
	for peer := range g.adj[n] {
		delete(g.adj[peer], n)
	}
	delete(g.adj, n)
}

func (g *Graph) HasNode(n NodeId) bool {
	_, ok := g.adj[n]
	return ok
}

// AddEdge inserts or replaces the edge between u and v, adding missing vertices. Self loops are ignored.
func (g *Graph) AddEdge(u, v NodeId, cost Cost) {
	if u == v {
		return
	}
	g.AddNode(u)
	g.AddNode(v)
	g.adj[u][v] = cost
	g.adj[v][u] = cost
}

// RemoveEdge deletes the edge between u and v, keeping both vertices
func (g *Graph) RemoveEdge(u, v NodeId) {
	delete(g.adj[u], v)
	delete(g.adj[v], u)
}

func (g *Graph) Edge(u, v NodeId) (Cost, bool) {
	c, ok := g.adj[u][v]
	return c, ok
}

func (g *Graph) Neighbours(n NodeId) iter.Seq2[NodeId, Cost] {
	return maps.All(g.adj[n])
}

// Nodes returns all vertices in order
func (g *Graph) Nodes() []NodeId {
	return slices.Sorted(maps.Keys(g.adj))
}

func (g *Graph) Len() int {
	return len(g.adj)
}
