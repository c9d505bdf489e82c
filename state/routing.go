package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

type NodeId string

// Port identifies one of a node's local links
type Port int

// Cost is the weight of a single link
type Cost uint32

type Link struct {
	Port Port
	Cost Cost
}

// Advertisement is the complete adjacency of Origin at the time it was produced. It is never mutated after creation.
type Advertisement struct {
	Origin     NodeId
	Seqno      uint64
	Neighbours map[NodeId]Cost
}

func (a Advertisement) String() string {
	return fmt.Sprintf("(origin: %s, seqno: %d, neighbours: %s)", a.Origin, a.Seqno, formatNeighbours(a.Neighbours))
}

type LsdbEntry struct {
	Seqno      uint64
	Neighbours map[NodeId]Cost
}

// FwdEntry is the forwarding decision for a single destination
type FwdEntry struct {
	// Nh is the next hop, empty when the destination is unreachable
	Nh     NodeId
	Metric uint64
}

func (e FwdEntry) Reachable() bool {
	return e.Nh != ""
}

func (e FwdEntry) String() string {
	if !e.Reachable() {
		return "unreachable"
	}
	return fmt.Sprintf("via %s metric %d", e.Nh, e.Metric)
}

type AcceptPolicy string

const (
	// PolicyContent accepts an advertisement only if its seqno is newer and its content differs from the stored one
	PolicyContent AcceptPolicy = "content"
	// PolicySequence accepts any advertisement with a newer seqno
	PolicySequence AcceptPolicy = "sequence"
)

type RouterState struct {
	Id NodeId
	// Seqno is the sequence number of the last self advertisement
	Seqno         uint64
	LastHeartbeat int64
	Heartbeat     time.Duration
	Policy        AcceptPolicy
	Readvertise   bool
	DatabaseSync  bool
	Adjacency     map[NodeId]Link
	Lsdb          map[NodeId]LsdbEntry
	Graph         *Graph
	Forward       map[NodeId]FwdEntry
}

func NewRouterState(id NodeId) *RouterState {
	g := NewGraph()
	g.AddNode(id)
	return &RouterState{
		Id:           id,
		Heartbeat:    HeartbeatInterval,
		Policy:       DefaultAcceptPolicy,
		DatabaseSync: true,
		Adjacency:    make(map[NodeId]Link),
		Lsdb:         make(map[NodeId]LsdbEntry),
		Graph:        g,
		Forward:      make(map[NodeId]FwdEntry),
	}
}

// NeighbourOnPort returns the neighbour attached to port
func (s *RouterState) NeighbourOnPort(port Port) (NodeId, bool) {
	for id, link := range s.Adjacency {
		if link.Port == port {
			return id, true
		}
	}
	return "", false
}

// Neighbours returns the ids of all live neighbours in order
func (s *RouterState) Neighbours() []NodeId {
	return slices.Sorted(maps.Keys(s.Adjacency))
}

// SelfAdvertisement builds the advertisement for the current adjacency and seqno
func (s *RouterState) SelfAdvertisement() Advertisement {
	neighbours := make(map[NodeId]Cost, len(s.Adjacency))
	for id, link := range s.Adjacency {
		neighbours[id] = link.Cost
	}
	return Advertisement{
		Origin:     s.Id,
		Seqno:      s.Seqno,
		Neighbours: neighbours,
	}
}

// Advertisements returns every stored advertisement, ordered by origin
func (s *RouterState) Advertisements() []Advertisement {
	advs := make([]Advertisement, 0, len(s.Lsdb))
	for _, origin := range slices.Sorted(maps.Keys(s.Lsdb)) {
		entry := s.Lsdb[origin]
		advs = append(advs, Advertisement{
			Origin:     origin,
			Seqno:      entry.Seqno,
			Neighbours: entry.Neighbours,
		})
	}
	return advs
}

func (s *RouterState) StringRoutes() string {
	buf := make([]string, 0, len(s.Forward))
	for _, dst := range slices.Sorted(maps.Keys(s.Forward)) {
		buf = append(buf, fmt.Sprintf("%s: %s", dst, s.Forward[dst]))
	}
	return strings.Join(buf, "\n")
}

func (s *RouterState) StringLsdb() string {
	buf := make([]string, 0, len(s.Lsdb))
	for _, origin := range slices.Sorted(maps.Keys(s.Lsdb)) {
		entry := s.Lsdb[origin]
		buf = append(buf, fmt.Sprintf("%s: seqno %d %s", origin, entry.Seqno, formatNeighbours(entry.Neighbours)))
	}
	return strings.Join(buf, "\n")
}

func formatNeighbours(n map[NodeId]Cost) string {
	parts := make([]string, 0, len(n))
	for _, id := range slices.Sorted(maps.Keys(n)) {
		parts = append(parts, fmt.Sprintf("%s:%d", id, n[id]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
