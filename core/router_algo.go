package core

import (
	"fmt"

	"github.com/encodeous/lsr/perf"
	"github.com/encodeous/lsr/protocol"
	"github.com/encodeous/lsr/state"
)

type RouterEvent int

// trace events

const (
	AdvertisementOriginated RouterEvent = iota
	AdvertisementAccepted
	AdvertisementRefreshed
	AdvertisementSuppressed
	AdvertisementReflected
	RouteChanged
	DeadNextHop
	LinkAdded
	LinkRemoved
	HeartbeatExpired
	DatabaseSynced
	TraceForwarded
	TraceDelivered
)

// warn events

const (
	MalformedPayload RouterEvent = iota + 1000
	UnknownPort
	UnknownPacketKind
	InvalidLink
	TraceUnreachable
	TraceTTLExceeded
	EncodeFailed
)

var eventNames = map[RouterEvent]string{
	AdvertisementOriginated: "AdvertisementOriginated",
	AdvertisementAccepted:   "AdvertisementAccepted",
	AdvertisementRefreshed:  "AdvertisementRefreshed",
	AdvertisementSuppressed: "AdvertisementSuppressed",
	AdvertisementReflected:  "AdvertisementReflected",
	RouteChanged:            "RouteChanged",
	DeadNextHop:             "DeadNextHop",
	LinkAdded:               "LinkAdded",
	LinkRemoved:             "LinkRemoved",
	HeartbeatExpired:        "HeartbeatExpired",
	DatabaseSynced:          "DatabaseSynced",
	TraceForwarded:          "TraceForwarded",
	TraceDelivered:          "TraceDelivered",
	MalformedPayload:        "MalformedPayload",
	UnknownPort:             "UnknownPort",
	UnknownPacketKind:       "UnknownPacketKind",
	InvalidLink:             "InvalidLink",
	TraceUnreachable:        "TraceUnreachable",
	TraceTTLExceeded:        "TraceTTLExceeded",
	EncodeFailed:            "EncodeFailed",
}

func (e RouterEvent) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("RouterEvent(%d)", int(e))
}

// IsWarning reports whether the event signals a problem with the input rather than normal operation
func (e RouterEvent) IsWarning() bool {
	return e >= 1000
}

// Router is an interface that defines the underlying router operations
type Router interface {
	Codec() protocol.Codec
	// Transmit sends pkt out of port. It must not block.
	Transmit(port state.Port, pkt *protocol.Packet)
	// Deliver hands a packet addressed to this node to the application
	Deliver(pkt *protocol.Packet)
	TableUpdate(dst state.NodeId, entry state.FwdEntry)
	Log(event RouterEvent, desc string, args ...any)
}

func toLinkState(adv state.Advertisement) protocol.LinkState {
	ls := protocol.LinkState{
		Seqno:      adv.Seqno,
		Neighbours: make(map[string]uint32, len(adv.Neighbours)),
	}
	for id, cost := range adv.Neighbours {
		ls.Neighbours[string(id)] = uint32(cost)
	}
	return ls
}

func fromLinkState(origin state.NodeId, ls protocol.LinkState) state.Advertisement {
	adv := state.Advertisement{
		Origin:     origin,
		Seqno:      ls.Seqno,
		Neighbours: make(map[state.NodeId]state.Cost, len(ls.Neighbours)),
	}
	for id, cost := range ls.Neighbours {
		adv.Neighbours[state.NodeId(id)] = state.Cost(cost)
	}
	return adv
}

func sendAdvertisement(r Router, port state.Port, neigh state.NodeId, adv state.Advertisement) {
	content, err := r.Codec().Marshal(toLinkState(adv))
	if err != nil {
		r.Log(EncodeFailed, "failed to encode advertisement", "adv", adv, "err", err)
		return
	}
	perf.AdvertisementsSent.Add(1)
	r.Transmit(port, protocol.NewRouting(string(adv.Origin), string(neigh), content))
}

// flood sends adv to every live neighbour except the origin and the one attached to except
func flood(s *state.RouterState, r Router, adv state.Advertisement, except *state.Port) {
	for _, neigh := range s.Neighbours() {
		link := s.Adjacency[neigh]
		if neigh == adv.Origin || (except != nil && link.Port == *except) {
			continue
		}
		sendAdvertisement(r, link.Port, neigh, adv)
	}
}

// AdvertiseSelf produces a fresh self advertisement and floods it to every neighbour
func AdvertiseSelf(s *state.RouterState, r Router) {
	s.Seqno++
	adv := s.SelfAdvertisement()
	perf.AdvertisementsOriginated.Add(1)
	r.Log(AdvertisementOriginated, "flooding self advertisement", "adv", adv)
	flood(s, r, adv, nil)
}

// syncDatabase sends every stored advertisement to a newly attached neighbour
func syncDatabase(s *state.RouterState, r Router, neigh state.NodeId) {
	link := s.Adjacency[neigh]
	advs := s.Advertisements()
	for _, adv := range advs {
		if adv.Origin == neigh {
			continue
		}
		sendAdvertisement(r, link.Port, neigh, adv)
	}
	r.Log(DatabaseSynced, "sent lsdb to new neighbour", "neigh", neigh, "count", len(advs))
}

func HandleLinkUp(s *state.RouterState, r Router, port state.Port, neigh state.NodeId, cost state.Cost) {
	if neigh == s.Id || neigh == "" {
		r.Log(InvalidLink, "ignoring link to self", "port", port, "neigh", neigh)
		return
	}
	// a port carries a single neighbour, replace whatever was attached before
	if old, ok := s.NeighbourOnPort(port); ok && old != neigh {
		delete(s.Adjacency, old)
		s.Graph.RemoveEdge(s.Id, old)
	}
	s.Adjacency[neigh] = state.Link{Port: port, Cost: cost}
	s.Graph.AddEdge(s.Id, neigh, cost)
	r.Log(LinkAdded, "link up", "port", port, "neigh", neigh, "cost", cost)

	ComputeRoutes(s, r)
	AdvertiseSelf(s, r)
	if s.DatabaseSync {
		syncDatabase(s, r, neigh)
	}
}

func HandleLinkDown(s *state.RouterState, r Router, port state.Port) {
	neigh, ok := s.NeighbourOnPort(port)
	if !ok {
		r.Log(UnknownPort, "link down on a port with no neighbour", "port", port)
		return
	}
	delete(s.Adjacency, neigh)
	s.Graph.RemoveEdge(s.Id, neigh)
	r.Log(LinkRemoved, "link down", "port", port, "neigh", neigh)

	ComputeRoutes(s, r)
	AdvertiseSelf(s, r)
}

// HandleTime re-floods the self advertisement once the heartbeat interval has elapsed since the last one
func HandleTime(s *state.RouterState, r Router, now int64) {
	if now-s.LastHeartbeat < s.Heartbeat.Milliseconds() {
		return
	}
	s.LastHeartbeat = now
	r.Log(HeartbeatExpired, "heartbeat", "now", now)
	AdvertiseSelf(s, r)
}

// HandlePacket processes a packet received on port. Problems with the packet are logged and the packet is dropped.
func HandlePacket(s *state.RouterState, r Router, port state.Port, pkt *protocol.Packet) {
	switch pkt.Kind {
	case protocol.KindRouting:
		ls, err := r.Codec().Unmarshal(pkt.Content)
		if err != nil {
			perf.MalformedPayloads.Add(1)
			r.Log(MalformedPayload, "dropping malformed advertisement", "port", port, "origin", pkt.SrcAddr, "err", err)
			return
		}
		HandleAdvertisement(s, r, port, fromLinkState(state.NodeId(pkt.SrcAddr), ls))
	case protocol.KindTraceroute:
		HandleTraceroute(s, r, pkt)
	default:
		r.Log(UnknownPacketKind, "dropping packet of unknown kind", "port", port, "kind", pkt.Kind)
	}
}

// HandleAdvertisement offers adv, received on port, to the LSDB and installs and relays it if accepted
func HandleAdvertisement(s *state.RouterState, r Router, port state.Port, adv state.Advertisement) Verdict {
	if adv.Origin == s.Id {
		r.Log(AdvertisementReflected, "ignoring our own advertisement", "port", port, "seqno", adv.Seqno)
		return Stale
	}
	verdict := Accept(s, adv)
	switch verdict {
	case Stale:
		perf.AdvertisementsSuppressed.Add(1)
		r.Log(AdvertisementSuppressed, "stale advertisement", "port", port, "adv", adv)
		return verdict
	case Refreshed:
		perf.AdvertisementsRefreshed.Add(1)
		r.Log(AdvertisementRefreshed, "advertisement content unchanged", "port", port, "adv", adv)
		return verdict
	}

	perf.AdvertisementsAccepted.Add(1)
	r.Log(AdvertisementAccepted, "accepted advertisement", "port", port, "adv", adv)
	installAdvertisement(s, adv)
	ComputeRoutes(s, r)
	flood(s, r, adv, &port)
	if s.Readvertise {
		AdvertiseSelf(s, r)
	}
	return verdict
}

// HandleTraceroute delivers pkt locally or forwards it along the forwarding table
func HandleTraceroute(s *state.RouterState, r Router, pkt *protocol.Packet) {
	dst := state.NodeId(pkt.DstAddr)
	if dst == s.Id {
		delivered := pkt.Clone()
		delivered.Hops = append(delivered.Hops, string(s.Id))
		r.Log(TraceDelivered, "traceroute arrived", "id", pkt.Id, "src", pkt.SrcAddr, "hops", delivered.Hops)
		r.Deliver(delivered)
		return
	}
	entry, ok := s.Forward[dst]
	if !ok || !entry.Reachable() {
		perf.TracesDropped.Add(1)
		r.Log(TraceUnreachable, "no route for traceroute", "id", pkt.Id, "dst", dst)
		return
	}
	if pkt.TTL == 0 {
		perf.TracesDropped.Add(1)
		r.Log(TraceTTLExceeded, "traceroute hop limit exceeded", "id", pkt.Id, "dst", dst, "hops", pkt.Hops)
		return
	}
	fwd := pkt.Clone()
	fwd.TTL--
	fwd.Hops = append(fwd.Hops, string(s.Id))
	perf.TracesForwarded.Add(1)
	r.Log(TraceForwarded, "forwarding traceroute", "id", pkt.Id, "dst", dst, "nh", entry.Nh)
	r.Transmit(s.Adjacency[entry.Nh].Port, fwd)
}
