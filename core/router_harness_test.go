package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/lsr/protocol"
	"github.com/encodeous/lsr/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records everything the algorithm asks of its router
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) Codec() protocol.Codec {
	return protocol.Proto()
}

func (h *RouterHarness) Transmit(port state.Port, pkt *protocol.Packet) {
	switch pkt.Kind {
	case protocol.KindRouting:
		ls, err := h.Codec().Unmarshal(pkt.Content)
		if err != nil {
			panic(err)
		}
		h.actions = append(h.actions, MakeEvent("SEND", port, fromLinkState(state.NodeId(pkt.SrcAddr), ls)))
	case protocol.KindTraceroute:
		h.actions = append(h.actions, MakeEvent("TRACE", port, pkt.DstAddr, pkt.TTL, pkt.Hops))
	}
}

func (h *RouterHarness) Deliver(pkt *protocol.Packet) {
	h.actions = append(h.actions, MakeEvent("DELIVER", pkt.SrcAddr, pkt.Hops))
}

func (h *RouterHarness) TableUpdate(dst state.NodeId, entry state.FwdEntry) {
	h.actions = append(h.actions, MakeEvent("TABLE", dst, entry))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears everything recorded except log events
func (h *RouterHarness) GetActions() HarnessEvents {
	return h.take(func(e HarnessEvent) bool { return e.Message != "LOG" })
}

// GetLogs returns and clears the log events
func (h *RouterHarness) GetLogs() HarnessEvents {
	return h.take(func(e HarnessEvent) bool { return e.Message == "LOG" })
}

func (h *RouterHarness) Reset() {
	h.actions = make([]HarnessEvent, 0)
}

func (h *RouterHarness) take(match func(HarnessEvent) bool) HarnessEvents {
	x := make([]HarnessEvent, 0)
	rest := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if match(action) {
			x = append(x, action)
		} else {
			rest = append(rest, action)
		}
	}
	h.actions = rest
	return x
}

// Filter keeps the events with the given message
func (e HarnessEvents) Filter(msg string) HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, event := range e {
		if event.Message == msg {
			x = append(x, event)
		}
	}
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message != msg || len(event.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(event.Args[i], arg) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func MakeAdv(origin state.NodeId, seqno uint64, neighbours map[state.NodeId]state.Cost) state.Advertisement {
	if neighbours == nil {
		neighbours = make(map[state.NodeId]state.Cost)
	}
	return state.Advertisement{
		Origin:     origin,
		Seqno:      seqno,
		Neighbours: neighbours,
	}
}

func MakeRoutingPacket(adv state.Advertisement) *protocol.Packet {
	content, err := protocol.Proto().Marshal(toLinkState(adv))
	if err != nil {
		panic(err)
	}
	return protocol.NewRouting(string(adv.Origin), "", content)
}

func (h *RouterHarness) Receive(rs *state.RouterState, port state.Port, adv state.Advertisement) {
	HandlePacket(rs, h, port, MakeRoutingPacket(adv))
}

// meshLink is a bidirectional link between two nodes of a Mesh
type meshLink struct {
	a, b   state.NodeId
	pa, pb state.Port
	cost   state.Cost
	up     bool
}

func (l *meshLink) peer(from state.NodeId) (state.NodeId, state.Port) {
	if from == l.a {
		return l.b, l.pb
	}
	return l.a, l.pa
}

type inflight struct {
	to   state.NodeId
	port state.Port
	pkt  *protocol.Packet
}

// Mesh connects several routers and delivers their packets synchronously in FIFO order
type Mesh struct {
	t         *testing.T
	Nodes     map[state.NodeId]*state.RouterState
	routers   map[state.NodeId]*meshRouter
	links     map[state.Pair[state.NodeId, state.NodeId]]*meshLink
	ports     map[state.NodeId]map[state.Port]*meshLink
	queue     []inflight
	now       int64
	Sent      int
	Updates   int
	Warnings  HarnessEvents
	Delivered []*protocol.Packet
}

type meshRouter struct {
	m  *Mesh
	id state.NodeId
}

func (r *meshRouter) Codec() protocol.Codec {
	return protocol.Proto()
}

func (r *meshRouter) Transmit(port state.Port, pkt *protocol.Packet) {
	link, ok := r.m.ports[r.id][port]
	if !ok || !link.up {
		return
	}
	to, toPort := link.peer(r.id)
	r.m.Sent++
	r.m.queue = append(r.m.queue, inflight{to: to, port: toPort, pkt: pkt})
}

func (r *meshRouter) Deliver(pkt *protocol.Packet) {
	r.m.Delivered = append(r.m.Delivered, pkt)
}

func (r *meshRouter) TableUpdate(dst state.NodeId, entry state.FwdEntry) {
	r.m.Updates++
}

func (r *meshRouter) Log(event RouterEvent, desc string, args ...any) {
	if event.IsWarning() {
		r.m.Warnings = append(r.m.Warnings, MakeEvent("LOG", append([]any{event, desc}, args...)...))
	}
}

func NewMesh(t *testing.T, ids ...state.NodeId) *Mesh {
	m := &Mesh{
		t:       t,
		Nodes:   make(map[state.NodeId]*state.RouterState),
		routers: make(map[state.NodeId]*meshRouter),
		links:   make(map[state.Pair[state.NodeId, state.NodeId]]*meshLink),
		ports:   make(map[state.NodeId]map[state.Port]*meshLink),
	}
	for _, id := range ids {
		m.Nodes[id] = state.NewRouterState(id)
		m.routers[id] = &meshRouter{m: m, id: id}
		m.ports[id] = make(map[state.Port]*meshLink)
	}
	return m
}

func (m *Mesh) Configure(fn func(rs *state.RouterState)) {
	for _, rs := range m.Nodes {
		fn(rs)
	}
}

func (m *Mesh) nextPort(id state.NodeId) state.Port {
	return state.Port(len(m.ports[id]))
}

// Connect brings up a link between a and b, creating it on first use
func (m *Mesh) Connect(a, b state.NodeId, cost state.Cost) {
	key := state.MakeSortedPair(a, b)
	link, ok := m.links[key]
	if !ok {
		link = &meshLink{a: a, b: b, pa: m.nextPort(a), pb: m.nextPort(b)}
		m.links[key] = link
		m.ports[a][link.pa] = link
		m.ports[b][link.pb] = link
	}
	link.cost = cost
	link.up = true
	HandleLinkUp(m.Nodes[link.a], m.routers[link.a], link.pa, link.b, cost)
	HandleLinkUp(m.Nodes[link.b], m.routers[link.b], link.pb, link.a, cost)
}

func (m *Mesh) Disconnect(a, b state.NodeId) {
	link, ok := m.links[state.MakeSortedPair(a, b)]
	if !ok || !link.up {
		m.t.Fatalf("no link between %s and %s", a, b)
	}
	link.up = false
	HandleLinkDown(m.Nodes[link.a], m.routers[link.a], link.pa)
	HandleLinkDown(m.Nodes[link.b], m.routers[link.b], link.pb)
}

// Run delivers queued packets until the network is quiet
func (m *Mesh) Run() {
	m.t.Helper()
	for steps := 0; len(m.queue) > 0; steps++ {
		if steps > 1_000_000 {
			m.t.Fatal("mesh did not quiesce")
		}
		next := m.queue[0]
		m.queue = m.queue[1:]
		HandlePacket(m.Nodes[next.to], m.routers[next.to], next.port, next.pkt)
	}
}

// Heartbeat advances the clock past every heartbeat interval and ticks each node once
func (m *Mesh) Heartbeat() {
	var interval int64
	for _, rs := range m.Nodes {
		interval = max(interval, rs.Heartbeat.Milliseconds())
	}
	m.now += interval
	for _, id := range slices.Sorted(maps.Keys(m.Nodes)) {
		HandleTime(m.Nodes[id], m.routers[id], m.now)
	}
}

// Trace sends a traceroute from src to dst and returns the recorded hops, or nil if it was not delivered
func (m *Mesh) Trace(src, dst state.NodeId) []string {
	m.Delivered = nil
	pkt := protocol.NewTraceroute(1, string(src), string(dst), state.TraceHopLimit)
	HandleTraceroute(m.Nodes[src], m.routers[src], pkt)
	m.Run()
	if len(m.Delivered) == 0 {
		return nil
	}
	return m.Delivered[0].Hops
}

// TruthGraph is the topology formed by the links that are currently up
func (m *Mesh) TruthGraph() *state.Graph {
	g := state.NewGraph()
	for id := range m.Nodes {
		g.AddNode(id)
	}
	for _, l := range m.links {
		if l.up {
			g.AddEdge(l.a, l.b, l.cost)
		}
	}
	return g
}

// AssertOptimal checks every forwarding table against shortest paths computed with full knowledge of the topology
func (m *Mesh) AssertOptimal() {
	m.t.Helper()
	truth := m.TruthGraph()
	for _, src := range slices.Sorted(maps.Keys(m.Nodes)) {
		rs := m.Nodes[src]
		tree := ComputeShortestPathTree(truth, src)
		for _, dst := range slices.Sorted(maps.Keys(m.Nodes)) {
			if dst == src {
				continue
			}
			entry := rs.Forward[dst]
			want, reachable := tree.Metric(dst)
			if !reachable {
				if entry.Reachable() {
					m.t.Fatalf("%s: %s should be unreachable, got %s", src, dst, entry)
				}
				continue
			}
			if !entry.Reachable() || entry.Metric != want {
				m.t.Fatalf("%s: %s should have metric %d, got %s\n%s", src, dst, want, entry, rs.StringRoutes())
			}
			link, ok := rs.Adjacency[entry.Nh]
			if !ok {
				m.t.Fatalf("%s: next hop %s for %s is not a neighbour", src, entry.Nh, dst)
			}
			rest, _ := ComputeShortestPathTree(truth, entry.Nh).Metric(dst)
			if uint64(link.Cost)+rest != want {
				m.t.Fatalf("%s: next hop %s for %s is not on a shortest path", src, entry.Nh, dst)
			}
		}
	}
}
