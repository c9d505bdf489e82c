package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/netip"
	"runtime/pprof"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/encodeous/lsr/core"
	"github.com/encodeous/lsr/perf"
	"github.com/encodeous/lsr/protocol"
	"github.com/encodeous/lsr/state"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotStarted   = errors.New("network is not running")
	ErrUnknownLink  = errors.New("no such link")
	ErrTraceTimeout = errors.New("traceroute was not delivered")
)

var _ state.Substrate = (*Network)(nil)

// Network runs every node of a NetworkCfg in-process, joined by virtual links
type Network struct {
	Cfg   *state.NetworkCfg
	Level slog.Level
	Nodes map[state.NodeId]*state.State
	Links []*VirtualLink
	Addrs *AddrTable
	Epoch time.Time

	Context context.Context
	Cancel  context.CancelCauseFunc

	ports       map[state.NodeId]map[state.Port]*VirtualLink
	group       *errgroup.Group
	running     atomic.Bool
	watchCtx    context.Context
	watchCancel context.CancelFunc
	watchers    sync.WaitGroup

	traceId atomic.Uint64
	mu      sync.Mutex
	waiting map[uint64]chan *protocol.Packet
}

// New builds a network from cfg. Ports are assigned per node in link order, starting at 0.
func New(cfg *state.NetworkCfg, level slog.Level) (*Network, error) {
	if err := state.ExpandNetworkConfig(cfg); err != nil {
		return nil, err
	}
	if err := state.NetworkConfigValidator(cfg); err != nil {
		return nil, err
	}
	n := &Network{
		Cfg:     cfg,
		Level:   level,
		Nodes:   make(map[state.NodeId]*state.State),
		Addrs:   NewAddrTable(cfg.Nodes),
		ports:   make(map[state.NodeId]map[state.Port]*VirtualLink),
		waiting: make(map[uint64]chan *protocol.Packet),
	}
	for _, id := range cfg.NodeIds() {
		n.ports[id] = make(map[state.Port]*VirtualLink)
	}
	for _, lcfg := range cfg.Links {
		pa := state.Port(len(n.ports[lcfg.A]))
		pb := state.Port(len(n.ports[lcfg.B]))
		link := &VirtualLink{
			Cfg:   lcfg,
			Ports: state.Pair[state.Port, state.Port]{V1: pa, V2: pb},
		}
		n.ports[lcfg.A][pa] = link
		n.ports[lcfg.B][pb] = link
		n.Links = append(n.Links, link)
	}
	return n, nil
}

// Start launches every node, brings up the links that do not start down and schedules the configured events
func (n *Network) Start(ctx context.Context) error {
	if n.running.Swap(true) {
		return fmt.Errorf("network already started")
	}
	g, gctx := errgroup.WithContext(ctx)
	n.group = g
	n.Context, n.Cancel = context.WithCancelCause(gctx)
	n.watchCtx, n.watchCancel = context.WithCancel(context.Background())
	n.Epoch = time.Now()

	for _, id := range n.Cfg.NodeIds() {
		s, err := core.New(n.Context, n.Cfg.LocalCfgFor(id), n.Level, n, n.Epoch)
		if err != nil {
			n.Cancel(err)
			for _, started := range n.Nodes {
				core.Stop(started)
			}
			return fmt.Errorf("failed to create node %s: %w", id, err)
		}
		n.Nodes[id] = s
	}
	for id, s := range n.Nodes {
		g.Go(func() error {
			var err error
			pprof.Do(context.Background(), pprof.Labels("lsr node", string(id)), func(ctx context.Context) {
				err = core.MainLoop(s)
			})
			if err != nil {
				return fmt.Errorf("node %s: %w", id, err)
			}
			return nil
		})
	}
	for _, link := range n.Links {
		if !link.Cfg.Down {
			n.setLink(link, true)
		}
	}
	for _, ev := range n.Cfg.Events {
		g.Go(func() error {
			timer := time.NewTimer(ev.At)
			defer timer.Stop()
			select {
			case <-n.Context.Done():
				return nil
			case <-timer.C:
			}
			if ev.Action == state.ActionUp {
				return n.LinkUp(ev.A, ev.B)
			}
			return n.LinkDown(ev.A, ev.B)
		})
	}
	return nil
}

// Wait blocks until every node has stopped
func (n *Network) Wait() error {
	if n.group == nil {
		return ErrNotStarted
	}
	return n.group.Wait()
}

// Stop shuts down watchers, then every node, and waits for them to exit
func (n *Network) Stop() error {
	if n.group == nil {
		return ErrNotStarted
	}
	n.watchCancel()
	n.watchers.Wait()
	n.Cancel(context.Canceled)
	err := n.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (n *Network) findLink(a, b state.NodeId) (*VirtualLink, error) {
	idx := n.Cfg.FindLink(a, b)
	if idx == -1 {
		return nil, fmt.Errorf("%w between %s and %s", ErrUnknownLink, a, b)
	}
	return n.Links[idx], nil
}

func (n *Network) LinkUp(a, b state.NodeId) error {
	link, err := n.findLink(a, b)
	if err != nil {
		return err
	}
	n.setLink(link, true)
	return nil
}

func (n *Network) LinkDown(a, b state.NodeId) error {
	link, err := n.findLink(a, b)
	if err != nil {
		return err
	}
	n.setLink(link, false)
	return nil
}

func (n *Network) setLink(link *VirtualLink, up bool) {
	if link.up.Swap(up) == up {
		return
	}
	ends := []state.NodeId{link.Cfg.A, link.Cfg.B}
	for _, id := range ends {
		peer, _ := link.Peer(id)
		port := link.Port(id)
		cost := link.Cfg.Cost
		n.Nodes[id].Dispatch(func(s *state.State) error {
			r := core.Get[*core.LinkStateRouter](s)
			if up {
				core.HandleLinkUp(s.RouterState, r, port, peer, cost)
			} else {
				core.HandleLinkDown(s.RouterState, r, port)
			}
			return nil
		})
	}
}

// Transmit carries pkt across the link attached to port of node from
func (n *Network) Transmit(from state.NodeId, port state.Port, pkt *protocol.Packet) {
	link, ok := n.ports[from][port]
	if !ok || !link.Up() {
		return
	}
	if link.drop() {
		perf.PacketsLost.Add(1)
		return
	}
	to, toPort := link.Peer(from)
	dst := n.Nodes[to]
	time.AfterFunc(link.latency(), func() {
		// the link may have failed while the packet was in flight
		if n.Context.Err() != nil || !link.Up() {
			return
		}
		dst.Dispatch(func(s *state.State) error {
			core.HandlePacket(s.RouterState, core.Get[*core.LinkStateRouter](s), toPort, pkt)
			return nil
		})
	})
}

// Deliver completes a pending Trace
func (n *Network) Deliver(at state.NodeId, pkt *protocol.Packet) {
	if !pkt.IsTraceroute() {
		return
	}
	n.mu.Lock()
	ch, ok := n.waiting[pkt.Id]
	n.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- pkt:
	default:
	}
}

// Resolve accepts a node id or an address covered by one of the node prefixes
func (n *Network) Resolve(s string) (state.NodeId, error) {
	if _, ok := n.ports[state.NodeId(s)]; ok {
		return state.NodeId(s), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", fmt.Errorf("%s is neither a node nor an address", s)
	}
	id, ok := n.Addrs.Lookup(addr)
	if !ok {
		return "", fmt.Errorf("no node owns %s", addr)
	}
	return id, nil
}

// Trace sends a traceroute from one node to another and returns the hops it took
func (n *Network) Trace(ctx context.Context, from state.NodeId, to string) ([]string, error) {
	if !n.running.Load() {
		return nil, ErrNotStarted
	}
	src, ok := n.Nodes[from]
	if !ok {
		return nil, fmt.Errorf("node %s not defined", from)
	}
	dst, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}

	id := n.traceId.Add(1)
	ch := make(chan *protocol.Packet, 1)
	n.mu.Lock()
	n.waiting[id] = ch
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		delete(n.waiting, id)
		n.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, state.TraceTimeout)
	defer cancel()
	pkt := protocol.NewTraceroute(id, string(from), string(dst), state.TraceHopLimit)
	src.Dispatch(func(s *state.State) error {
		core.HandleTraceroute(s.RouterState, core.Get[*core.LinkStateRouter](s), pkt)
		return nil
	})
	select {
	case res := <-ch:
		return res.Hops, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w from %s to %s: %w", ErrTraceTimeout, from, dst, ctx.Err())
	}
}

// Snapshot copies the forwarding table of every node
func (n *Network) Snapshot() (map[state.NodeId]map[state.NodeId]state.FwdEntry, error) {
	if !n.running.Load() {
		return nil, ErrNotStarted
	}
	res := make(map[state.NodeId]map[state.NodeId]state.FwdEntry)
	for id, s := range n.Nodes {
		fwd, err := s.DispatchWait(func(s *state.State) (any, error) {
			return maps.Clone(s.RouterState.Forward), nil
		})
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		res[id] = fwd.(map[state.NodeId]state.FwdEntry)
	}
	return res, nil
}

// Inspect renders the lsdb and forwarding table of a node
func (n *Network) Inspect(id state.NodeId) (string, error) {
	s, ok := n.Nodes[id]
	if !ok {
		return "", fmt.Errorf("node %s not defined", id)
	}
	res, err := s.DispatchWait(func(s *state.State) (any, error) {
		rs := s.RouterState
		return fmt.Sprintf("node %s seqno %d\nlsdb:\n%s\nroutes:\n%s", rs.Id, rs.Seqno, rs.StringLsdb(), rs.StringRoutes()), nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// TruthGraph is the topology formed by the links that are currently up
func (n *Network) TruthGraph() *state.Graph {
	g := state.NewGraph()
	for _, id := range n.Cfg.NodeIds() {
		g.AddNode(id)
	}
	for _, link := range n.Links {
		if link.Up() {
			g.AddEdge(link.Cfg.A, link.Cfg.B, link.Cfg.Cost)
		}
	}
	return g
}

// Converged reports whether every node routes every destination at its optimal metric
func (n *Network) Converged() (bool, error) {
	snap, err := n.Snapshot()
	if err != nil {
		return false, err
	}
	truth := n.TruthGraph()
	for _, src := range n.Cfg.NodeIds() {
		tree := core.ComputeShortestPathTree(truth, src)
		for _, dst := range n.Cfg.NodeIds() {
			if dst == src {
				continue
			}
			want, reachable := tree.Metric(dst)
			got, ok := snap[src][dst]
			if !reachable {
				if ok && got.Reachable() {
					return false, nil
				}
				continue
			}
			if !ok || !got.Reachable() || got.Metric != want {
				return false, nil
			}
		}
	}
	return true, nil
}

// WaitConverged polls Converged until it holds or ctx is done
func (n *Network) WaitConverged(ctx context.Context) error {
	ticker := time.NewTicker(state.TickDelay)
	defer ticker.Stop()
	for {
		ok, err := n.Converged()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("network did not converge: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Watch streams route changes of every node until the network stops. The returned channel must be drained.
func (n *Network) Watch() (<-chan core.RouteChange, error) {
	if !n.running.Load() {
		return nil, ErrNotStarted
	}
	out := make(chan core.RouteChange, 64)
	var fwd sync.WaitGroup
	for _, id := range slices.Sorted(maps.Keys(n.Nodes)) {
		s := n.Nodes[id]
		rt := core.Get[*core.RouteTrace](s)
		ch := make(chan interface{}, 64)
		if _, err := s.DispatchWait(func(*state.State) (any, error) {
			rt.Register(ch)
			return nil, nil
		}); err != nil {
			continue
		}
		fwd.Add(1)
		n.watchers.Add(1)
		go func() {
			defer n.watchers.Done()
			defer fwd.Done()
			n.forward(s, rt, ch, out)
		}()
	}
	go func() {
		fwd.Wait()
		close(out)
	}()
	return out, nil
}

func (n *Network) forward(s *state.State, rt *core.RouteTrace, ch chan interface{}, out chan<- core.RouteChange) {
	for done := false; !done; {
		select {
		case msg := <-ch:
			select {
			case out <- msg.(core.RouteChange):
			case <-n.watchCtx.Done():
				done = true
			}
		case <-n.watchCtx.Done():
			done = true
		case <-s.Context.Done():
			done = true
		}
	}
	// unregister on the node loop so it happens before the broadcaster is closed
	unreg := make(chan struct{})
	go func() {
		defer close(unreg)
		_, _ = s.DispatchWait(func(*state.State) (any, error) {
			rt.Unregister(ch)
			return nil, nil
		})
	}()
	for {
		select {
		case <-ch:
		case <-unreg:
			return
		}
	}
}
