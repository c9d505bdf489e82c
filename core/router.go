package core

import (
	"fmt"

	"github.com/encodeous/lsr/protocol"
	"github.com/encodeous/lsr/state"
	"github.com/jellydator/ttlcache/v3"
)

// LinkStateRouter binds the routing algorithm to a live node
type LinkStateRouter struct {
	*state.State
	codec protocol.Codec
	// warned suppresses repeats of the same warning
	warned *ttlcache.Cache[string, struct{}]
}

func (r *LinkStateRouter) Init(s *state.State) error {
	r.State = s
	codec, err := protocol.Lookup(s.LocalCfg.Codec)
	if err != nil {
		return err
	}
	r.codec = codec
	r.warned = ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](state.MalformedLogTTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	rs := state.NewRouterState(s.LocalCfg.Id)
	rs.Heartbeat = s.LocalCfg.Heartbeat
	rs.Policy = s.LocalCfg.AcceptPolicy
	rs.Readvertise = s.LocalCfg.Readvertise
	rs.DatabaseSync = !s.LocalCfg.NoDatabaseSync
	s.RouterState = rs

	s.Env.RepeatTask(routerTick, state.TickDelay)
	return nil
}

func (r *LinkStateRouter) Cleanup(s *state.State) error {
	r.warned.DeleteAll()
	return nil
}

func routerTick(s *state.State) error {
	r := Get[*LinkStateRouter](s)
	r.warned.DeleteExpired()
	HandleTime(s.RouterState, r, s.Now())
	return nil
}

func (r *LinkStateRouter) Codec() protocol.Codec {
	return r.codec
}

func (r *LinkStateRouter) Transmit(port state.Port, pkt *protocol.Packet) {
	r.Env.Substrate.Transmit(r.LocalCfg.Id, port, pkt)
}

func (r *LinkStateRouter) Deliver(pkt *protocol.Packet) {
	r.Env.Substrate.Deliver(r.LocalCfg.Id, pkt)
}

func (r *LinkStateRouter) TableUpdate(dst state.NodeId, entry state.FwdEntry) {
	Get[*RouteTrace](r.State).TrySubmit(RouteChange{
		Node:  r.LocalCfg.Id,
		Dst:   dst,
		Entry: entry,
	})
}

func (r *LinkStateRouter) Log(event RouterEvent, desc string, args ...any) {
	msg := fmt.Sprintf("%s %s", event, desc)
	if !event.IsWarning() {
		r.Env.Log.Debug(msg, args...)
		return
	}
	key := event.String()
	if len(args) >= 2 {
		key = fmt.Sprintf("%s/%v=%v", event, args[0], args[1])
	}
	if r.warned.Get(key) != nil {
		return
	}
	r.warned.Set(key, struct{}{}, ttlcache.DefaultTTL)
	r.Env.Log.Warn(msg, args...)
}
