package core

import (
	"github.com/dustin/go-broadcast"
	"github.com/encodeous/lsr/state"
)

// RouteChange is published whenever the forwarding entry of Node for Dst changes
type RouteChange struct {
	Node  state.NodeId
	Dst   state.NodeId
	Entry state.FwdEntry
}

type RouteTrace struct {
	broadcast.Broadcaster
}

func (t *RouteTrace) Init(s *state.State) error {
	t.Broadcaster = broadcast.NewBroadcaster(1024)
	return nil
}

func (t *RouteTrace) Cleanup(s *state.State) error {
	return t.Broadcaster.Close()
}
