package sim

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/encodeous/lsr/state"
)

// VirtualLink connects two nodes of the simulated network
type VirtualLink struct {
	Cfg state.LinkCfg
	// Ports are the local ports of the link at A and at B
	Ports state.Pair[state.Port, state.Port]
	up    atomic.Bool
}

func (v *VirtualLink) Up() bool {
	return v.up.Load()
}

// Peer returns the node on the other end of the link and its port
func (v *VirtualLink) Peer(from state.NodeId) (state.NodeId, state.Port) {
	if from == v.Cfg.A {
		return v.Cfg.B, v.Ports.V2
	}
	return v.Cfg.A, v.Ports.V1
}

// Port returns the local port of node on this link
func (v *VirtualLink) Port(node state.NodeId) state.Port {
	if node == v.Cfg.A {
		return v.Ports.V1
	}
	return v.Ports.V2
}

func (v *VirtualLink) drop() bool {
	return v.Cfg.Loss > 0 && rand.Float64() < v.Cfg.Loss
}

func (v *VirtualLink) latency() time.Duration {
	return v.Cfg.Latency
}
