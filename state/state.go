package state

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/encodeous/lsr/protocol"
)

type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	RouterState *RouterState
	Modules     map[string]Module
}

// Substrate is the packet delivery layer a node is attached to. Implementations must not block.
type Substrate interface {
	// Transmit sends pkt out of the given port of node from
	Transmit(from NodeId, port Port, pkt *protocol.Packet)
	// Deliver hands a packet addressed to node at to the application
	Deliver(at NodeId, pkt *protocol.Packet)
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan func(s *State) error
	LocalCfg
	Context   context.Context
	Cancel    context.CancelCauseFunc
	Log       *slog.Logger
	Substrate Substrate
	// Epoch is the zero point of the millisecond clock passed to the heartbeat timer
	Epoch    time.Time
	Started  atomic.Bool
	Stopping atomic.Bool
}

// Now returns the number of milliseconds elapsed since Epoch
func (e *Env) Now() int64 {
	return time.Since(e.Epoch).Milliseconds()
}
