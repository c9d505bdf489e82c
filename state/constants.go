package state

import "time"

const (
	// INF is the metric of an unreachable destination
	INF = ^uint64(0)
)

var (
	HeartbeatInterval     = time.Second * 10
	TickDelay             = time.Millisecond * 100
	TraceHopLimit         = uint8(64)
	MalformedLogTTL       = time.Second * 5
	SlowDispatchThreshold = time.Millisecond * 4
	TraceTimeout          = time.Second * 5

	DefaultCodec        = "proto"
	DefaultAcceptPolicy = PolicyContent
)
