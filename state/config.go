package state

import (
	"fmt"
	"maps"
	"net/netip"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// LocalCfg represents node-level configuration
type LocalCfg struct {
	Id             NodeId        `yaml:"id"`                              // unique id for this node
	Heartbeat      time.Duration `yaml:"heartbeat,omitempty"`             // interval between unconditional self advertisements
	AcceptPolicy   AcceptPolicy  `yaml:"accept_policy,omitempty"`         // content or sequence
	Readvertise    bool          `yaml:"readvertise_on_accept,omitempty"` // flood a fresh self advertisement after accepting a foreign one
	NoDatabaseSync bool          `yaml:"no_database_sync,omitempty"`      // do not send the lsdb to a neighbour when its link comes up
	Codec          string        `yaml:"codec,omitempty"`                 // control payload codec
	LogPath        string        `yaml:"log_path,omitempty"`              // if not empty, logs are also written to this file
}

type NodeCfg struct {
	Id       NodeId
	Prefixes []netip.Prefix `yaml:",omitempty"`
}

type LinkCfg struct {
	A       NodeId
	B       NodeId
	Cost    Cost
	Latency time.Duration `yaml:",omitempty"`
	Loss    float64       `yaml:",omitempty"` // probability in [0, 1) that a packet is dropped
	Down    bool          `yaml:",omitempty"` // the link starts down
}

type LinkAction string

const (
	ActionUp   LinkAction = "up"
	ActionDown LinkAction = "down"
)

// EventCfg changes the state of a link at an offset from the start of the simulation
type EventCfg struct {
	At     time.Duration
	A      NodeId
	B      NodeId
	Action LinkAction
}

// NetworkCfg describes a simulated network
type NetworkCfg struct {
	Heartbeat      time.Duration `yaml:",omitempty"`
	AcceptPolicy   AcceptPolicy  `yaml:"accept_policy,omitempty"`
	Readvertise    bool          `yaml:"readvertise_on_accept,omitempty"`
	NoDatabaseSync bool          `yaml:"no_database_sync,omitempty"`
	Codec          string        `yaml:",omitempty"`
	DefaultCost    Cost          `yaml:"default_cost,omitempty"` // cost of links declared through Graph
	Nodes          []NodeCfg
	Graph          []string   `yaml:",omitempty"`
	Links          []LinkCfg  `yaml:",omitempty"`
	Events         []EventCfg `yaml:",omitempty"`
}

func (c *NetworkCfg) NodeIds() []NodeId {
	ids := make([]NodeId, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		ids = append(ids, n.Id)
	}
	return ids
}

func (c *NetworkCfg) GetNode(id NodeId) (*NodeCfg, error) {
	idx := slices.IndexFunc(c.Nodes, func(n NodeCfg) bool {
		return n.Id == id
	})
	if idx == -1 {
		return nil, fmt.Errorf("node %s not defined", id)
	}
	return &c.Nodes[idx], nil
}

// FindLink returns the index of the link between a and b, in either direction
func (c *NetworkCfg) FindLink(a, b NodeId) int {
	key := MakeSortedPair(a, b)
	return slices.IndexFunc(c.Links, func(l LinkCfg) bool {
		return MakeSortedPair(l.A, l.B) == key
	})
}

// LocalCfgFor derives the configuration of a single node from the network defaults
func (c *NetworkCfg) LocalCfgFor(id NodeId) LocalCfg {
	return LocalCfg{
		Id:             id,
		Heartbeat:      c.Heartbeat,
		AcceptPolicy:   c.AcceptPolicy,
		Readvertise:    c.Readvertise,
		NoDatabaseSync: c.NoDatabaseSync,
		Codec:          c.Codec,
	}
}

func ExpandLocalConfig(cfg *LocalCfg) {
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = HeartbeatInterval
	}
	if cfg.AcceptPolicy == "" {
		cfg.AcceptPolicy = DefaultAcceptPolicy
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultCodec
	}
}

// ExpandNetworkConfig fills in defaults and turns Graph lines into links. Explicit links take precedence over graph links.
func ExpandNetworkConfig(cfg *NetworkCfg) error {
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = HeartbeatInterval
	}
	if cfg.AcceptPolicy == "" {
		cfg.AcceptPolicy = DefaultAcceptPolicy
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultCodec
	}
	if cfg.DefaultCost == 0 {
		cfg.DefaultCost = 1
	}
	if len(cfg.Graph) == 0 {
		return nil
	}
	pairs, err := ParseGraph(cfg.Graph, cfg.NodeIds())
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if cfg.FindLink(p.V1, p.V2) != -1 {
			continue
		}
		cfg.Links = append(cfg.Links, LinkCfg{A: p.V1, B: p.V2, Cost: cfg.DefaultCost})
	}
	cfg.Graph = nil
	return nil
}

// ReadNetworkConfig loads, expands and validates a network configuration file
func ReadNetworkConfig(path string) (*NetworkCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg NetworkCfg
	if err = yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err = ExpandNetworkConfig(&cfg); err != nil {
		return nil, err
	}
	if err = NetworkConfigValidator(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseSymbolList(s string, valid map[string]bool) ([]string, error) {
	line := make([]string, 0)
	for _, sym := range strings.Split(strings.TrimSpace(s), ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if !valid[sym] {
			return nil, fmt.Errorf(`%s is not a valid node/group`, sym)
		}
		line = append(line, sym)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	slices.Sort(line)
	return line, nil
}

/*
ParseGraph expands a compact topology description into a list of links.

	core = a, b, c       // defines a group
	edge = d, e
	core, edge           // every member of core is linked to every member of edge
	core, core           // full mesh within core
	a, f                 // a single link

Groups may contain other groups, but must not form a cycle.
*/
func ParseGraph(graph []string, nodes []NodeId) ([]Pair[NodeId, NodeId], error) {
	isNode := make(map[string]bool)
	for _, n := range nodes {
		isNode[string(n)] = true
	}
	symbols := maps.Clone(isNode)

	type groupDef struct {
		name    string
		members string
	}
	defs := make([]groupDef, 0)
	lines := make([]string, 0)

	for _, line := range graph {
		line = strings.TrimSpace(line)
		name, members, isGroup := strings.Cut(line, "=")
		if !isGroup {
			lines = append(lines, line)
			continue
		}
		if strings.Contains(members, "=") {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		name = strings.TrimSpace(name)
		if isNode[name] {
			return nil, fmt.Errorf("group name must not be a node name: %s", name)
		}
		if symbols[name] {
			return nil, fmt.Errorf("duplicate group name: %s", name)
		}
		symbols[name] = true
		defs = append(defs, groupDef{name, members})
	}

	// group -> groups it still depends on, and the nodes it expands to so far
	deps := make(map[string][]string)
	expansion := make(map[string][]NodeId)
	for _, def := range defs {
		members, err := parseSymbolList(def.members, symbols)
		if err != nil {
			return nil, err
		}
		deps[def.name] = make([]string, 0)
		for _, m := range members {
			if isNode[m] {
				expansion[def.name] = append(expansion[def.name], NodeId(m))
			} else {
				deps[def.name] = append(deps[def.name], m)
			}
		}
		deps[def.name] = slices.Compact(deps[def.name])
	}

	// resolve groups in dependency order
	for len(deps) > 0 {
		free := ""
		for _, name := range slices.Sorted(maps.Keys(deps)) {
			if len(deps[name]) == 0 {
				free = name
				break
			}
		}
		if free == "" {
			return nil, fmt.Errorf("cycle detected in graph: %v", slices.Sorted(maps.Keys(deps)))
		}
		delete(deps, free)
		for name, d := range deps {
			if !slices.Contains(d, free) {
				continue
			}
			expansion[name] = append(expansion[name], expansion[free]...)
			deps[name] = slices.DeleteFunc(d, func(s string) bool { return s == free })
		}
	}

	expand := func(sym string) []NodeId {
		if isNode[sym] {
			return []NodeId{NodeId(sym)}
		}
		return expansion[sym]
	}

	pairings := make([]Pair[NodeId, NodeId], 0)
	for _, line := range lines {
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		if len(names) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				for _, x := range expand(names[i]) {
					for _, y := range expand(names[j]) {
						if x != y {
							pairings = append(pairings, MakeSortedPair(x, y))
						}
					}
				}
			}
		}
	}
	SortPairs(pairings)
	return slices.Compact(pairings), nil
}
