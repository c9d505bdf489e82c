package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGraph_SimpleGraph(t *testing.T) {
	nodes := []NodeId{"1", "2", "3", "4", "5"}
	input := `1, 2
3, 4
1,3,5`
	pairs, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.NoError(t, err)
	assert.ElementsMatch(t, pairs, []Pair[NodeId, NodeId]{
		{"1", "2"},
		{"3", "4"},
		{"1", "3"},
		{"3", "5"},
		{"1", "5"},
	})
}

func TestParseGraph_Groups(t *testing.T) {
	nodes := []NodeId{"1", "2", "3", "4", "5", "6", "7"}
	input := `a = 1,2
b=3,,,4
c=5,6
d=a,b
d,d
7,d`
	pairs, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.NoError(t, err)
	assert.ElementsMatch(t, pairs, []Pair[NodeId, NodeId]{
		// d,d
		{"1", "2"},
		{"1", "3"},
		{"1", "4"},
		{"2", "3"},
		{"2", "4"},
		{"3", "4"},
		// 7,d
		{"1", "7"},
		{"2", "7"},
		{"3", "7"},
		{"4", "7"},
	})
}

func TestParseGraph_Cycle(t *testing.T) {
	nodes := []NodeId{}
	input := `a = b
b = c
c = a`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "cycle detected in graph: [a b c]")
}

func TestParseGraph_DupGroupName(t *testing.T) {
	nodes := []NodeId{}
	input := `a = b
a = b
b = b`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "duplicate group name: a")
}

func TestParseGraph_SymbolError(t *testing.T) {
	nodes := []NodeId{"1"}
	input := `a = 1
b = 2`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "2 is not a valid node/group")
}

func TestParseGraph_EmptyGroup(t *testing.T) {
	nodes := []NodeId{"1"}
	input := `a =`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "node/group list must not be empty")
}

func TestParseGraph_GroupNameIsNodeName(t *testing.T) {
	nodes := []NodeId{"1"}
	input := `1 = 1`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "group name must not be a node name: 1")
}

func TestParseGraph_InvalidGroupDefinition(t *testing.T) {
	nodes := []NodeId{"1"}
	input := `a = 1 = b`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, ". group definition must contain one '='")
}

func TestParseGraph_Single(t *testing.T) {
	nodes := []NodeId{"1", "2", "3", "4", "5"}
	input := `1`
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "invalid pairing, [1]")
}

func TestParseGraph_None(t *testing.T) {
	nodes := []NodeId{"1", "2", "3", "4", "5"}
	input := ``
	_, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.ErrorContains(t, err, "node/group list must not be empty")
}

func TestParseGraph_GroupsDeep(t *testing.T) {
	nodes := []NodeId{"1", "2", "3", "4", "5", "6", "7"}
	input := `a = 1,2
b = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
c = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
d = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
e = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
f = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
g = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
h = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
i = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
j = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
k = a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a,a
k,k,3`
	pairs, err := ParseGraph(strings.Split(input, "\n"), nodes)
	assert.NoError(t, err)
	assert.ElementsMatch(t, pairs, []Pair[NodeId, NodeId]{
		{"1", "2"},
		{"1", "3"},
		{"2", "3"},
	})
}

func failGraph(t *testing.T, graph string) {
	_, err := ParseGraph(strings.Split(graph, "\n"), []NodeId{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"})
	assert.Error(t, err)
}

func TestParseGraph_InvalidGraph(t *testing.T) {
	failGraph(t, `this graph is a baddie`)
	failGraph(t, `=========,,,,`)
	failGraph(t, `#`)
	failGraph(t, `\n\n\n\n\n\n`)
	failGraph(t, `1`)
	failGraph(t, `1,2,3,4,5,6,a`)
	failGraph(t, `1,2,3,4,5,6,7,8,9,10,11,12,13,14,15`)
	failGraph(t, `,,,,,,,,,,,,,,,,`)
	failGraph(t, `a=a`)
	failGraph(t, `a=b`)
}

func TestParseGraph_MixedCase(t *testing.T) {
	nodes := []NodeId{"A", "B", "C"}
	pairs, err := ParseGraph([]string{"ring = A, B, C", "ring, ring"}, nodes)
	assert.NoError(t, err)
	assert.Equal(t, []Pair[NodeId, NodeId]{{"A", "B"}, {"A", "C"}, {"B", "C"}}, pairs)
}

func TestExpandNetworkConfig(t *testing.T) {
	cfg := &NetworkCfg{
		Nodes: []NodeCfg{{Id: "a"}, {Id: "b"}, {Id: "c"}},
		Graph: []string{"a, b, c"},
		Links: []LinkCfg{{A: "c", B: "a", Cost: 5}},
	}
	require.NoError(t, ExpandNetworkConfig(cfg))
	assert.Equal(t, HeartbeatInterval, cfg.Heartbeat)
	assert.Equal(t, PolicyContent, cfg.AcceptPolicy)
	assert.Equal(t, DefaultCodec, cfg.Codec)
	assert.Nil(t, cfg.Graph)
	assert.ElementsMatch(t, []LinkCfg{
		{A: "c", B: "a", Cost: 5},
		{A: "a", B: "b", Cost: 1},
		{A: "b", B: "c", Cost: 1},
	}, cfg.Links)
	assert.NoError(t, NetworkConfigValidator(cfg))
}

func TestLocalCfgFor(t *testing.T) {
	cfg := &NetworkCfg{
		Heartbeat:    time.Second,
		AcceptPolicy: PolicySequence,
		Readvertise:  true,
		Codec:        "cbor",
		Nodes:        []NodeCfg{{Id: "a"}},
	}
	local := cfg.LocalCfgFor("a")
	assert.Equal(t, LocalCfg{
		Id:           "a",
		Heartbeat:    time.Second,
		AcceptPolicy: PolicySequence,
		Readvertise:  true,
		Codec:        "cbor",
	}, local)
	assert.NoError(t, NodeConfigValidator(&local))
}

const sampleNetwork = `
heartbeat: 2s
accept_policy: content
nodes:
  - id: A
    prefixes:
      - 10.0.0.1/32
  - id: B
  - id: C
links:
  - a: A
    b: B
    cost: 1
  - a: B
    b: C
    cost: 1
    latency: 10ms
  - a: A
    b: C
    cost: 5
    loss: 0.1
events:
  - at: 3s
    a: B
    b: C
    action: down
`

func TestReadNetworkConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleNetwork), 0600))

	cfg, err := ReadNetworkConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Heartbeat)
	assert.Equal(t, []NodeId{"A", "B", "C"}, cfg.NodeIds())
	assert.Len(t, cfg.Links, 3)
	assert.Equal(t, 10*time.Millisecond, cfg.Links[1].Latency)
	assert.InDelta(t, 0.1, cfg.Links[2].Loss, 1e-9)
	assert.Equal(t, 1, cfg.FindLink("C", "B"))

	node, err := cfg.GetNode("A")
	require.NoError(t, err)
	require.Len(t, node.Prefixes, 1)
	assert.Equal(t, "10.0.0.1/32", node.Prefixes[0].String())

	require.Len(t, cfg.Events, 1)
	assert.Equal(t, EventCfg{At: 3 * time.Second, A: "B", B: "C", Action: ActionDown}, cfg.Events[0])

	_, err = cfg.GetNode("Z")
	assert.ErrorContains(t, err, "node Z not defined")
}

func TestReadNetworkConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - id: A\nlinks:\n  - a: A\n    b: Z\n    cost: 1\n"), 0600))
	_, err := ReadNetworkConfig(path)
	assert.ErrorContains(t, err, "node Z not defined")
}
