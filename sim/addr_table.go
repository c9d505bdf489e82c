package sim

import (
	"net/netip"

	"github.com/encodeous/lsr/state"
	"github.com/gaissmai/bart"
)

// AddrTable maps addresses to the node owning the longest matching prefix
type AddrTable struct {
	table bart.Table[state.NodeId]
}

func NewAddrTable(nodes []state.NodeCfg) *AddrTable {
	t := &AddrTable{}
	for _, node := range nodes {
		for _, prefix := range node.Prefixes {
			t.table.Insert(prefix.Masked(), node.Id)
		}
	}
	return t
}

func (t *AddrTable) Lookup(addr netip.Addr) (state.NodeId, bool) {
	return t.table.Lookup(addr.Unmap())
}
