package protocol

import "slices"

type Kind uint8

const (
	KindRouting Kind = iota
	KindTraceroute
)

func (k Kind) String() string {
	switch k {
	case KindRouting:
		return "ROUTING"
	case KindTraceroute:
		return "TRACEROUTE"
	}
	return "UNKNOWN"
}

// Packet is the envelope exchanged between nodes. For routing packets SrcAddr is the origin of the advertisement and Content is its encoded LinkState.
type Packet struct {
	Kind    Kind
	SrcAddr string
	DstAddr string
	Content []byte
	// Id correlates a traceroute with its delivery
	Id uint64
	// TTL is the number of hops a traceroute may still take
	TTL uint8
	// Hops lists the nodes a traceroute has traversed
	Hops []string
}

func NewRouting(src, dst string, content []byte) *Packet {
	return &Packet{
		Kind:    KindRouting,
		SrcAddr: src,
		DstAddr: dst,
		Content: content,
	}
}

func NewTraceroute(id uint64, src, dst string, ttl uint8) *Packet {
	return &Packet{
		Kind:    KindTraceroute,
		SrcAddr: src,
		DstAddr: dst,
		Id:      id,
		TTL:     ttl,
	}
}

func (p *Packet) IsRouting() bool {
	return p.Kind == KindRouting
}

func (p *Packet) IsTraceroute() bool {
	return p.Kind == KindTraceroute
}

// Clone returns a deep copy, so a forwarded packet never aliases the received one
func (p *Packet) Clone() *Packet {
	c := *p
	c.Content = slices.Clone(p.Content)
	c.Hops = slices.Clone(p.Hops)
	return &c
}
