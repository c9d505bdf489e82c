package protocol

import (
	"maps"
	"math"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// wire layout, compatible with
//
//	message LinkState {
//	  uint64 seqno = 1;
//	  map<string, uint32> neighbours = 2;
//	}
const (
	fieldSeqno      protowire.Number = 1
	fieldNeighbours protowire.Number = 2
	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2
)

type protoCodec struct{}

// Proto returns the default codec, a protobuf encoding with map entries sorted by key
func Proto() Codec {
	return protoCodec{}
}

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Marshal(ls LinkState) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldSeqno, protowire.VarintType)
	b = protowire.AppendVarint(b, ls.Seqno)
	for _, k := range slices.Sorted(maps.Keys(ls.Neighbours)) {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, fieldEntryValue, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(ls.Neighbours[k]))
		b = protowire.AppendTag(b, fieldNeighbours, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

func (protoCodec) Unmarshal(data []byte) (LinkState, error) {
	ls := LinkState{Neighbours: make(map[string]uint32)}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return LinkState{}, malformed("bad tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldSeqno && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return LinkState{}, malformed("bad seqno: %v", protowire.ParseError(n))
			}
			ls.Seqno = v
			data = data[n:]
		case num == fieldNeighbours && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return LinkState{}, malformed("bad neighbour entry: %v", protowire.ParseError(n))
			}
			k, v, err := unmarshalEntry(entry)
			if err != nil {
				return LinkState{}, err
			}
			ls.Neighbours[k] = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return LinkState{}, malformed("bad field %d: %v", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if ls.Seqno == 0 {
		return LinkState{}, malformed("missing seqno")
	}
	return ls, nil
}

func unmarshalEntry(data []byte) (string, uint32, error) {
	var key string
	var val uint64
	hasKey := false
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", 0, malformed("bad entry tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldEntryKey && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", 0, malformed("bad entry key: %v", protowire.ParseError(n))
			}
			key = s
			hasKey = true
			data = data[n:]
		case num == fieldEntryValue && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return "", 0, malformed("bad entry value: %v", protowire.ParseError(n))
			}
			val = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", 0, malformed("bad entry field %d: %v", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if !hasKey || key == "" {
		return "", 0, malformed("neighbour entry without a name")
	}
	if val > math.MaxUint32 {
		return "", 0, malformed("cost %d of %s overflows", val, key)
	}
	return key, uint32(val), nil
}
