package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a codec producing canonical CBOR (RFC 8949 core deterministic encoding)
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Marshal(ls LinkState) ([]byte, error) {
	return c.enc.Marshal(ls)
}

func (c cborCodec) Unmarshal(data []byte) (LinkState, error) {
	var ls LinkState
	if err := c.dec.Unmarshal(data, &ls); err != nil {
		return LinkState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ls.Seqno == 0 {
		return LinkState{}, malformed("missing seqno")
	}
	if ls.Neighbours == nil {
		ls.Neighbours = make(map[string]uint32)
	}
	if _, ok := ls.Neighbours[""]; ok {
		return LinkState{}, malformed("neighbour entry without a name")
	}
	return ls, nil
}
