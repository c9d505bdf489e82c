package protocol

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	ErrMalformed    = errors.New("malformed link state payload")
	ErrUnknownCodec = errors.New("unknown codec")
)

// LinkState is the payload of a routing packet: the advertiser's seqno and complete adjacency
type LinkState struct {
	Seqno      uint64            `cbor:"1,keyasint"`
	Neighbours map[string]uint32 `cbor:"2,keyasint"`
}

// Codec encodes LinkState payloads. Encodings must be deterministic.
type Codec interface {
	Name() string
	Marshal(ls LinkState) ([]byte, error)
	// Unmarshal returns an error wrapping ErrMalformed when data is not a valid payload
	Unmarshal(data []byte) (LinkState, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Codec)
)

func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

func Lookup(name string) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// Names returns the registered codec names in order
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func init() {
	Register(Proto())
	c, err := CBOR()
	if err != nil {
		panic(err)
	}
	Register(c)
}
