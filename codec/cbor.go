package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions tune the CBOR codec. The zero value gives preferred (compact,
// unsorted) encoding and the library's default decode limits.
type CBOROptions struct {
	// Deterministic selects RFC 8949 core deterministic encoding, for data
	// that is hashed or compared byte-wise by other systems.
	Deterministic bool

	// Decode limits for entries read back from a shared store. 0 => library
	// default.
	MaxNestedLevels  int
	MaxArrayElements int
	MaxMapPairs      int
}

// CBOR serializes side-channel data with fxamacker/cbor. Construct with
// NewCBOR or MustCBOR; the zero value is not usable.
//
// Decoding rejects duplicate map keys. Times encode as RFC3339Nano.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	do := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  opts.MaxNestedLevels,
		MaxArrayElements: opts.MaxArrayElements,
		MaxMapPairs:      opts.MaxMapPairs,
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is NewCBOR for package-level variables; it panics on invalid
// options.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	cd, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return cd
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
