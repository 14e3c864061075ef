// Package codec serializes the side-channel data that rides next to a cached
// fragment body in a composite entry.
//
// The default is Msgpack. JSON, CBOR and Protobuf cover data shared with
// other systems; Limit caps payload sizes on either side.
package codec

import "errors"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ErrTooLarge is returned by Limit when a payload exceeds its bound.
var ErrTooLarge = errors.New("codec: payload too large")

// Bytes passes []byte data through untouched.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String stores string data as its UTF-8 bytes. No validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
