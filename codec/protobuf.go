package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes side-channel data held in a generated message type.
// Encoding is deterministic; unknown fields written by newer schemas are
// dropped on decode.
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

var (
	protoMarshal   = proto.MarshalOptions{Deterministic: true}
	protoUnmarshal = proto.UnmarshalOptions{DiscardUnknown: true}
)

// NewProtobuf builds a codec around a constructor for the concrete message,
// e.g. func() *pb.PageMeta { return &pb.PageMeta{} }.
func NewProtobuf[T proto.Message](newMsg func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: newMsg}
}

func (c Protobuf[T]) Encode(m T) ([]byte, error) { return protoMarshal.Marshal(m) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	if err := protoUnmarshal.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
