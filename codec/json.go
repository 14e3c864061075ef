package codec

import "encoding/json"

// JSON is the encoding/json codec. Side-channel maps decode back as
// map[string]any with float64 numbers.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
