package codec

import "github.com/fxamacker/cbor/v2"

type CBOR[V any] struct{}

func (CBOR[V]) Encode(v V) ([]byte, error) { return cbor.Marshal(v) }
func (CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := cbor.Unmarshal(b, &v)
	return v, err
}
