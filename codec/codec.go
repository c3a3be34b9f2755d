// Package codec provides pluggable (de)serialization for values persisted
// through a kv.Store, such as the session-history stack.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
