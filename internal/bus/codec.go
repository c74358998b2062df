package bus

import "github.com/bytedance/sonic"

var codec = sonic.ConfigStd

// Marshal encodes a message or service payload for the wire.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes a wire payload into v.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

// Valid reports whether data is a well-formed payload.
func Valid(data []byte) bool {
	return codec.Valid(data)
}
