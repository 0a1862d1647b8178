// Package codec centralizes how store documents are encoded to bytes.
//
// Changing the codec of an existing store is a breaking change: documents
// written by one codec cannot be decoded by another. The file extension used
// for tenant files is derived from the codec so that mixed layouts stay
// distinguishable on disk.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
	// Extension is the file suffix, including the dot, for documents
	// written with this codec.
	Extension() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json", "":
		return GoJSON{}, true
	case "msgpack":
		return MsgPack{}, true
	default:
		return nil, false
	}
}
