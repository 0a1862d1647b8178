package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Documents are byte-for-byte compatible with GoJSON; pick this one when the
// smallest dependency surface matters more than encode speed.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Extension returns ".json".
func (JSON) Extension() string { return ".json" }

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}
