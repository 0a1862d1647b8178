package nanovdb

import (
	"encoding/base64"
	"encoding/json"

	"github.com/hupe1980/nanovdb/codec"
	"github.com/hupe1980/nanovdb/internal/conv"
	"github.com/hupe1980/nanovdb/model"
)

// document is the persisted form used with byte-oriented backends.
//
// Pointer fields distinguish an absent field from a zero value.
type document struct {
	EmbeddingDim   *int             `json:"embedding_dim" msgpack:"embedding_dim"`
	Matrix         *string          `json:"matrix" msgpack:"matrix"`
	Data           *[]documentEntry `json:"data" msgpack:"data"`
	AdditionalData json.RawMessage  `json:"additional_data,omitempty" msgpack:"additional_data,omitempty"`
}

type documentEntry struct {
	ID *string `json:"id" msgpack:"id"`
}

// encodeDocument serializes snap. Vectors are written as one row-major
// matrix of little-endian float32 values, base64-encoded.
func encodeDocument(c codec.Codec, snap *model.Snapshot) ([]byte, error) {
	buf := make([]byte, 0, snap.Len()*snap.Dimension*conv.Float32Size)
	entries := make([]documentEntry, len(snap.Records))
	for i := range snap.Records {
		buf = conv.AppendFloat32s(buf, snap.Records[i].Vector)
		entries[i].ID = &snap.Records[i].ID
	}

	dim := snap.Dimension
	matrix := base64.StdEncoding.EncodeToString(buf)
	return c.Marshal(&document{
		EmbeddingDim:   &dim,
		Matrix:         &matrix,
		Data:           &entries,
		AdditionalData: snap.AdditionalData,
	})
}

// decodeDocument parses and validates a document written for a store of
// dimension dim.
func decodeDocument(c codec.Codec, location string, dim int, data []byte) (*model.Snapshot, error) {
	var doc document
	if err := c.Unmarshal(data, &doc); err != nil {
		return nil, corruption(location, err, "decode %s document: %v", c.Name(), err)
	}

	switch {
	case doc.EmbeddingDim == nil:
		return nil, corruption(location, nil, "missing field %q", "embedding_dim")
	case doc.Matrix == nil:
		return nil, corruption(location, nil, "missing field %q", "matrix")
	case doc.Data == nil:
		return nil, corruption(location, nil, "missing field %q", "data")
	}

	entries := *doc.Data
	snap := &model.Snapshot{Dimension: dim, AdditionalData: doc.AdditionalData}

	if *doc.EmbeddingDim != dim {
		// An empty document may carry a zero dimension.
		if *doc.EmbeddingDim == 0 && len(entries) == 0 && *doc.Matrix == "" {
			return snap, nil
		}
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: *doc.EmbeddingDim}
	}

	raw, err := base64.StdEncoding.DecodeString(*doc.Matrix)
	if err != nil {
		return nil, corruption(location, err, "invalid matrix encoding: %v", err)
	}

	rowBytes := dim * conv.Float32Size
	if len(raw)%rowBytes != 0 {
		return nil, corruption(location, nil, "matrix has %d bytes, not a multiple of %d", len(raw), rowBytes)
	}
	if rows := len(raw) / rowBytes; rows != len(entries) {
		return nil, corruption(location, nil, "matrix has %d rows but data has %d entries", rows, len(entries))
	}

	values, err := conv.BytesToFloat32s(raw)
	if err != nil {
		return nil, corruption(location, err, "invalid matrix: %v", err)
	}

	snap.Records = make([]model.Record, len(entries))
	for i, e := range entries {
		if e.ID == nil || *e.ID == "" {
			return nil, corruption(location, nil, "data entry %d has no id", i)
		}
		snap.Records[i] = model.Record{
			ID:     *e.ID,
			Vector: values[i*dim : (i+1)*dim : (i+1)*dim],
		}
	}
	return snap, nil
}
