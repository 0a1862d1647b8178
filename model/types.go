package model

import "slices"

// Record is a single stored vector.
//
// An empty ID is replaced with a content hash of Vector when the record is
// upserted.
type Record struct {
	ID     string    `json:"id" msgpack:"id"`
	Vector []float32 `json:"vector" msgpack:"vector"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Vector: slices.Clone(r.Vector)}
}

// Snapshot is the complete persisted state of a store as exchanged with a
// record-oriented backend.
type Snapshot struct {
	// Dimension is the fixed vector length of the store.
	Dimension int
	// Records are kept in store order.
	Records []Record
	// AdditionalData is an opaque JSON document; nil when unset.
	AdditionalData []byte
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}
