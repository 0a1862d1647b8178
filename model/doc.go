// Package model defines the types shared between the vector store and its
// persistence backends.
//
//   - Record: an id and a fixed-length vector
//   - Snapshot: the full persisted state of one store
package model
