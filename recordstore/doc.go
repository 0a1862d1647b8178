// Package recordstore defines record-oriented persistence backends.
//
// A RecordStore owns the encoding of a store's state. It receives the full
// record set, the dimension and the additional data, and must replace the
// previously persisted state atomically. Stores bound to a RecordStore skip
// their own document encoding entirely.
//
// # Built-in Implementations
//
//   - sqlite.Store: one SQLite file per location (meta and vectors tables)
//   - badger.Store: one shared BadgerDB, locations as key prefixes
//   - dynamodb.Store: one DynamoDB table, generations swapped by conditional write
package recordstore
