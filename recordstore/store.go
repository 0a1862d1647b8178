package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/nanovdb/model"
)

var (
	// ErrNotFound is returned when nothing is persisted at a location.
	ErrNotFound = errors.New("recordstore: not found")

	// ErrCorrupt is returned when persisted records are inconsistent with
	// their metadata.
	ErrCorrupt = errors.New("recordstore: corrupt record set")
)

// RecordStore persists whole record sets.
type RecordStore interface {
	// WriteRecords replaces everything stored at location with snap.
	WriteRecords(ctx context.Context, location string, snap *model.Snapshot) error
	// ReadRecords returns the record set at location in the order it was
	// written, or ErrNotFound.
	ReadRecords(ctx context.Context, location string) (*model.Snapshot, error)
	// Delete removes the record set at location. Deleting an absent
	// location is not an error.
	Delete(ctx context.Context, location string) error
	// Exists reports whether a record set is stored at location.
	Exists(ctx context.Context, location string) (bool, error)
}

// Validate checks that every record in snap has the snapshot dimension.
func Validate(snap *model.Snapshot) error {
	if snap.Dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrCorrupt, snap.Dimension)
	}
	for i, r := range snap.Records {
		if len(r.Vector) != snap.Dimension {
			return fmt.Errorf("%w: record %d (%q) has dimension %d, want %d", ErrCorrupt, i, r.ID, len(r.Vector), snap.Dimension)
		}
	}
	return nil
}
