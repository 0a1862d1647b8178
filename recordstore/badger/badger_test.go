package badger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/hupe1980/nanovdb/recordstore"
	"github.com/hupe1980/nanovdb/recordstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newTestStore(t))
}

func TestStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.WriteRecords(ctx, "tenant", storetest.Snapshot(4, 3, []byte(`[1,2]`))))
	require.NoError(t, s.Close())

	s, err = NewStore(Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	out, err := s.ReadRecords(ctx, "tenant")
	require.NoError(t, err)
	assert.Len(t, out.Records, 3)
	assert.Equal(t, `[1,2]`, string(out.AdditionalData))
}

func TestStore_RequiresDir(t *testing.T) {
	_, err := NewStore(Options{})
	assert.Error(t, err)
}

func TestStore_DetectsMissingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRecords(ctx, "t", storetest.Snapshot(2, 3, nil)))

	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey("t", 1))
	}))

	_, err := s.ReadRecords(ctx, "t")
	assert.ErrorIs(t, err, recordstore.ErrCorrupt)
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	l.Errorf("compaction failed: %v\n", "disk full")
	l.Warningf("slow write")
	l.Infof("replaying value log")
	l.Debugf("level 0 stats")

	out := buf.String()
	assert.Contains(t, out, `level=ERROR msg="compaction failed: disk full" component=badger`)
	assert.Contains(t, out, `level=WARN msg="slow write" component=badger`)
	assert.NotContains(t, out, "replaying value log")
	assert.NotContains(t, out, "level 0 stats")
}

func TestStore_UsesConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := NewStore(Options{Dir: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Contains(t, buf.String(), "component=badger")
}
