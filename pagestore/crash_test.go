package pagestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHeaderSelectionSurvivesStaleSlotCorruption checks that corrupting one
// header slot after a commit never surfaces a state that was never
// committed, and always recovers either the latest committed state or the
// one immediately prior.
func TestHeaderSelectionSurvivesStaleSlotCorruption(t *testing.T) {
	mem := NewMemFile()
	s, err := createOnFile(mem, nil, ":memory:", 256)
	require.NoError(t, err)

	var lastRoot PageID
	for i := 0; i < 3; i++ {
		err := s.Modify(func(b WriteBatch) error {
			id, err := b.Allocate()
			require.NoError(t, err)
			data := make([]byte, 256)
			data[0] = byte(i + 1)
			if err := b.Write(id, data); err != nil {
				return err
			}
			b.SetMetaRoot(id)
			lastRoot = id
			return nil
		})
		require.NoError(t, err)
	}

	preCorruptEpoch := s.header.epoch
	preCorruptRoot := s.header.metaRoot
	require.Equal(t, lastRoot, preCorruptRoot)

	// Corrupt the stale slot (the one NOT currently active) to simulate a
	// crash mid-write of the next commit's header.
	staleSlot := 1 - s.activeSlot
	corrupt := make([]byte, 1)
	mem.ReadAt(corrupt, int64(staleSlot)*int64(s.pageSize)+20)
	corrupt[0] ^= 0xFF
	mem.WriteAt(corrupt, int64(staleSlot)*int64(s.pageSize)+20)

	reopened, err := openOnFile(mem, nil, ":memory:")
	require.NoError(t, err)

	require.Equal(t, preCorruptEpoch, reopened.header.epoch)
	require.Equal(t, preCorruptRoot, reopened.header.metaRoot)
}

// TestInjectedWriteFaultDuringCommitLeavesOldHeaderAuthoritative models a
// crash between commit pipeline steps 2 and 6: the previous header slot must
// remain the active, valid one.
func TestInjectedWriteFaultDuringCommitLeavesOldHeaderAuthoritative(t *testing.T) {
	mem := NewMemFile()
	ff := NewFaultFile(mem)

	s, err := createOnFile(ff, nil, ":memory:", 256)
	require.NoError(t, err)

	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 256)
		data[0] = 1
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		return nil
	})
	require.NoError(t, err)
	committedRoot := s.MetaRoot()
	committedEpoch := s.header.epoch

	// Next commit: let the data page write through but fail the header
	// write into the stale slot, modeling a crash before the new header
	// ever reaches disk.
	ff.FailAfterWrites(2) // Allocate's file extension and the data page succeed, the header fails
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 256)
		data[0] = 2
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		return nil
	})
	require.Error(t, err)

	// Reopen fresh from the same bytes: the old, fully-committed header must
	// still be the one selected, since the failed commit's header write may
	// not have completed or synced.
	reopened, err := openOnFile(mem, nil, ":memory:")
	require.NoError(t, err)
	require.Equal(t, committedRoot, reopened.MetaRoot())
	require.Equal(t, committedEpoch, reopened.header.epoch)
}
