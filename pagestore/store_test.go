package pagestore

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "pagestore_test_*.db")
	require.NoError(t, err)
	path := f.Name()
	f.Close()
	os.Remove(path)
	t.Cleanup(func() {
		os.Remove(path)
		os.Remove(path + ".lock")
	})
	return path
}

func TestCreateRejectsBadPageSize(t *testing.T) {
	path := tempStorePath(t)

	_, err := Create(path, 100)
	require.Error(t, err)

	_, err = Create(path, 32)
	require.True(t, errors.Is(err, ErrInvalidPageSize))
}

func TestCreateAndClose(t *testing.T) {
	path := tempStorePath(t)

	s, err := Create(path, 256)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, info.Size(), int64(2*256))
}

func TestReopenPersistsState(t *testing.T) {
	path := tempStorePath(t)

	s, err := Create(path, 256)
	require.NoError(t, err)

	var root PageID
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 256)
		copy(data, []byte("hello"))
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		root = id
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, root, s2.MetaRoot())
	page, err := s2.Read(root)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(page, []byte("hello")))
}

func TestReuseAfterTwoCommits(t *testing.T) {
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)
	defer s.Close()

	var pageA PageID
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 256)
		data[0] = 0x01
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		pageA = id
		return nil
	})
	require.NoError(t, err)

	var pageB PageID
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		pageB = id
		if err := b.Free(pageA); err != nil {
			return err
		}
		b.SetMetaRoot(pageB)
		return nil
	})
	require.NoError(t, err)

	var pageC PageID
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		pageC = id
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, pageA, pageC)
}

func TestStartupCompletedReclamation(t *testing.T) {
	// Close right after the second commit (pending free still outstanding),
	// reopen, next allocate returns the freed page.
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)

	var pageA PageID
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 256)
		data[0] = 0x01
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		pageA = id
		return nil
	})
	require.NoError(t, err)

	err = s.Modify(func(b WriteBatch) error {
		_, err := b.Allocate()
		require.NoError(t, err)
		if err := b.Free(pageA); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var pageAfterReopen PageID
	err = s2.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		pageAfterReopen = id
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, pageA, pageAfterReopen)
}

func TestRollbackTransparency(t *testing.T) {
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)
	defer s.Close()

	var root PageID
	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 256)
		data[0] = 0x42
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		root = id
		return nil
	})
	require.NoError(t, err)

	wantErr := errors.New("boom")
	err = s.Modify(func(b WriteBatch) error {
		_, aerr := b.Allocate()
		require.NoError(t, aerr)
		data := make([]byte, 256)
		data[0] = 0xFF
		if werr := b.Write(root, data); werr != nil {
			return werr
		}
		b.SetMetaRoot(9999)
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	require.Equal(t, root, s.MetaRoot())
	page, err := s.Read(root)
	require.NoError(t, err)
	require.EqualValues(t, 0x42, page[0])
}

func TestPreconditionWrongBufferLength(t *testing.T) {
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)
	defer s.Close()

	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		return b.Write(id, make([]byte, 10))
	})
	require.True(t, errors.Is(err, ErrWrongPageSize))
}

func TestExclusiveTransactionGuard(t *testing.T) {
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)
	defer s.Close()

	txn, err := s.BeginTransaction()
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = s.BeginTransaction()
	require.True(t, errors.Is(err, ErrTxActive))
}

func TestFreeHeaderPageRejected(t *testing.T) {
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)
	defer s.Close()

	err = s.Modify(func(b WriteBatch) error {
		return b.Free(1)
	})
	require.True(t, errors.Is(err, ErrFreeHeaderPage))
}

func TestEpochMonotonicity(t *testing.T) {
	path := tempStorePath(t)
	s, err := Create(path, 256)
	require.NoError(t, err)
	defer s.Close()

	require.EqualValues(t, 0, s.header.epoch)

	for i := 0; i < 5; i++ {
		prev := s.header.epoch
		err := s.Modify(func(b WriteBatch) error {
			_, err := b.Allocate()
			return err
		})
		require.NoError(t, err)
		require.Equal(t, prev+1, s.header.epoch)
	}
}

func TestCreateMemoryRoundTrip(t *testing.T) {
	s, err := CreateMemory(128)
	require.NoError(t, err)
	defer s.Close()

	err = s.Modify(func(b WriteBatch) error {
		id, err := b.Allocate()
		require.NoError(t, err)
		data := make([]byte, 128)
		data[0] = 7
		if err := b.Write(id, data); err != nil {
			return err
		}
		b.SetMetaRoot(id)
		return nil
	})
	require.NoError(t, err)

	page, err := s.Read(s.MetaRoot())
	require.NoError(t, err)
	require.EqualValues(t, 7, page[0])
}
