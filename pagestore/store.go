package pagestore

import (
	"fmt"
)

// Store is a single open page store. It owns the backing file exclusively;
// nothing inside it is safe for concurrent callers — the only guard against
// misuse is the inTx boolean, a precondition check rather than a lock.
type Store struct {
	file File
	lock *processLock
	path string

	pageSize   uint32
	pageCount  uint32
	activeSlot int
	header     *header

	// freeDeque is the authoritative in-memory free list while the store is
	// open. Allocate pops its head; Rollback prepends abandoned allocations
	// back onto it. It is rebuilt from the on-disk chain at Open and
	// extended in place by pendingLink.
	freeDeque []PageID

	// pendingLinked tracks whether this session has already linked the
	// active header's pendingFree pages into freeDeque, so a second
	// BeginTransaction before the next commit doesn't re-link them.
	pendingLinked bool

	inTx   bool
	closed bool

	logger Logger
}

// Create makes a new store file at path. pageSize must be a power of two and
// at least MinPageSize.
func Create(path string, pageSize uint32, opts ...Option) (*Store, error) {
	if !isPowerOfTwo(pageSize) || pageSize < MinPageSize {
		return nil, ErrInvalidPageSize
	}

	lock, err := acquireProcessLock(path)
	if err != nil {
		return nil, err
	}

	f, err := openOSFile(path)
	if err != nil {
		lock.release()
		return nil, fmt.Errorf("pagestore: cannot open file: %w", err)
	}

	s, err := createOnFile(f, lock, path, pageSize, opts...)
	if err != nil {
		f.Close()
		lock.release()
		return nil, err
	}
	return s, nil
}

// CreateMemory makes a new store entirely in memory — no backing file, no
// process lock. Useful for tests and embedders that want a store without a
// filesystem.
func CreateMemory(pageSize uint32, opts ...Option) (*Store, error) {
	if !isPowerOfTwo(pageSize) || pageSize < MinPageSize {
		return nil, ErrInvalidPageSize
	}
	return createOnFile(NewMemFile(), nil, ":memory:", pageSize, opts...)
}

func createOnFile(file File, lock *processLock, path string, pageSize uint32, opts ...Option) (*Store, error) {
	s := &Store{file: file, lock: lock, path: path, logger: noopLogger{}}
	for _, o := range opts {
		o(s)
	}

	h := &header{
		version:      formatVersion,
		pageSize:     pageSize,
		pageCount:    uint32(HeaderPages),
		epoch:        0,
		metaRoot:     0,
		freeListHead: 0,
		pendingFree:  nil,
	}

	buf, err := encodeHeader(h, pageSize)
	if err != nil {
		return nil, err
	}
	if _, err := file.WriteAt(buf, 0); err != nil {
		return nil, fmt.Errorf("pagestore: write header slot 0: %w", err)
	}
	if _, err := file.WriteAt(buf, int64(pageSize)); err != nil {
		return nil, fmt.Errorf("pagestore: write header slot 1: %w", err)
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("pagestore: fsync after create: %w", err)
	}

	s.pageSize = pageSize
	s.header = h
	s.pageCount = h.pageCount
	s.activeSlot = 0
	s.pendingLinked = true

	s.logger.Infow("store created", "path", path, "pageSize", pageSize)
	return s, nil
}

// Open opens an existing store file, picking the freshest valid header slot
// and completing any pending reclamation before returning.
func Open(path string, opts ...Option) (*Store, error) {
	lock, err := acquireProcessLock(path)
	if err != nil {
		return nil, err
	}

	f, err := openOSFile(path)
	if err != nil {
		lock.release()
		return nil, fmt.Errorf("pagestore: cannot open file: %w", err)
	}

	s, err := openOnFile(f, lock, path, opts...)
	if err != nil {
		f.Close()
		lock.release()
		return nil, err
	}
	return s, nil
}

func openOnFile(file File, lock *processLock, path string, opts ...Option) (*Store, error) {
	s := &Store{file: file, lock: lock, path: path, logger: noopLogger{}}
	for _, o := range opts {
		o(s)
	}

	sizeBuf := make([]byte, 4)
	if _, err := file.ReadAt(sizeBuf, 8); err != nil {
		return nil, fmt.Errorf("pagestore: read page size: %w", err)
	}
	pageSize := getUint32(sizeBuf)
	if pageSize < MinPageSize {
		return nil, fmt.Errorf("%w: implausible page size %d", ErrCorrupt, pageSize)
	}

	slot0 := make([]byte, pageSize)
	if _, err := file.ReadAt(slot0, 0); err != nil {
		return nil, fmt.Errorf("pagestore: read header slot 0: %w", err)
	}
	slot1 := make([]byte, pageSize)
	if _, err := file.ReadAt(slot1, int64(pageSize)); err != nil {
		return nil, fmt.Errorf("pagestore: read header slot 1: %w", err)
	}

	h0, err0 := decodeHeader(slot0)
	h1, err1 := decodeHeader(slot1)

	var chosen *header
	var activeSlot int
	switch {
	case err0 == nil && err1 == nil:
		if h1.epoch > h0.epoch {
			chosen, activeSlot = h1, 1
		} else {
			chosen, activeSlot = h0, 0
		}
	case err0 == nil:
		chosen, activeSlot = h0, 0
	case err1 == nil:
		chosen, activeSlot = h1, 1
	default:
		return nil, ErrCorrupt
	}

	s.header = chosen
	s.pageSize = chosen.pageSize
	s.pageCount = chosen.pageCount
	s.activeSlot = activeSlot

	s.logger.Infow("store opened", "path", path, "slot", activeSlot, "epoch", chosen.epoch)

	if len(chosen.pendingFree) > 0 {
		if err := s.startupReclamation(); err != nil {
			return nil, err
		}
	}

	if err := s.loadFreeDequeFromDisk(); err != nil {
		return nil, err
	}
	s.pendingLinked = true

	return s, nil
}

// PageSize returns the store's immutable page size.
func (s *Store) PageSize() uint32 { return s.pageSize }

// MetaRoot returns the currently committed root page id.
func (s *Store) MetaRoot() PageID { return s.header.metaRoot }

// Read returns a freshly-owned copy of the on-disk bytes of a committed data
// page. It never touches the free deque or header.
func (s *Store) Read(id PageID) (Page, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if id < HeaderPages || uint32(id) >= s.pageCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageID, id)
	}

	buf := make([]byte, s.pageSize)
	if _, err := s.file.ReadAt(buf, int64(id)*int64(s.pageSize)); err != nil {
		return nil, fmt.Errorf("pagestore: read page %d: %w", id, err)
	}
	return Page(buf), nil
}

// Modify opens a transaction, runs fn under it, commits on normal
// completion, and rolls back if fn returns an error or panics.
func (s *Store) Modify(fn func(WriteBatch) error) (err error) {
	txn, err := s.BeginTransaction()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			txn.Rollback()
			panic(r)
		}
	}()

	if fnErr := fn(txn); fnErr != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			return fmt.Errorf("pagestore: rollback after %v: %w", fnErr, rbErr)
		}
		return fnErr
	}

	return txn.Commit()
}

// BeginTransaction opens an explicit transaction. Disallowed while one is
// already active. As its first act it performs pending-link, folding the
// active header's pending-free pages into the in-memory free deque.
func (s *Store) BeginTransaction() (*Transaction, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.inTx {
		return nil, ErrTxActive
	}

	if err := s.pendingLink(); err != nil {
		return nil, err
	}

	s.inTx = true
	return &Transaction{
		store:   s,
		active:  true,
		written: make(map[PageID][]byte),
	}, nil
}

// Close closes the backing file. No implicit commit is performed, and no
// pending-link state is flushed — startup reclamation on the next Open
// remains the sole recovery path.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	fileErr := s.file.Close()
	var lockErr error
	if s.lock != nil {
		lockErr = s.lock.release()
	}
	s.logger.Infow("store closed", "path", s.path)

	if fileErr != nil {
		return fileErr
	}
	return lockErr
}

// pendingLink links the active header's pendingFree pages into the on-disk
// free chain and extends freeDeque, if this session hasn't already done so
// for the current header.
func (s *Store) pendingLink() error {
	if s.pendingLinked || len(s.header.pendingFree) == 0 {
		return nil
	}

	pending := s.header.pendingFree
	if err := s.linkPendingPagesOnDisk(pending, s.header.freeListHead); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("pagestore: fsync pending-link: %w", err)
	}

	extended := make([]PageID, 0, len(pending)+len(s.freeDeque))
	extended = append(extended, pending...)
	extended = append(extended, s.freeDeque...)
	s.freeDeque = extended

	s.pendingLinked = true
	return nil
}

// startupReclamation performs the same physical linking as pendingLink, then
// immediately commits a header with the pending pages cleared and
// freeListHead updated, bringing a file opened mid-cycle to a clean state
// before any caller work.
func (s *Store) startupReclamation() error {
	pending := s.header.pendingFree
	if err := s.linkPendingPagesOnDisk(pending, s.header.freeListHead); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("pagestore: fsync startup reclamation link: %w", err)
	}

	newHeader := &header{
		version:      formatVersion,
		pageSize:     s.pageSize,
		pageCount:    s.pageCount,
		epoch:        s.header.epoch + 1,
		metaRoot:     s.header.metaRoot,
		freeListHead: pending[0],
		pendingFree:  nil,
	}

	staleSlot := 1 - s.activeSlot
	buf, err := encodeHeader(newHeader, s.pageSize)
	if err != nil {
		return err
	}
	if _, err := s.file.WriteAt(buf, int64(staleSlot)*int64(s.pageSize)); err != nil {
		return fmt.Errorf("pagestore: write reclaimed header: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("pagestore: fsync reclaimed header: %w", err)
	}

	s.header = newHeader
	s.activeSlot = staleSlot

	s.logger.Infow("startup reclamation completed", "path", s.path, "freeListHead", newHeader.freeListHead, "epoch", newHeader.epoch)
	return nil
}

// linkPendingPagesOnDisk writes the first four bytes of each pending page to
// point at its successor, with the last entry pointing at tailNext (the
// current on-disk free-list head).
func (s *Store) linkPendingPagesOnDisk(pending []PageID, tailNext PageID) error {
	for i, p := range pending {
		next := tailNext
		if i+1 < len(pending) {
			next = pending[i+1]
		}
		buf := make([]byte, 4)
		putUint32(buf, uint32(next))
		if _, err := s.file.WriteAt(buf, int64(p)*int64(s.pageSize)); err != nil {
			return fmt.Errorf("pagestore: link free page %d: %w", p, err)
		}
	}
	return nil
}

// loadFreeDequeFromDisk walks the on-disk free chain starting at the active
// header's freeListHead and makes it the in-memory free deque.
func (s *Store) loadFreeDequeFromDisk() error {
	var deque []PageID
	seen := make(map[PageID]bool)

	cur := s.header.freeListHead
	for cur != 0 {
		if seen[cur] {
			return fmt.Errorf("%w: cycle in free list at page %d", ErrCorrupt, cur)
		}
		seen[cur] = true
		deque = append(deque, cur)

		buf := make([]byte, 4)
		if _, err := s.file.ReadAt(buf, int64(cur)*int64(s.pageSize)); err != nil {
			return fmt.Errorf("pagestore: read free list node %d: %w", cur, err)
		}
		cur = PageID(getUint32(buf))
	}

	s.freeDeque = deque
	return nil
}
