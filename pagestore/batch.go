package pagestore

import "fmt"

// WriteBatch is the narrower capability surfaced to Store.Modify's callback:
// allocate/read/write/free/setMetaRoot, with no way to commit or roll back
// directly. Transaction satisfies WriteBatch and adds the wider surface for
// callers that manage the lifecycle themselves.
type WriteBatch interface {
	Allocate() (PageID, error)
	Read(id PageID) (Page, error)
	Write(id PageID, data []byte) error
	Free(id PageID) error
	SetMetaRoot(id PageID)
}

// Transaction accumulates a write batch in memory and terminates in a single
// atomic Commit or a Rollback. Active -> (Commit | Rollback) -> Completed;
// operations on a completed transaction fail with ErrTxCompleted.
type Transaction struct {
	store  *Store
	active bool

	written     map[PageID][]byte
	freed       []PageID
	allocated   []PageID
	extended    uint32
	newMetaRoot *PageID
}

var _ WriteBatch = (*Transaction)(nil)

// IsActive reports whether the transaction has neither committed nor rolled
// back.
func (t *Transaction) IsActive() bool { return t.active }

// Allocate returns a page id: the head of the in-memory free deque if
// non-empty, else a freshly minted id at the end of the file.
func (t *Transaction) Allocate() (PageID, error) {
	if !t.active {
		return 0, ErrTxCompleted
	}
	s := t.store

	if len(s.freeDeque) > 0 {
		id := s.freeDeque[0]
		s.freeDeque = s.freeDeque[1:]
		t.allocated = append(t.allocated, id)
		return id, nil
	}

	id := PageID(s.pageCount) + PageID(t.extended)
	t.extended++

	zero := make([]byte, s.pageSize)
	if _, err := s.file.WriteAt(zero, int64(id)*int64(s.pageSize)); err != nil {
		t.extended--
		return 0, fmt.Errorf("pagestore: extend file for page %d: %w", id, err)
	}

	t.allocated = append(t.allocated, id)
	return id, nil
}

// Read returns the batch's pending write for id if present, else the
// on-disk content. It never returns uncommitted writes from a different
// transaction, since only one transaction can be active at a time.
func (t *Transaction) Read(id PageID) (Page, error) {
	if !t.active {
		return nil, ErrTxCompleted
	}
	if data, ok := t.written[id]; ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		return Page(cp), nil
	}

	s := t.store
	buf := make([]byte, s.pageSize)
	if _, err := s.file.ReadAt(buf, int64(id)*int64(s.pageSize)); err != nil {
		return nil, fmt.Errorf("pagestore: read page %d: %w", id, err)
	}
	return Page(buf), nil
}

// Write stages data as the final bytes for id. data must be exactly
// PageSize bytes, and is defensively copied since the caller may mutate
// their buffer after the call returns.
func (t *Transaction) Write(id PageID, data []byte) error {
	if !t.active {
		return ErrTxCompleted
	}
	if uint32(len(data)) != t.store.pageSize {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongPageSize, len(data), t.store.pageSize)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	t.written[id] = cp
	return nil
}

// Free marks id as freed in this batch. Its pending write, if any, is
// dropped — a page about to become pending-free is never also written.
func (t *Transaction) Free(id PageID) error {
	if !t.active {
		return ErrTxCompleted
	}
	if id < HeaderPages {
		return fmt.Errorf("%w: %d", ErrFreeHeaderPage, id)
	}

	t.freed = append(t.freed, id)
	delete(t.written, id)
	return nil
}

// SetMetaRoot records id as the new meta root to commit. Liveness of id is
// not validated — the store does not interpret page contents. On a completed
// transaction the call is ignored.
func (t *Transaction) SetMetaRoot(id PageID) {
	if !t.active {
		return
	}
	t.newMetaRoot = &id
}

// Commit runs the atomic commit pipeline:
//  1. compute newMetaRoot and currentFreeHead
//  2. write every staged data page
//  3. fsync if any data pages were written
//  4. compose the new header
//  5. write it into the stale header slot
//  6. fsync
//  7. swap the in-memory active slot
func (t *Transaction) Commit() error {
	if !t.active {
		return ErrTxCompleted
	}
	s := t.store

	newMetaRoot := s.header.metaRoot
	if t.newMetaRoot != nil {
		newMetaRoot = *t.newMetaRoot
	}

	var currentFreeHead PageID
	if len(s.freeDeque) > 0 {
		currentFreeHead = s.freeDeque[0]
	}

	for id, data := range t.written {
		if _, err := s.file.WriteAt(data, int64(id)*int64(s.pageSize)); err != nil {
			return fmt.Errorf("pagestore: write page %d: %w", id, err)
		}
	}
	if len(t.written) > 0 {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("pagestore: fsync data pages: %w", err)
		}
	}

	newHeader := &header{
		version:      formatVersion,
		pageSize:     s.pageSize,
		pageCount:    s.pageCount + t.extended,
		epoch:        s.header.epoch + 1,
		metaRoot:     newMetaRoot,
		freeListHead: currentFreeHead,
		pendingFree:  t.freed,
	}
	if len(newHeader.pendingFree) > maxPendingFree(s.pageSize) {
		return ErrTooManyPendingFree
	}

	staleSlot := 1 - s.activeSlot
	buf, err := encodeHeader(newHeader, s.pageSize)
	if err != nil {
		return err
	}
	if _, err := s.file.WriteAt(buf, int64(staleSlot)*int64(s.pageSize)); err != nil {
		return fmt.Errorf("pagestore: write header slot %d: %w", staleSlot, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("pagestore: fsync header: %w", err)
	}

	s.header = newHeader
	s.pageCount = newHeader.pageCount
	s.activeSlot = staleSlot
	s.pendingLinked = false
	s.inTx = false
	t.active = false

	s.logger.Infow("commit", "path", s.path, "epoch", newHeader.epoch, "pageCount", newHeader.pageCount, "pending", len(newHeader.pendingFree))
	return nil
}

// Rollback discards all batch state without issuing any disk writes.
// Allocated ids (including any file extensions performed while allocating
// them) are prepended to the free deque so they are immediately reusable;
// the extensions themselves are not truncated. Rollback never advances
// epoch.
func (t *Transaction) Rollback() error {
	if !t.active {
		return ErrTxCompleted
	}
	s := t.store

	if len(t.allocated) > 0 {
		restored := make([]PageID, 0, len(t.allocated)+len(s.freeDeque))
		restored = append(restored, t.allocated...)
		restored = append(restored, s.freeDeque...)
		s.freeDeque = restored
	}

	s.inTx = false
	t.active = false
	return nil
}
