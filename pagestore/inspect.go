package pagestore

// Stats is a point-in-time snapshot of a store's header and free-list state,
// for operational visibility rather than programmatic decision-making.
type Stats struct {
	PageSize     uint32
	PageCount    uint32
	Epoch        uint64
	MetaRoot     PageID
	FreeListHead PageID
	FreePages    int
	PendingFree  int
	LivePages    uint32
}

// Inspect returns a snapshot of the store's current header and free-list
// state.
func (s *Store) Inspect() Stats {
	free := len(s.freeDeque)
	pending := len(s.header.pendingFree)
	live := s.pageCount - uint32(HeaderPages) - uint32(free) - uint32(pending)

	return Stats{
		PageSize:     s.pageSize,
		PageCount:    s.pageCount,
		Epoch:        s.header.epoch,
		MetaRoot:     s.header.metaRoot,
		FreeListHead: s.header.freeListHead,
		FreePages:    free,
		PendingFree:  pending,
		LivePages:    live,
	}
}

// CompactReport is the result of CompactCheck.
type CompactReport struct {
	// Overlap is true if a page id appears in both the in-memory free deque
	// and the active header's pending-free set.
	Overlap bool
	// OverlapPage is the first offending page id, valid only if Overlap.
	OverlapPage PageID
}

// CompactCheck verifies that the in-memory free deque and the active
// header's pending-free set are disjoint: a page is either already reusable
// or waiting one more commit before it is. Once BeginTransaction has linked
// the pending pages into the deque, they stay listed in the header until the
// next commit, and CompactCheck called in that window reports the first of
// them as an overlap.
func (s *Store) CompactCheck() (CompactReport, error) {
	inChain := make(map[PageID]bool, len(s.freeDeque))
	for _, id := range s.freeDeque {
		inChain[id] = true
	}

	for _, id := range s.header.pendingFree {
		if inChain[id] {
			return CompactReport{Overlap: true, OverlapPage: id}, nil
		}
	}

	return CompactReport{}, nil
}
