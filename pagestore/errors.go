package pagestore

import "errors"

// Sentinel errors, matched with errors.Is by callers. Some call sites return
// them bare; others wrap additional context with fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidPageSize is returned by Create when pageSize is not a power
	// of two or is smaller than MinPageSize.
	ErrInvalidPageSize = errors.New("pagestore: page size must be a power of two and at least 64 bytes")

	// ErrCorrupt is returned by Open when neither header slot parses.
	ErrCorrupt = errors.New("pagestore: corrupt page store")

	// ErrInvalidPageID is returned by Store.Read for an id outside
	// [HeaderPages, pageCount).
	ErrInvalidPageID = errors.New("pagestore: invalid page id")

	// ErrWrongPageSize is returned by WriteBatch.Write when the supplied
	// buffer is not exactly PageSize bytes.
	ErrWrongPageSize = errors.New("pagestore: data length does not match page size")

	// ErrTxActive is returned by BeginTransaction/Modify when another
	// transaction is already open on the store.
	ErrTxActive = errors.New("pagestore: a transaction is already active")

	// ErrTxCompleted is returned by any WriteBatch/Transaction operation
	// with an error result invoked after commit or rollback.
	ErrTxCompleted = errors.New("pagestore: transaction already completed")

	// ErrFreeHeaderPage is returned by Free for a page id within the
	// reserved header range.
	ErrFreeHeaderPage = errors.New("pagestore: cannot free a header page")

	// ErrClosed is returned by Read, BeginTransaction and Modify when called
	// after Close.
	ErrClosed = errors.New("pagestore: store is closed")

	// ErrTooManyPendingFree is returned by Commit when a single batch frees
	// more pages than maxPendingFree(pageSize) can record in one header.
	ErrTooManyPendingFree = errors.New("pagestore: too many pages freed in a single commit")
)
