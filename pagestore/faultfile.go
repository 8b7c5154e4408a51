package pagestore

import (
	"errors"
	"sync"
)

// ErrInjectedFault is returned by FaultFile once its configured trigger
// fires.
var ErrInjectedFault = errors.New("pagestore: injected fault")

// FaultFile wraps a File and can be told to start failing WriteAt or Sync
// calls after N successful calls, for exercising what happens when a commit
// is interrupted partway through its write pipeline: the caller gets back an
// error, the in-flight batch is abandoned in memory, and on-disk state
// reflects whichever steps of the pipeline actually completed before the
// fault fired.
type FaultFile struct {
	mu sync.Mutex

	inner File

	writesUntilFail int // <0 disables
	syncsUntilFail  int // <0 disables
}

// NewFaultFile wraps inner with fault injection disabled.
func NewFaultFile(inner File) *FaultFile {
	return &FaultFile{inner: inner, writesUntilFail: -1, syncsUntilFail: -1}
}

// FailAfterWrites arms the file to fail the (n+1)th WriteAt call onward.
func (f *FaultFile) FailAfterWrites(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writesUntilFail = n
}

// FailAfterSyncs arms the file to fail the (n+1)th Sync call onward.
func (f *FaultFile) FailAfterSyncs(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncsUntilFail = n
}

func (f *FaultFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	if f.writesUntilFail == 0 {
		f.mu.Unlock()
		return 0, ErrInjectedFault
	}
	if f.writesUntilFail > 0 {
		f.writesUntilFail--
	}
	f.mu.Unlock()
	return f.inner.WriteAt(p, off)
}

func (f *FaultFile) Sync() error {
	f.mu.Lock()
	if f.syncsUntilFail == 0 {
		f.mu.Unlock()
		return ErrInjectedFault
	}
	if f.syncsUntilFail > 0 {
		f.syncsUntilFail--
	}
	f.mu.Unlock()
	return f.inner.Sync()
}

func (f *FaultFile) ReadAt(p []byte, off int64) (int, error) { return f.inner.ReadAt(p, off) }
func (f *FaultFile) Truncate(size int64) error                { return f.inner.Truncate(size) }
func (f *FaultFile) Size() (int64, error)                     { return f.inner.Size() }
func (f *FaultFile) Close() error                             { return f.inner.Close() }
