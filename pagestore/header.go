package pagestore

import "fmt"

// magic identifies a pagestore file. formatVersion is the current on-disk format
// version; headers written by a newer incompatible format would need to
// change this.
var magic = [4]byte{'P', 'G', 'S', 'T'}

const formatVersion uint32 = 1

// fixedHeaderSize is the size, in bytes, of every header field up to and
// including pendingCount — magic(4) + version(4) + pageSize(4) + pageCount(4)
// + epoch(8) + metaRoot(4) + freeListHead(4) + pendingCount(2).
const fixedHeaderSize = 4 + 4 + 4 + 4 + 8 + 4 + 4 + 2

// checksumSize is the width of the trailing CRC-32 field.
const checksumSize = 4

// header is the parsed form of one of the two header pages (page 0 or 1).
type header struct {
	version      uint32
	pageSize     uint32
	pageCount    uint32
	epoch        uint64
	metaRoot     PageID
	freeListHead PageID
	pendingFree  []PageID
}

// maxPendingFree returns the largest pendingFree length that fits within a
// header page of the given size.
func maxPendingFree(pageSize uint32) int {
	n := (int(pageSize) - fixedHeaderSize - checksumSize) / 4
	if n < 0 {
		return 0
	}
	return n
}

// checksumOffset returns the byte offset at which the header's checksum
// field begins, given how many pending-free ids are serialized.
func checksumOffset(pendingCount int) int {
	return fixedHeaderSize + pendingCount*4
}

// encodeHeader serializes h into a buffer of exactly pageSize bytes. Unused
// tail bytes past the checksum are left zero.
func encodeHeader(h *header, pageSize uint32) ([]byte, error) {
	if len(h.pendingFree) > maxPendingFree(pageSize) {
		return nil, fmt.Errorf("pagestore: pendingFree length %d exceeds capacity %d for page size %d", len(h.pendingFree), maxPendingFree(pageSize), pageSize)
	}

	buf := make([]byte, pageSize)
	off := 0
	copy(buf[off:], magic[:])
	off += 4
	putUint32(buf[off:], h.version)
	off += 4
	putUint32(buf[off:], h.pageSize)
	off += 4
	putUint32(buf[off:], h.pageCount)
	off += 4
	putUint64(buf[off:], h.epoch)
	off += 8
	putUint32(buf[off:], uint32(h.metaRoot))
	off += 4
	putUint32(buf[off:], uint32(h.freeListHead))
	off += 4
	putUint16(buf[off:], uint16(len(h.pendingFree)))
	off += 2

	for _, id := range h.pendingFree {
		putUint32(buf[off:], uint32(id))
		off += 4
	}

	sum := checksumRange(buf, 0, off)
	putUint32(buf[off:], sum)

	return buf, nil
}

// decodeHeader parses buf as a header record, returning ErrCorrupt if it
// fails any validity check: short buffer, bad magic, implausible
// pendingCount, checksum region past the buffer end, or checksum mismatch.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < fixedHeaderSize+checksumSize {
		return nil, fmt.Errorf("%w: buffer too short", ErrCorrupt)
	}
	if [4]byte(buf[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	off := 4
	version := getUint32(buf[off:])
	off += 4
	pageSize := getUint32(buf[off:])
	off += 4
	pageCount := getUint32(buf[off:])
	off += 4
	epoch := getUint64(buf[off:])
	off += 8
	metaRoot := PageID(getUint32(buf[off:]))
	off += 4
	freeListHead := PageID(getUint32(buf[off:]))
	off += 4
	pendingCount := int(getUint16(buf[off:]))
	off += 2

	if pendingCount > maxPendingFree(pageSize) {
		return nil, fmt.Errorf("%w: pendingCount %d out of bounds", ErrCorrupt, pendingCount)
	}

	end := checksumOffset(pendingCount)
	if end+checksumSize > len(buf) {
		return nil, fmt.Errorf("%w: checksum region past buffer end", ErrCorrupt)
	}

	pending := make([]PageID, pendingCount)
	for i := range pending {
		pending[i] = PageID(getUint32(buf[off:]))
		off += 4
	}

	wantSum := getUint32(buf[end:])
	gotSum := checksumRange(buf, 0, end)
	if wantSum != gotSum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	return &header{
		version:      version,
		pageSize:     pageSize,
		pageCount:    pageCount,
		epoch:        epoch,
		metaRoot:     metaRoot,
		freeListHead: freeListHead,
		pendingFree:  pending,
	}, nil
}
