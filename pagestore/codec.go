package pagestore

import "encoding/binary"

// Fixed-width big-endian read/write helpers, kept as named accessors instead
// of spelling out binary.BigEndian.PutUint32 inline at every call site.

func putUint16(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }
func getUint16(buf []byte) uint16    { return binary.BigEndian.Uint16(buf) }

func putUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }
func getUint32(buf []byte) uint32    { return binary.BigEndian.Uint32(buf) }

func putUint64(buf []byte, v uint64) { binary.BigEndian.PutUint64(buf, v) }
func getUint64(buf []byte) uint64    { return binary.BigEndian.Uint64(buf) }
