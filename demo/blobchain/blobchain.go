// Package blobchain is a small example consumer built on top of pagestore,
// showing how a higher-level structure uses metaRoot as the entry point into
// its own page layout without the store ever interpreting page contents.
//
// Two page layouts live on top of the store, both private to this package:
//
//   - a data chain: one blob's bytes split across consecutive pages, each
//     prefixed with a 4-byte next-page pointer and a 4-byte length for the
//     payload carried in that page;
//   - a record list: metaRoot points at the most recently stored blob's
//     record page, each record holding {prevRecord, dataHead, length} and
//     pointing back to the previous record, so List walks newest-first.
package blobchain

import (
	"encoding/binary"
	"fmt"

	"github.com/brinkdb/pagestore/pagestore"
)

const recordHeaderSize = 4 + 4 + 4 // prevRecord + dataHead + length
const dataHeaderSize = 4 + 4       // next + length

// Put stores data as a new blob and returns its record page id, which
// callers can hand to Get later. It leaves metaRoot pointing at the new
// record.
func Put(s *pagestore.Store, data []byte) (pagestore.PageID, error) {
	var recordID pagestore.PageID

	err := s.Modify(func(b pagestore.WriteBatch) error {
		dataHead, err := writeChain(s, b, data)
		if err != nil {
			return err
		}

		id, err := b.Allocate()
		if err != nil {
			return err
		}

		record := make([]byte, s.PageSize())
		binary.BigEndian.PutUint32(record[0:], uint32(s.MetaRoot()))
		binary.BigEndian.PutUint32(record[4:], uint32(dataHead))
		binary.BigEndian.PutUint32(record[8:], uint32(len(data)))
		if err := b.Write(id, record); err != nil {
			return err
		}

		b.SetMetaRoot(id)
		recordID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return recordID, nil
}

// writeChain allocates and writes however many data pages data needs, oldest
// page last, returning the id of the first page in the chain.
func writeChain(s *pagestore.Store, b pagestore.WriteBatch, data []byte) (pagestore.PageID, error) {
	chunk := int(s.PageSize()) - dataHeaderSize
	if chunk <= 0 {
		return 0, fmt.Errorf("blobchain: page size %d too small to hold any payload", s.PageSize())
	}

	var pageIDs []pagestore.PageID
	for off := 0; off < len(data) || len(data) == 0; off += chunk {
		id, err := b.Allocate()
		if err != nil {
			return 0, err
		}
		pageIDs = append(pageIDs, id)
		if len(data) == 0 {
			break
		}
		if off+chunk >= len(data) {
			break
		}
	}

	var next pagestore.PageID
	for i := len(pageIDs) - 1; i >= 0; i-- {
		start := i * chunk
		end := start + chunk
		if end > len(data) {
			end = len(data)
		}
		payload := data[start:end]

		page := make([]byte, s.PageSize())
		binary.BigEndian.PutUint32(page[0:], uint32(next))
		binary.BigEndian.PutUint32(page[4:], uint32(len(payload)))
		copy(page[dataHeaderSize:], payload)

		if err := b.Write(pageIDs[i], page); err != nil {
			return 0, err
		}
		next = pageIDs[i]
	}

	if len(pageIDs) == 0 {
		return 0, nil
	}
	return pageIDs[0], nil
}

// Get reads back the blob stored at recordID.
func Get(s *pagestore.Store, recordID pagestore.PageID) ([]byte, error) {
	record, err := s.Read(recordID)
	if err != nil {
		return nil, err
	}
	dataHead := pagestore.PageID(binary.BigEndian.Uint32(record[4:]))
	length := binary.BigEndian.Uint32(record[8:])

	out := make([]byte, 0, length)
	cur := dataHead
	for cur != 0 && uint32(len(out)) < length {
		page, err := s.Read(cur)
		if err != nil {
			return nil, err
		}
		next := pagestore.PageID(binary.BigEndian.Uint32(page[0:]))
		n := binary.BigEndian.Uint32(page[4:])
		out = append(out, page[dataHeaderSize:dataHeaderSize+n]...)
		cur = next
	}
	return out, nil
}

// List walks the record chain from metaRoot, newest first, returning each
// record's id without reading blob bodies.
func List(s *pagestore.Store) ([]pagestore.PageID, error) {
	var ids []pagestore.PageID
	cur := s.MetaRoot()
	for cur != 0 {
		record, err := s.Read(cur)
		if err != nil {
			return nil, err
		}
		ids = append(ids, cur)
		cur = pagestore.PageID(binary.BigEndian.Uint32(record[0:]))
	}
	return ids, nil
}
