package blobchain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brinkdb/pagestore/pagestore"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := pagestore.CreateMemory(64)
	require.NoError(t, err)
	defer s.Close()

	data := bytes.Repeat([]byte("x"), 300)
	id, err := Put(s, data)
	require.NoError(t, err)

	got, err := Get(s, id)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestPutEmptyBlob(t *testing.T) {
	s, err := pagestore.CreateMemory(64)
	require.NoError(t, err)
	defer s.Close()

	id, err := Put(s, nil)
	require.NoError(t, err)

	got, err := Get(s, id)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListReturnsNewestFirst(t *testing.T) {
	s, err := pagestore.CreateMemory(64)
	require.NoError(t, err)
	defer s.Close()

	id1, err := Put(s, []byte("first"))
	require.NoError(t, err)
	id2, err := Put(s, []byte("second"))
	require.NoError(t, err)

	ids, err := List(s)
	require.NoError(t, err)
	require.Equal(t, []pagestore.PageID{id2, id1}, ids)
}
