package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lumifi/storage"
)

type record struct {
	Name  string
	Count uint64
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	ok, err := m.KVGet([]byte("ledger/test/a"), new(record))
	require.NoError(t, err)
	require.False(t, ok)

	want := record{Name: "alpha", Count: 7}
	require.NoError(t, m.KVPut([]byte("ledger/test/a"), &want))

	var got record
	ok, err = m.KVGet([]byte("ledger/test/a"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestManagerOverwrite(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := []byte("ledger/test/b")

	require.NoError(t, m.KVPut(key, &record{Name: "first", Count: 1}))
	require.NoError(t, m.KVPut(key, &record{Name: "second", Count: 2}))

	var got record
	ok, err := m.KVGet(key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record{Name: "second", Count: 2}, got)
}

func TestManagerKeyIsolation(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	require.NoError(t, m.KVPut([]byte("ledger/test/x"), &record{Name: "x"}))

	ok, err := m.KVGet([]byte("ledger/test/y"), new(record))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerEmptyKeyRejected(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	require.Error(t, m.KVPut(nil, &record{}))
	_, err := m.KVGet(nil, new(record))
	require.Error(t, err)
}
