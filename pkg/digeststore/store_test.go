package digeststore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/relay/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "digests.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddThenGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	mtime := time.Now().Truncate(time.Microsecond)
	d := types.DigestOf([]byte("hello"))

	require.NoError(t, s.Add("/a.tar", mtime, d))

	got, ok, err := s.Get("/a.tar", mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d, got)
}

func TestGetMissOnMtimeMismatch(t *testing.T) {
	s := openTestStore(t)
	t1 := time.Now().Truncate(time.Microsecond)
	t2 := t1.Add(time.Second)
	d := types.DigestOf([]byte("hello"))

	require.NoError(t, s.Add("/x", t1, d))

	_, ok, err := s.Get("/x", t2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissOnAbsentPath(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("/never-added", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddOverwritesPriorEntry(t *testing.T) {
	s := openTestStore(t)
	t1 := time.Now().Truncate(time.Microsecond)
	t2 := t1.Add(time.Second)
	d1 := types.DigestOf([]byte("v1"))
	d2 := types.DigestOf([]byte("v2"))

	require.NoError(t, s.Add("/x", t1, d1))
	require.NoError(t, s.Add("/x", t2, d2))

	_, ok, err := s.Get("/x", t1)
	require.NoError(t, err)
	assert.False(t, ok, "stale mtime after overwrite should miss")

	got, ok, err := s.Get("/x", t2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d2, got)
}

func TestReopenPreservesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.db")
	mtime := time.Now().Truncate(time.Microsecond)
	d := types.DigestOf([]byte("hello"))

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Add("/a", mtime, d))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get("/a", mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d, got)
}
