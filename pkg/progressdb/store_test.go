package progressdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordRunThenGet(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordRun("pkg1/TestFoo", 250*time.Millisecond, OutcomeSuccess, map[string]string{"retries": "0"}))

	got, ok, err := s.Get("pkg1/TestFoo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OutcomeSuccess, got.Outcome)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, got.Durations)
	assert.Equal(t, "0", got.Metadata["retries"])
}

func TestRecordRunCapsDurationsAtThree(t *testing.T) {
	s := openTestStore(t)
	key := "pkg1/TestFoo"
	for i, d := range []time.Duration{1, 2, 3, 4} {
		outcome := OutcomeNew
		if i > 0 {
			outcome = OutcomeSuccess
		}
		require.NoError(t, s.RecordRun(key, d*time.Millisecond, outcome, nil))
	}

	got, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 3 * time.Millisecond, 4 * time.Millisecond}, got.Durations)
	assert.Equal(t, OutcomeSuccess, got.Outcome)
}

func TestGetMissOnAbsentKey(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("never/recorded")
	require.NoError(t, err)
	assert.False(t, ok)
}
