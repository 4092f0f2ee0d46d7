package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerBeginSnapshotEnd(t *testing.T) {
	tr := NewTracker()
	record := tr.Begin("a.tar", 1024)
	record.AddBytes(512)

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a.tar", snap[0].Name)
	assert.Equal(t, int64(1024), snap[0].Size)
	assert.Equal(t, int64(512), snap[0].Bytes)
	assert.LessOrEqual(t, snap[0].Bytes, snap[0].Size)

	tr.End("a.tar")
	assert.Empty(t, tr.Snapshot())
}

func TestTrackerInFlightCount(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 0, tr.InFlight())

	tr.Begin("a", 10)
	tr.Begin("b", 20)
	assert.Equal(t, 2, tr.InFlight())

	tr.End("a")
	assert.Equal(t, 1, tr.InFlight())
}

func TestTrackerConcurrentAddBytes(t *testing.T) {
	tr := NewTracker()
	record := tr.Begin("big", 1000)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			record.AddBytes(10)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, int64(100), record.Bytes())
}
