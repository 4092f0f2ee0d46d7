package client

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/relay/pkg/types"
	"github.com/cuemby/relay/pkg/wire"
)

// runFakeBroker accepts one connection on ln, replies to every JobRequest
// with a completed result, and answers a StatsRequest with a fixed count.
// It ignores artifact-pusher connections entirely (tests here never exercise
// TransferArtifact).
func runFakeBroker(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var hello wire.Hello
		if err := wire.ReadMessage(conn, &hello); err != nil {
			return
		}

		for {
			var msg wire.ClientToBroker
			if err := wire.ReadMessage(conn, &msg); err != nil {
				return
			}
			switch {
			case msg.JobRequest != nil:
				_ = wire.WriteMessage(conn, wire.BrokerToClient{
					JobResponse: &wire.JobResponseMsg{
						ClientJobID: msg.JobRequest.ClientJobID,
						Result:      map[string]any{"outcome": "completed"},
					},
				})
			case msg.StatsRequest != nil:
				_ = wire.WriteMessage(conn, wire.BrokerToClient{
					StatsResponse: &wire.StatsResponseMsg{Counts: map[string]int{"running": 1}},
				})
			}
		}
	}()
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	runFakeBroker(t, ln)

	c, err := New(Options{
		BrokerAddr: ln.Addr().String(),
		CacheDir:   t.TempDir(),
	})
	require.NoError(t, err)
	return c
}

func TestClientAddJobInvokesHandlerWithBrokerResult(t *testing.T) {
	c := newTestClient(t)

	results := make(chan types.JobResult, 1)
	c.AddJob(types.JobSpec{Program: "/bin/echo"}, func(r types.JobResult) { results <- r })

	select {
	case r := <-results:
		assert.Equal(t, types.OutcomeCompleted, r.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}

	c.StopAccepting()
	require.NoError(t, c.WaitForOutstanding())
}

func TestClientGetJobStateCounts(t *testing.T) {
	c := newTestClient(t)

	counts, err := c.GetJobStateCounts()
	require.NoError(t, err)
	assert.Equal(t, types.JobStateCounts{"running": 1}, counts)

	c.StopAccepting()
	require.NoError(t, c.WaitForOutstanding())
}

func TestClientAddArtifactMemoizesByDigestStore(t *testing.T) {
	c := newTestClient(t)

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	d1, err := c.AddArtifact(path, types.ArtifactTar)
	require.NoError(t, err)

	d2, err := c.AddArtifact(path, types.ArtifactTar)
	require.NoError(t, err)
	assert.Equal(t, d1, d2, "second call must reuse the digest from the store rather than re-hash")

	c.StopAccepting()
	require.NoError(t, c.WaitForOutstanding())
}

func TestClientAddLayerCachesStructurallyIdenticalSpecs(t *testing.T) {
	c := newTestClient(t)

	dir := t.TempDir()
	stubPath := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(stubPath, nil, 0o644))

	spec := types.LayerSpec{Kind: types.LayerStubs, Stubs: []string{"etc/", "etc/hostname"}}

	d1, err := c.AddLayer(spec)
	require.NoError(t, err)

	manifestName := manifestFileCount(t, c.opts.CacheDir)

	d2, err := c.AddLayer(spec)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, manifestName, manifestFileCount(t, c.opts.CacheDir), "second call must not write another manifest file")

	c.StopAccepting()
	require.NoError(t, c.WaitForOutstanding())
}

func manifestFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func TestClientWaitForOutstandingBlocksUntilHandlerRuns(t *testing.T) {
	c := newTestClient(t)

	var handlerRan bool
	c.AddJob(types.JobSpec{Program: "/bin/sleep"}, func(types.JobResult) { handlerRan = true })

	c.StopAccepting()
	require.NoError(t, c.WaitForOutstanding())
	assert.True(t, handlerRan, "handler must have run before WaitForOutstanding returns")
}
