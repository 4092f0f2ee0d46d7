package dispatch

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/relay/pkg/types"
	"github.com/cuemby/relay/pkg/wire"
)

// runFakeBroker accepts one connection, reads the client Hello, then echoes
// a completed JobResponse for every JobRequest it sees until the client
// closes its write half, at which point it closes the connection too.
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
		assert.Equal(t, wire.RoleClient, hello.Role)

		for {
			var msg wire.ClientToBroker
			if err := wire.ReadMessage(conn, &msg); err != nil {
				return
			}
			if msg.JobRequest != nil {
				_ = wire.WriteMessage(conn, wire.BrokerToClient{
					JobResponse: &wire.JobResponseMsg{
						ClientJobID: msg.JobRequest.ClientJobID,
						Result:      map[string]any{"outcome": "completed"},
					},
				})
			}
		}
	}()
}

func TestDriverSubmitsJobAndShutsDownCleanly(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	runFakeBroker(t, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	tcpConn := conn.(*net.TCPConn)

	driver, err := NewDriver(Options{
		ControlConn:  tcpConn,
		ArtifactDial: func() (io.ReadWriteCloser, error) { return nil, assert.AnError },
		PushWorkers:  1,
	})
	require.NoError(t, err)
	driver.Start()

	results := make(chan types.JobResult, 1)
	driver.Dispatcher().AddJob(types.JobSpec{Program: "echo"}, func(r types.JobResult) { results <- r })

	select {
	case r := <-results:
		assert.Equal(t, types.OutcomeCompleted, r.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("job result never delivered")
	}

	stopErr := make(chan error, 1)
	go func() { stopErr <- driver.Stop() }()

	select {
	case err := <-stopErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned")
	}
}
