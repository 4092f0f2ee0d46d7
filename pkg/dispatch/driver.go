package dispatch

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/relay/pkg/artifact"
	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/metrics"
	"github.com/cuemby/relay/pkg/wire"
)

// controlConn is the persistent connection the Driver owns. CloseWrite lets
// Stop signal "no more requests" to the broker without tearing down the read
// side, so outstanding responses can still arrive; *net.TCPConn satisfies
// this directly.
type controlConn interface {
	io.ReadWriteCloser
	CloseWrite() error
}

// Options configures a Driver.
type Options struct {
	// ControlConn is the persistent connection to the broker's control port.
	ControlConn controlConn
	// ArtifactDial opens a fresh connection for one artifact push.
	ArtifactDial Dialer
	// PushWorkers bounds how many artifact pushes run concurrently. Defaults to 1.
	PushWorkers int
}

// Driver owns the lifecycle of the Dispatcher, the wireReader, and the
// artifact pusher pool: it starts all three, and its Stop tears all three
// down in the order the spec requires (stop accepting work, drain
// outstanding jobs, then release the connection and join every goroutine).
type Driver struct {
	conn   controlConn
	disp   *Dispatcher
	reader *wireReader
	pool   *pusherPool

	registry *artifact.Registry
	tracker  *artifact.Tracker
	metrics  *metrics.Collector

	log zerolog.Logger
	wg  sync.WaitGroup
	mu  sync.Mutex
	err error
}

// NewDriver sends the client Hello on opts.ControlConn and assembles the
// mesh. It does not start any goroutine; call Start for that.
func NewDriver(opts Options) (*Driver, error) {
	if opts.PushWorkers < 1 {
		opts.PushWorkers = 1
	}

	if err := wire.WriteMessage(opts.ControlConn, wire.Hello{Role: wire.RoleClient}); err != nil {
		return nil, fmt.Errorf("dispatch: send client hello: %w", err)
	}

	registry := artifact.NewRegistry()
	tracker := artifact.NewTracker()
	pool := newPusherPool(opts.ArtifactDial, opts.PushWorkers, tracker)
	disp := NewDispatcher(opts.ControlConn, registry, pool.queue)
	reader := newWireReader(opts.ControlConn, disp)
	collector := metrics.NewCollector(tracker)

	return &Driver{
		conn:     opts.ControlConn,
		disp:     disp,
		reader:   reader,
		pool:     pool,
		registry: registry,
		tracker:  tracker,
		metrics:  collector,
		log:      log.WithComponent("driver"),
	}, nil
}

// Dispatcher returns the mesh's Dispatcher, the only component a caller
// should submit work to.
func (d *Driver) Dispatcher() *Dispatcher { return d.disp }

// Tracker returns the Upload Tracker, exposed for progress reporting.
func (d *Driver) Tracker() *artifact.Tracker { return d.tracker }

// Start launches the pusher pool, the Dispatcher, and the wireReader.
func (d *Driver) Start() {
	d.pool.start()
	d.metrics.Start()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.disp.Run(); err != nil {
			d.recordErr(err)
			d.log.Error().Err(err).Msg("dispatcher terminated")
		}
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.reader.run(); err != nil {
			d.recordErr(err)
			d.log.Error().Err(err).Msg("wire reader terminated")
		}
	}()
}

// Stop asks the Dispatcher to stop accepting new jobs, lets outstanding jobs
// run to completion, then shuts down both halves of the control socket and
// joins every goroutine in the mesh. It returns the first error observed by
// either the Dispatcher or the wireReader, or nil on a clean shutdown.
func (d *Driver) Stop() error {
	d.disp.Stop()
	if err := d.conn.CloseWrite(); err != nil {
		d.log.Warn().Err(err).Msg("close control connection write half")
	}

	d.wg.Wait()
	d.metrics.Stop()
	d.pool.stop()

	if err := d.conn.Close(); err != nil {
		d.recordErr(fmt.Errorf("dispatch: close control connection: %w", err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Driver) recordErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}
