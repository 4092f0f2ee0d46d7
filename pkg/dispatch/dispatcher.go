package dispatch

import (
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cuemby/relay/pkg/artifact"
	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/metrics"
	"github.com/cuemby/relay/pkg/types"
	"github.com/cuemby/relay/pkg/wire"
)

// Dispatcher is the single writer of the control socket and the sole owner
// of everything keyed by client job id: the monotonic id counter, the
// Artifact Registry, the map of outstanding JobHandlers, and the FIFO of
// pending stats requests. Every other goroutine talks to it by sending on
// its inbox rather than touching this state directly.
type Dispatcher struct {
	conn     io.Writer
	registry *artifact.Registry
	pushQ    chan<- pushRequest
	inbox    chan message
	log      zerolog.Logger

	abort     chan struct{}
	abortOnce sync.Once
	closed    chan struct{}

	nextClientJobID uint32
	handlers        map[types.ClientJobID]JobHandler
	statsQueue      []chan<- types.JobStateCounts
	draining        bool

	// pushOverflow holds TransferArtifact requests that couldn't be handed
	// to pushQ immediately (all workers busy, queue full). Run retries the
	// head opportunistically without ever blocking on the send.
	pushOverflow []pushRequest
}

// NewDispatcher creates a Dispatcher that writes job requests and stats
// requests to conn and forwards artifact transfer requests to pushQ.
func NewDispatcher(conn io.Writer, registry *artifact.Registry, pushQ chan<- pushRequest) *Dispatcher {
	return &Dispatcher{
		conn:     conn,
		registry: registry,
		pushQ:    pushQ,
		inbox:    make(chan message),
		log:      log.WithComponent("dispatcher"),
		abort:    make(chan struct{}),
		closed:   make(chan struct{}),
		handlers: make(map[types.ClientJobID]JobHandler),
	}
}

// AddArtifact registers a locally-available artifact under digest. A no-op
// once Run has returned.
func (d *Dispatcher) AddArtifact(digest types.Digest, path string) {
	select {
	case d.inbox <- addArtifactMessage{digest: digest, path: path}:
	case <-d.closed:
	}
}

// AddJob submits spec for execution. handler is invoked exactly once with
// the job's terminal result: normally by the broker's response, synchronously
// with OutcomeSystemError if the Dispatcher is draining, or synchronously
// with OutcomeSystemError if Run has already returned.
func (d *Dispatcher) AddJob(spec types.JobSpec, handler JobHandler) {
	select {
	case d.inbox <- addJobMessage{spec: spec, handler: handler}:
	case <-d.closed:
		handler(types.JobResult{Outcome: types.OutcomeSystemError, ErrorMessage: "dispatcher has stopped"})
	}
}

// GetStats requests job state counts from the broker. The returned channel
// receives exactly one value and is then closed; it is closed immediately,
// with no value, if Run has already returned.
func (d *Dispatcher) GetStats() <-chan types.JobStateCounts {
	reply := make(chan types.JobStateCounts, 1)
	select {
	case d.inbox <- getStatsMessage{reply: reply}:
	case <-d.closed:
		close(reply)
	}
	return reply
}

// Stop asks the Dispatcher to drain and terminate. Already-outstanding jobs
// still run to completion; no new job is accepted afterward. A no-op once
// Run has already returned.
func (d *Dispatcher) Stop() {
	select {
	case d.inbox <- stopMessage{}:
	case <-d.closed:
	}
}

// Deliver forwards a frame the wireReader decoded off the control socket.
// Called only by the wireReader goroutine. A no-op once Run has returned.
func (d *Dispatcher) Deliver(msg wire.BrokerToClient) {
	select {
	case d.inbox <- brokerMessage{msg: msg}:
	case <-d.closed:
	}
}

// Abort forces Run to return immediately instead of waiting on the inbox,
// used when the control connection becomes unusable out from under it (for
// example the wireReader hitting an I/O error with jobs still outstanding).
// Safe to call more than once and after Run has already returned.
func (d *Dispatcher) Abort() {
	d.abortOnce.Do(func() { close(d.abort) })
}

// Run is the Dispatcher's single goroutine. It returns nil on a clean,
// fully-drained shutdown and a non-nil error on any protocol violation,
// write failure, or Abort call, at which point the Driver tears down the
// rest of the mesh.
func (d *Dispatcher) Run() error {
	defer close(d.closed)
	for {
		// Offer the head of the push overflow queue to pushQ only when
		// there is one; a nil channel is never selected, so this never
		// blocks the loop when pushQ has no room or overflow is empty.
		var sendQ chan<- pushRequest
		var head pushRequest
		if len(d.pushOverflow) > 0 {
			sendQ = d.pushQ
			head = d.pushOverflow[0]
		}

		select {
		case msg := <-d.inbox:
			done, err := d.handle(msg)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		case <-d.abort:
			return fmt.Errorf("dispatch: control connection terminated with %d job(s) still outstanding", len(d.handlers))
		case sendQ <- head:
			d.pushOverflow = d.pushOverflow[1:]
		}
	}
}

func (d *Dispatcher) handle(msg message) (done bool, err error) {
	switch m := msg.(type) {
	case brokerMessage:
		return d.handleBroker(m.msg)
	case addArtifactMessage:
		d.registry.Insert(m.digest, m.path)
		return false, nil
	case addJobMessage:
		return false, d.handleAddJob(m)
	case getStatsMessage:
		return false, d.handleGetStats(m)
	case stopMessage:
		d.draining = true
		d.log.Info().Int("outstanding", len(d.handlers)).Msg("draining")
		return len(d.handlers) == 0, nil
	default:
		return false, fmt.Errorf("dispatch: unknown message type %T", msg)
	}
}

func (d *Dispatcher) handleAddJob(m addJobMessage) error {
	if d.draining {
		m.handler(types.JobResult{
			Outcome:      types.OutcomeSystemError,
			ErrorMessage: "dispatcher is no longer accepting jobs",
		})
		return nil
	}

	id := types.ClientJobID(d.nextClientJobID)
	d.nextClientJobID++
	if d.nextClientJobID == 0 {
		return fmt.Errorf("dispatch: client job id counter wrapped around")
	}
	d.handlers[id] = m.handler

	err := wire.WriteMessage(d.conn, wire.ClientToBroker{
		JobRequest: &wire.JobRequestMsg{ClientJobID: uint32(id), Spec: m.spec},
	})
	if err != nil {
		delete(d.handlers, id)
		return fmt.Errorf("dispatch: send job request: %w", err)
	}
	metrics.JobsSubmittedTotal.Inc()
	return nil
}

func (d *Dispatcher) handleGetStats(m getStatsMessage) error {
	if err := wire.WriteMessage(d.conn, wire.ClientToBroker{StatsRequest: &struct{}{}}); err != nil {
		close(m.reply)
		return fmt.Errorf("dispatch: send stats request: %w", err)
	}
	d.statsQueue = append(d.statsQueue, m.reply)
	return nil
}

func (d *Dispatcher) handleBroker(msg wire.BrokerToClient) (done bool, err error) {
	switch {
	case msg.JobResponse != nil:
		return d.handleJobResponse(msg.JobResponse)
	case msg.TransferArtifact != nil:
		return false, d.handleTransferArtifact(msg.TransferArtifact)
	case msg.StatsResponse != nil:
		return false, d.handleStatsResponse(msg.StatsResponse)
	default:
		return false, fmt.Errorf("dispatch: broker message carries no known variant")
	}
}

func (d *Dispatcher) handleJobResponse(m *wire.JobResponseMsg) (done bool, err error) {
	id := types.ClientJobID(m.ClientJobID)
	handler, ok := d.handlers[id]
	if !ok {
		return false, fmt.Errorf("dispatch: job response for unknown client job id %d", id)
	}
	delete(d.handlers, id)

	result, err := decodeJobResult(m.Result)
	if err != nil {
		return false, fmt.Errorf("dispatch: decode job result for client job id %d: %w", id, err)
	}

	metrics.JobsCompletedTotal.WithLabelValues(string(result.Outcome)).Inc()
	handler(result)

	return d.draining && len(d.handlers) == 0, nil
}

func (d *Dispatcher) handleTransferArtifact(m *wire.TransferArtifactMsg) error {
	digest, err := types.ParseDigest(m.Digest)
	if err != nil {
		return fmt.Errorf("dispatch: transfer_artifact: %w", err)
	}
	path, ok := d.registry.Lookup(digest)
	if !ok {
		return fmt.Errorf("dispatch: transfer_artifact for unregistered digest %s", digest)
	}
	// Never send to pushQ here: a full queue would block this single
	// goroutine. Run's select opportunistically drains pushOverflow instead.
	d.pushOverflow = append(d.pushOverflow, pushRequest{digest: digest, path: path})
	return nil
}

func (d *Dispatcher) handleStatsResponse(m *wire.StatsResponseMsg) error {
	if len(d.statsQueue) == 0 {
		return fmt.Errorf("dispatch: stats_response with no outstanding request")
	}
	reply := d.statsQueue[0]
	d.statsQueue = d.statsQueue[1:]
	reply <- types.JobStateCounts(m.Counts)
	close(reply)
	return nil
}

func decodeJobResult(raw interface{}) (types.JobResult, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return types.JobResult{}, err
	}
	var result types.JobResult
	if err := json.Unmarshal(buf, &result); err != nil {
		return types.JobResult{}, err
	}
	return result, nil
}
