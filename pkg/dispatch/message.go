package dispatch

import (
	"github.com/cuemby/relay/pkg/types"
	"github.com/cuemby/relay/pkg/wire"
)

// JobHandler is a single-shot callback invoked exactly once with a job's
// result. Ownership transfers to the Dispatcher at submission and is
// consumed on completion.
type JobHandler func(types.JobResult)

// message is the sum type of everything the Dispatcher's inbox accepts. Only
// one concrete type is ever set per message; the Dispatcher switches on the
// dynamic type in its receive loop.
type message interface {
	isMessage()
}

// brokerMessage wraps a frame the wireReader decoded off the control socket.
type brokerMessage struct {
	msg wire.BrokerToClient
}

func (brokerMessage) isMessage() {}

// addArtifactMessage registers path under digest in the Artifact Registry.
type addArtifactMessage struct {
	digest types.Digest
	path   string
}

func (addArtifactMessage) isMessage() {}

// addJobMessage submits spec for execution, transferring ownership of handler
// to the Dispatcher.
type addJobMessage struct {
	spec    types.JobSpec
	handler JobHandler
}

func (addJobMessage) isMessage() {}

// getStatsMessage requests job state counts from the broker; the result is
// delivered on reply when the matching StatsResponse arrives, in FIFO order
// with any other outstanding requests.
type getStatsMessage struct {
	reply chan<- types.JobStateCounts
}

func (getStatsMessage) isMessage() {}

// stopMessage asks the Dispatcher to drain: if no handlers are outstanding it
// terminates immediately, otherwise it terminates once the last one completes.
type stopMessage struct{}

func (stopMessage) isMessage() {}
