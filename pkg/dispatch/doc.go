// Package dispatch implements the client-side concurrency mesh that keeps
// one persistent control socket open to the broker: a Dispatcher holding all
// mutable session state, a wireReader that is the control socket's sole
// reader, a bounded pusherPool that streams artifact bytes on their own
// short-lived connections, and a Driver that owns the lifecycle of all
// three.
//
// Every cross-goroutine interaction funnels through the Dispatcher's inbox
// channel rather than shared mutable state, so the Dispatcher's own methods
// never take a lock: only one goroutine (Run) ever reads nextClientJobID,
// the handler map, or the stats queue. The wireReader and the Client Facade
// are producers; the Dispatcher is the only consumer.
package dispatch
