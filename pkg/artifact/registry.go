package artifact

import (
	"sync"

	"github.com/cuemby/relay/pkg/types"
)

// Registry is the Dispatcher-owned digest → local path map. Insert is
// idempotent: registering the same digest twice with the same path is a
// no-op, and per the spec's invariant a digest's path never changes for the
// lifetime of the session, so a second insert with a different path keeps
// the original.
type Registry struct {
	mu    sync.RWMutex
	paths map[types.Digest]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{paths: make(map[types.Digest]string)}
}

// Insert registers path for digest if not already present.
func (r *Registry) Insert(digest types.Digest, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.paths[digest]; ok {
		return
	}
	r.paths[digest] = path
}

// Lookup returns the path registered for digest, if any. Per protocol the
// broker only ever requests a digest that was previously registered; a
// caller receiving a TransferArtifact for an unregistered digest is a
// protocol violation and should treat ok == false as fatal.
func (r *Registry) Lookup(digest types.Digest) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.paths[digest]
	return path, ok
}
