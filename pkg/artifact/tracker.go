package artifact

import (
	"sync"
	"sync/atomic"
)

// UploadRecord is a single in-flight upload's observable progress.
type UploadRecord struct {
	Name  string
	Size  int64
	bytes atomic.Int64
}

// Bytes returns the current bytes-transferred count. Safe to call
// concurrently with AddBytes from any goroutine.
func (r *UploadRecord) Bytes() int64 {
	return r.bytes.Load()
}

// AddBytes advances the transferred-bytes counter by n.
func (r *UploadRecord) AddBytes(n int64) {
	r.bytes.Add(n)
}

// UploadSnapshot is one record's state at the moment snapshot() was taken.
type UploadSnapshot struct {
	Name  string
	Size  int64
	Bytes int64
}

// Tracker is the Upload Tracker: a short-held-mutex map of in-flight upload
// records, each with its own atomic byte counter so a Snapshot may observe
// any interleaving of concurrent pushes without blocking them.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*UploadRecord
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*UploadRecord)}
}

// Begin creates and registers an upload record just before a push starts.
func (t *Tracker) Begin(name string, size int64) *UploadRecord {
	record := &UploadRecord{Name: name, Size: size}
	t.mu.Lock()
	t.records[name] = record
	t.mu.Unlock()
	return record
}

// End removes name's record once the broker has acknowledged success.
// Removal on error is not required by the spec; callers may leave a stale
// record in place.
func (t *Tracker) End(name string) {
	t.mu.Lock()
	delete(t.records, name)
	t.mu.Unlock()
}

// Snapshot returns a consistent point-in-time list of in-flight uploads.
func (t *Tracker) Snapshot() []UploadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]UploadSnapshot, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, UploadSnapshot{
			Name:  r.Name,
			Size:  r.Size,
			Bytes: r.Bytes(),
		})
	}
	return out
}

// InFlight reports the number of currently-tracked uploads. It satisfies
// pkg/metrics.Snapshotter.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
