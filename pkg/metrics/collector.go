package metrics

import "time"

// Snapshotter reports a point-in-time count of in-flight artifact uploads.
// pkg/artifact.Tracker satisfies this interface; it is expressed here as a
// narrow interface so metrics does not import artifact.
type Snapshotter interface {
	InFlight() int
}

// Collector periodically samples a Snapshotter and republishes its state
// as gauge metrics, the same polling shape as a ticker-driven health monitor.
type Collector struct {
	tracker Snapshotter
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector over the given tracker.
func NewCollector(tracker Snapshotter) *Collector {
	return &Collector{
		tracker: tracker,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.tracker == nil {
		return
	}
	UploadsInFlight.Set(float64(c.tracker.InFlight()))
}
