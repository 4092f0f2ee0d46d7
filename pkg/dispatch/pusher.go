package dispatch

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/relay/pkg/artifact"
	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/metrics"
	"github.com/cuemby/relay/pkg/types"
	"github.com/cuemby/relay/pkg/wire"
)

// pushRequest is one TransferArtifact's worth of work handed from the
// Dispatcher to the pusher pool.
type pushRequest struct {
	digest types.Digest
	path   string
}

// Dialer opens a fresh connection to the broker for one artifact push. It is
// a function rather than a bare address so tests can substitute an in-memory
// pipe without a real listener.
type Dialer func() (io.ReadWriteCloser, error)

// pusherPool is a bounded set of worker goroutines, each independently
// dialing the broker, pushing one artifact end-to-end, and looping back for
// the next request. Workers share nothing but the request queue and the
// Upload Tracker.
type pusherPool struct {
	dial    Dialer
	queue   chan pushRequest
	tracker *artifact.Tracker
	workers int
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func newPusherPool(dial Dialer, workers int, tracker *artifact.Tracker) *pusherPool {
	if workers < 1 {
		workers = 1
	}
	return &pusherPool{
		dial:    dial,
		queue:   make(chan pushRequest, workers),
		tracker: tracker,
		workers: workers,
		log:     log.WithComponent("artifact_pusher"),
	}
}

func (p *pusherPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

// stop closes the queue and waits for every in-flight push to finish.
// Callers must not submit after calling stop.
func (p *pusherPool) stop() {
	close(p.queue)
	p.wg.Wait()
}

func (p *pusherPool) loop() {
	defer p.wg.Done()
	for req := range p.queue {
		if err := p.push(req); err != nil {
			p.log.Error().Err(err).Str("digest", req.digest.String()).Msg("artifact push failed")
			metrics.ArtifactsPushedTotal.WithLabelValues("failure").Inc()
			continue
		}
		metrics.ArtifactsPushedTotal.WithLabelValues("success").Inc()
	}
}

func (p *pusherPool) push(req pushRequest) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ArtifactPushDuration)

	f, err := os.Open(req.path)
	if err != nil {
		return fmt.Errorf("open artifact file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact file: %w", err)
	}
	size := info.Size()

	conn, err := p.dial()
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, wire.Hello{Role: wire.RoleArtifactPusher}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	if err := wire.WriteMessage(conn, wire.ArtifactHeader{Digest: req.digest.String(), Size: uint64(size)}); err != nil {
		return fmt.Errorf("send artifact header: %w", err)
	}

	name := req.digest.String()
	record := p.tracker.Begin(name, size)
	defer p.tracker.End(name)

	// The file may have grown or shrunk since Stat; pad short reads with
	// zero bytes and truncate long ones so exactly size bytes are always
	// sent, matching the header already written to the broker.
	body := io.LimitReader(io.MultiReader(f, zeroReader{}), size)
	n, err := io.Copy(progressWriter{w: conn, record: record}, body)
	if err != nil {
		return fmt.Errorf("stream artifact bytes: %w", err)
	}
	metrics.BytesUploadedTotal.Add(float64(n))

	var ack wire.ArtifactAck
	if err := wire.ReadMessage(conn, &ack); err != nil {
		return fmt.Errorf("read artifact ack: %w", err)
	}
	if ack.Error != "" {
		return fmt.Errorf("broker rejected artifact %s: %s", name, ack.Error)
	}
	return nil
}

// zeroReader yields an endless stream of zero bytes, used to pad a push
// whose file turned out shorter than the size already sent in the header.
type zeroReader struct{}

func (zeroReader) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = 0
	}
	return len(b), nil
}

// progressWriter advances an UploadRecord's byte counter as bytes are
// written, so a concurrent Snapshot observes live progress mid-push.
type progressWriter struct {
	w      io.Writer
	record *artifact.UploadRecord
}

func (p progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.record.AddBytes(int64(n))
	return n, err
}
