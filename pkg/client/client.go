package client

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cuemby/relay/pkg/artifact"
	"github.com/cuemby/relay/pkg/digeststore"
	"github.com/cuemby/relay/pkg/dispatch"
	"github.com/cuemby/relay/pkg/log"
	"github.com/cuemby/relay/pkg/metrics"
	"github.com/cuemby/relay/pkg/types"
)

// Options configures a Client.
type Options struct {
	// BrokerAddr is the broker's control socket address, e.g. "127.0.0.1:7330".
	BrokerAddr string
	// CacheDir holds the digest store database and generated manifest files.
	// Created if absent. Empty means "current directory".
	CacheDir string
	// PushWorkers bounds how many artifact pushes run concurrently. Defaults to 4.
	PushWorkers int
}

// Client is the facade a CLI or embedding program uses: it owns the
// control connection and the dispatch mesh behind it, and adds digest
// memoization and layer-to-artifact translation on top.
type Client struct {
	opts    Options
	conn    *net.TCPConn
	driver  *dispatch.Driver
	digests *digeststore.Store
	log     zerolog.Logger

	layerMu    sync.Mutex
	layerCache map[string]types.Digest

	wg sync.WaitGroup
}

// New dials the broker, opens the digest store, and starts the dispatch mesh.
func New(opts Options) (*Client, error) {
	if opts.PushWorkers < 1 {
		opts.PushWorkers = 4
	}

	conn, err := net.Dial("tcp", opts.BrokerAddr)
	if err != nil {
		return nil, fmt.Errorf("client: dial broker %s: %w", opts.BrokerAddr, err)
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("client: connection to %s is not TCP", opts.BrokerAddr)
	}

	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
			tcpConn.Close()
			return nil, fmt.Errorf("client: create cache dir %s: %w", opts.CacheDir, err)
		}
	}
	digests, err := digeststore.Open(filepath.Join(opts.CacheDir, "digests.db"))
	if err != nil {
		tcpConn.Close()
		return nil, err
	}

	driver, err := dispatch.NewDriver(dispatch.Options{
		ControlConn:  tcpConn,
		ArtifactDial: func() (io.ReadWriteCloser, error) { return net.Dial("tcp", opts.BrokerAddr) },
		PushWorkers:  opts.PushWorkers,
	})
	if err != nil {
		tcpConn.Close()
		digests.Close()
		return nil, err
	}
	driver.Start()

	return &Client{
		opts:       opts,
		conn:       tcpConn,
		driver:     driver,
		digests:    digests,
		log:        log.WithComponent("client"),
		layerCache: make(map[string]types.Digest),
	}, nil
}

// AddArtifact registers path (already on disk) as an artifact of the given
// kind, hashing it only if the digest store doesn't already have a fresh
// entry for its current modification time. path is canonicalized first so
// that two relative paths resolving to the same file share one digest-store
// and registry entry.
func (c *Client) AddArtifact(rawPath string, kind types.ArtifactType) (types.Digest, error) {
	path, err := canonicalizePath(rawPath)
	if err != nil {
		return types.Digest{}, fmt.Errorf("client: canonicalize artifact path %s: %w", rawPath, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.Digest{}, fmt.Errorf("client: stat artifact %s: %w", path, err)
	}
	mtime := info.ModTime()

	digest, ok, err := c.digests.Get(path, mtime)
	if err != nil {
		return types.Digest{}, fmt.Errorf("client: digest store lookup for %s: %w", path, err)
	}
	if ok {
		metrics.DigestStoreLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.DigestStoreLookupsTotal.WithLabelValues("miss").Inc()
		digest, err = hashFile(path)
		if err != nil {
			return types.Digest{}, err
		}
		if err := c.digests.Add(path, mtime, digest); err != nil {
			return types.Digest{}, fmt.Errorf("client: digest store write for %s: %w", path, err)
		}
	}

	c.driver.Dispatcher().AddArtifact(digest, path)
	c.log.Debug().Str("path", path).Str("kind", string(kind)).Str("digest", digest.String()).Msg("artifact registered")
	return digest, nil
}

// canonicalizePath resolves path to an absolute, symlink-free form so the
// digest store and Artifact Registry key on the file itself rather than on
// whichever relative spelling the caller happened to use.
func canonicalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func hashFile(path string) (types.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Digest{}, fmt.Errorf("client: open artifact %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return types.Digest{}, fmt.Errorf("client: hash artifact %s: %w", path, err)
	}
	var digest types.Digest
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// AddLayer resolves a LayerSpec to a registered artifact digest, building and
// caching a manifest file for non-tar layer kinds. Identical specs (compared
// structurally, not by identity) return the same digest without rebuilding.
func (c *Client) AddLayer(spec types.LayerSpec) (types.Digest, error) {
	key, err := json.Marshal(spec)
	if err != nil {
		return types.Digest{}, fmt.Errorf("client: encode layer spec: %w", err)
	}

	c.layerMu.Lock()
	if digest, ok := c.layerCache[string(key)]; ok {
		c.layerMu.Unlock()
		return digest, nil
	}
	c.layerMu.Unlock()

	digest, err := c.buildLayer(spec)
	if err != nil {
		return types.Digest{}, err
	}

	c.layerMu.Lock()
	c.layerCache[string(key)] = digest
	c.layerMu.Unlock()
	return digest, nil
}

func (c *Client) buildLayer(spec types.LayerSpec) (types.Digest, error) {
	switch spec.Kind {
	case types.LayerTar:
		return c.AddArtifact(spec.Path, types.ArtifactTar)

	case types.LayerPaths:
		manifest, err := artifact.BuildPathsManifest(spec.Paths, spec.Prefix)
		if err != nil {
			return types.Digest{}, fmt.Errorf("client: build paths manifest: %w", err)
		}
		return c.addManifestLayer(manifest, spec.Paths)

	case types.LayerGlob:
		manifest, err := artifact.BuildGlobManifest(spec.Pattern, spec.Prefix)
		if err != nil {
			return types.Digest{}, fmt.Errorf("client: build glob manifest: %w", err)
		}
		return c.addManifestLayer(manifest, []string{spec.Pattern})

	case types.LayerStubs:
		manifest, err := artifact.BuildStubManifest(spec.Stubs)
		if err != nil {
			return types.Digest{}, fmt.Errorf("client: build stub manifest: %w", err)
		}
		return c.addManifestLayer(manifest, spec.Stubs)

	case types.LayerSymlinks:
		manifest, err := artifact.BuildSymlinkManifest(spec.Symlinks)
		if err != nil {
			return types.Digest{}, fmt.Errorf("client: build symlink manifest: %w", err)
		}
		inputs := make([]string, 0, len(spec.Symlinks))
		for _, s := range spec.Symlinks {
			inputs = append(inputs, s.Link+"->"+s.Target)
		}
		return c.addManifestLayer(manifest, inputs)

	default:
		return types.Digest{}, fmt.Errorf("client: unknown layer kind %q", spec.Kind)
	}
}

// addManifestLayer writes manifest to a cache-dir file named after its input
// set (skipping the write if that file already exists, so repeated builds
// from the same inputs don't re-serialize) and registers it as an artifact.
func (c *Client) addManifestLayer(manifest *artifact.Manifest, inputs []string) (types.Digest, error) {
	name := artifact.ManifestName(inputs)
	path := filepath.Join(c.opts.CacheDir, name)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		buf, err := json.Marshal(manifest)
		if err != nil {
			return types.Digest{}, fmt.Errorf("client: encode manifest %s: %w", name, err)
		}
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			return types.Digest{}, fmt.Errorf("client: write manifest %s: %w", name, err)
		}
	} else if err != nil {
		return types.Digest{}, fmt.Errorf("client: stat manifest %s: %w", name, err)
	}

	return c.AddArtifact(path, types.ArtifactManifest)
}

// AddJob submits spec for execution and returns immediately; handler is
// invoked exactly once, from the dispatch mesh's goroutine, when the broker
// returns a terminal result. A submission never fails synchronously: a
// Dispatcher that can no longer accept work invokes handler immediately with
// OutcomeSystemError instead of returning an error here. Call
// WaitForOutstanding to block until every handler submitted before
// StopAccepting has run.
func (c *Client) AddJob(spec types.JobSpec, handler dispatch.JobHandler) {
	c.wg.Add(1)
	c.driver.Dispatcher().AddJob(spec, func(r types.JobResult) {
		defer c.wg.Done()
		handler(r)
	})
}

// GetJobStateCounts asks the broker for the current in-flight job state counts.
func (c *Client) GetJobStateCounts() (types.JobStateCounts, error) {
	counts, ok := <-c.driver.Dispatcher().GetStats()
	if !ok {
		return nil, fmt.Errorf("client: dispatcher is no longer accepting requests")
	}
	return counts, nil
}

// ArtifactUploadProgress reports every artifact push currently in flight.
func (c *Client) ArtifactUploadProgress() []artifact.UploadSnapshot {
	return c.driver.Tracker().Snapshot()
}

// StopAccepting tells the dispatcher to reject any AddJob submitted after
// this call; jobs already submitted still run to completion.
func (c *Client) StopAccepting() {
	c.driver.Dispatcher().Stop()
}

// WaitForOutstanding blocks until every AddJob call made before StopAccepting
// returns, then tears down the control connection and the dispatch mesh.
// Call StopAccepting first; calling WaitForOutstanding alone will wait
// forever if new jobs keep being submitted concurrently.
func (c *Client) WaitForOutstanding() error {
	c.wg.Wait()
	driverErr := c.driver.Stop()
	if err := c.digests.Close(); err != nil && driverErr == nil {
		return fmt.Errorf("client: close digest store: %w", err)
	}
	return driverErr
}
