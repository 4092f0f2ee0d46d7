/*
Package client provides the Client Facade: the single entry point an
embedding program or CLI uses to submit work to a broker.

A Client owns one control connection and the dispatch mesh built on top of
it (see package dispatch for the Dispatcher/wireReader/pusherPool/Driver
machinery). The facade adds two things the mesh itself has no opinion
about:

  - Digest memoization: AddArtifact consults the digest store (package
    digeststore) before re-hashing a file, keyed on path and modification
    time, so re-runs over an unchanged tree skip the SHA-256 pass entirely.

  - Layer translation: AddLayer turns any of the five LayerSpec kinds into
    a registered artifact. Tar layers go straight to AddArtifact; the other
    four (paths, glob, stubs, symlinks) are first built into an in-memory
    Manifest (package artifact), serialized to a reproducibly-named file
    under the cache directory, and registered from there. Structurally
    identical LayerSpec values - compared by their JSON encoding, not by
    identity - return the same digest without rebuilding.

# Usage

	c, err := client.New(client.Options{
		BrokerAddr: "127.0.0.1:7330",
		CacheDir:   "/var/cache/relay",
	})
	if err != nil {
		log.Fatal(err)
	}

	layer, err := c.AddLayer(types.LayerSpec{Kind: types.LayerTar, Path: "rootfs.tar"})
	c.AddJob(types.JobSpec{Program: "/bin/echo", Layers: []types.Digest{layer}}, func(r types.JobResult) {
		fmt.Println(r.Outcome)
	})

	c.StopAccepting()
	if err := c.WaitForOutstanding(); err != nil {
		log.Fatal(err)
	}

AddJob is fire-and-forget: it returns immediately, and the handler runs
later, exactly once, when the broker's result arrives. Concurrent callers
may submit jobs from multiple goroutines. StopAccepting then
WaitForOutstanding is the drain-then-close shutdown sequence: jobs
submitted before StopAccepting are allowed to finish, the dispatch mesh
and control connection are torn down only once every handler has run.
*/
package client
