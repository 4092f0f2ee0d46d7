/*
Package types defines the core data structures shared across the client
execution core: digests, job specifications and results, layer descriptions,
and the device/mount/environment value types the metadata engine folds.

# Core Types

Content addressing:
  - Digest: a 32-byte SHA-256 value with canonical lowercase-hex rendering
  - ArtifactType: tar vs generated manifest

Job identity and submission:
  - ClientJobID: session-local monotonic job identifier
  - JobSpec: the effective, fully-folded execution parameters for one job
  - ImageSpec, ImageUse: base-image inheritance for working dir/layers/env

Job execution parameters:
  - JobNetwork: disabled/loopback/local network policy
  - JobDevice, JobDeviceSet: device bitset (devices form a set, union on add)
  - JobMount, JobMountKind: ordered mount list (duplicates permitted)
  - EnvironmentLayer: one (vars, extend) layer in fold order

Job results:
  - JobResult, JobOutcome: completed/timed_out/execution_error/system_error
  - JobExitStatus, JobEffects, JobOutputResult: captured exit/output shape
  - JobStateCounts: broker stats-response payload

Layer construction:
  - LayerSpec, LayerKind: Tar/Paths/Glob/Stubs/Symlinks layer description
  - PrefixOptions: canonicalize/strip_prefix/prepend_prefix pipeline
  - SymlinkSpec: one link/target pair of a Symlinks layer

All value types here are immutable by convention — construct a new value
rather than mutating a shared one, since they cross goroutine boundaries
(Dispatcher, Artifact Pusher, Client Facade) without their own locking.
*/
package types
