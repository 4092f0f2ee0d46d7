/*
Package digeststore persists the mapping from filesystem path to the last
SHA-256 digest computed for it, keyed additionally by the file's modification
time at the moment of computation. A lookup is a hit only when the current
mtime equals the recorded one; any other outcome — missing entry, changed
mtime, unreadable record — is reported as a miss rather than an error, per
the store's "corrupt or unknown-version contents are never an error"
contract.

Backed by go.etcd.io/bbolt, whose single-writer transaction model provides
the atomicity-with-respect-to-concurrent-readers the digest store requires
without a separate file lock.
*/
package digeststore
