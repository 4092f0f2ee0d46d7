/*
Package artifact implements the Artifact Registry, the Upload Tracker, and
manifest construction for the four non-tar layer kinds (Paths, Glob, Stubs,
Symlinks).

Registry is the Dispatcher-owned digest → path map: idempotent Insert,
infallible Lookup. Tracker is the Upload Tracker: Begin/End/Snapshot over a
short-held mutex plus per-record atomic byte counters, so a Snapshot never
blocks an in-flight push.

Manifest construction walks doublestar glob patterns or explicit path lists,
runs each entry through the canonicalize → strip_prefix → prepend_prefix
pipeline (ApplyPrefixOptions), and stamps every entry with a fixed sentinel
modification time so that manifests built from identical inputs are
byte-identical across runs. A manifest's filename is the SHA-256 of its
concatenated input paths (ManifestName), independent of the digest of its
serialized contents, so repeated construction from the same inputs reuses
the same on-disk name.
*/
package artifact
