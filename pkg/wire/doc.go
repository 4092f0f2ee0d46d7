/*
Package wire implements the control and artifact-push framing between the
client and the broker: a 4-byte big-endian length prefix followed by a
goccy/go-json-encoded payload, plus the Hello greeting that distinguishes the
Client role connection from an ArtifactPusher role connection.

The spec leaves the exact framing unspecified ("length-prefixed opaque, not
specified here"); this package is the concrete realization chosen for this
implementation.
*/
package wire
