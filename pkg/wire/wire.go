// Package wire implements the length-prefixed JSON framing used on both the
// persistent control socket and the per-artifact push connections.
//
// Every message on the wire is a 4-byte big-endian length prefix followed by
// that many bytes of goccy/go-json-encoded payload. There is no compression
// and no schema negotiation: the two connection roles (Client, ArtifactPusher)
// are distinguished by a Hello sent immediately after connect, matching the
// greeting the spec describes as "a one-byte-equivalent greeting".
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// MaxFrameSize bounds a single decoded frame to guard against a corrupt or
// hostile length prefix turning into an unbounded allocation.
const MaxFrameSize = 256 << 20 // 256 MiB

// Role identifies which of the two connection roles a Hello announces.
type Role string

const (
	RoleClient         Role = "client"
	RoleArtifactPusher Role = "artifact_pusher"
)

// Hello is the first message sent on any new connection to the broker.
type Hello struct {
	Role Role `json:"role"`
}

// ClientToBroker is the sum of messages the Dispatcher sends on the control
// socket. Exactly one of the pointer fields is set.
type ClientToBroker struct {
	JobRequest    *JobRequestMsg `json:"job_request,omitempty"`
	StatsRequest  *struct{}      `json:"stats_request,omitempty"`
}

// JobRequestMsg submits one job under a client-assigned id.
type JobRequestMsg struct {
	ClientJobID uint32      `json:"cjid"`
	Spec        interface{} `json:"spec"`
}

// BrokerToClient is the sum of messages the broker sends back on the control
// socket. Exactly one of the pointer fields is set.
type BrokerToClient struct {
	JobResponse      *JobResponseMsg      `json:"job_response,omitempty"`
	TransferArtifact *TransferArtifactMsg `json:"transfer_artifact,omitempty"`
	StatsResponse    *StatsResponseMsg    `json:"stats_response,omitempty"`
}

// JobResponseMsg carries one job's terminal result.
type JobResponseMsg struct {
	ClientJobID uint32      `json:"cjid"`
	Result      interface{} `json:"result"`
}

// TransferArtifactMsg asks the client to push a previously-registered digest.
type TransferArtifactMsg struct {
	Digest string `json:"digest"`
}

// StatsResponseMsg answers a pending StatsRequest.
type StatsResponseMsg struct {
	Counts map[string]int `json:"counts"`
}

// ArtifactHeader is sent after the Hello on an ArtifactPusher connection,
// immediately before the raw artifact bytes.
type ArtifactHeader struct {
	Digest string `json:"digest"`
	Size   uint64 `json:"size"`
}

// ArtifactAck is the broker's single reply on an ArtifactPusher connection.
type ArtifactAck struct {
	Error string `json:"error,omitempty"` // empty means success
}

// WriteMessage frames v as a length-prefixed JSON payload and writes it to w.
func WriteMessage(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encode message: %w", err)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON frame from r and decodes it into v.
// It returns io.EOF unchanged when the connection closes cleanly at a frame
// boundary, so callers can distinguish clean shutdown from a torn frame.
func ReadMessage(r io.Reader, v interface{}) error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("wire: truncated length prefix: %w", err)
		}
		return err
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])
	if size > MaxFrameSize {
		return fmt.Errorf("wire: frame size %d exceeds maximum %d", size, MaxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			// The prefix arrived but no payload did: a torn frame, not a clean close.
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("wire: read payload: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: decode message: %w", err)
	}
	return nil
}
