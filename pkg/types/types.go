package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Digest is a SHA-256 content hash, compared and hashed on its raw bytes.
type Digest [sha256.Size]byte

// ErrInvalidDigest is returned when a digest string is not 64 hex characters.
var ErrInvalidDigest = errors.New("invalid digest: expected 64 hex characters")

// ParseDigest decodes a canonical lowercase-hex digest string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != hex.EncodedLen(len(d)) {
		return d, ErrInvalidDigest
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	copy(d[:], b)
	return d, nil
}

// DigestOf hashes the given bytes and returns their Digest.
func DigestOf(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// String renders the digest as canonical lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsZero reports whether the digest is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ClientJobID is a session-local, monotonically-assigned job identifier.
// The Dispatcher owns the counter; wraparound is a fatal protocol error.
type ClientJobID uint32

// ArtifactType distinguishes how an artifact's bytes were produced.
type ArtifactType string

const (
	// ArtifactTar is a caller-supplied tar archive, added as-is.
	ArtifactTar ArtifactType = "tar"
	// ArtifactManifest is a generated manifest file (Paths/Glob/Stubs/Symlinks layers).
	ArtifactManifest ArtifactType = "manifest"
)

// UserID is a numeric Unix user id for the job's execution user.
type UserID uint32

// GroupID is a numeric Unix group id for the job's execution user.
type GroupID uint32

// Timeout is the wall-clock budget for a job; zero means "none".
type Timeout time.Duration

// JobNetwork selects the job's network namespace policy.
type JobNetwork string

const (
	JobNetworkDisabled JobNetwork = "disabled"
	JobNetworkLoopback JobNetwork = "loopback"
	JobNetworkLocal    JobNetwork = "local"
)

// JobDevice is a device made available inside the job's root filesystem.
// Devices form a set: JobDeviceSet deduplicates via a bit per device kind.
type JobDevice uint8

const (
	JobDeviceFull JobDevice = 1 << iota
	JobDeviceFuse
	JobDeviceNull
	JobDeviceRandom
	JobDeviceShm
	JobDeviceTty
	JobDeviceURandom
	JobDeviceZero
)

// JobDeviceSet is a union of JobDevice bits.
type JobDeviceSet uint8

// With returns the set with d added.
func (s JobDeviceSet) With(d JobDevice) JobDeviceSet {
	return s | JobDeviceSet(d)
}

// Union returns the union of two device sets.
func (s JobDeviceSet) Union(other JobDeviceSet) JobDeviceSet {
	return s | other
}

// Has reports whether d is present in the set.
func (s JobDeviceSet) Has(d JobDevice) bool {
	return s&JobDeviceSet(d) != 0
}

// JobMountKind identifies the kind of a JobMount.
type JobMountKind string

const (
	MountTmp  JobMountKind = "tmp"
	MountProc JobMountKind = "proc"
	MountSys  JobMountKind = "sys"
	MountBind JobMountKind = "bind"
)

// JobMount describes one filesystem mount inside the job's root. Mounts are
// an ordered list and duplicates are permitted, so JobMount is a value type,
// not deduplicated by the metadata fold.
type JobMount struct {
	Kind JobMountKind `json:"kind"`
	Path string       `json:"path"`

	// BindSource and BindReadOnly apply only when Kind == MountBind.
	BindSource   string `json:"bind_source,omitempty"`
	BindReadOnly bool   `json:"bind_read_only,omitempty"`
}

// EnvironmentLayer is one layer of the job's environment, in fold order.
// Extend indicates the layer was contributed by added_environment and should
// be interpreted against strictly earlier layers (so "$prev{VAR}" resolves).
type EnvironmentLayer struct {
	Vars   map[string]string `json:"vars"`
	Extend bool              `json:"extend"`
}

// ImageUse enumerates which fields a job delegates to its base image.
type ImageUse struct {
	WorkingDirectory bool `json:"working_directory"`
	Layers           bool `json:"layers"`
	Environment      bool `json:"environment"`
}

// ImageSpec identifies a base image a job may inherit fields from.
type ImageSpec struct {
	Name string   `json:"name"`
	Tag  string   `json:"tag"`
	Use  ImageUse `json:"use"`
}

// JobSpec is the effective, fully-folded set of execution parameters for one job.
type JobSpec struct {
	Program   string   `json:"program"`
	Arguments []string `json:"arguments"`

	Network                  JobNetwork `json:"network"`
	EnableWritableFileSystem bool       `json:"enable_writable_file_system"`
	WorkingDirectory         string     `json:"working_directory"` // empty when delegated to Image
	User                     UserID     `json:"user"`
	Group                    GroupID    `json:"group"`
	Timeout                  Timeout    `json:"timeout"`
	IncludeSharedLibraries   bool       `json:"include_shared_libraries"`

	Layers      []Digest           `json:"layers"` // empty when delegated to Image
	Environment []EnvironmentLayer `json:"environment"`
	Mounts      []JobMount         `json:"mounts"`
	Devices     JobDeviceSet       `json:"devices"`

	Image *ImageSpec `json:"image,omitempty"`
}

// JobExitStatus is the terminal status of a job that ran to completion.
type JobExitStatus struct {
	Exited   bool  `json:"exited"`
	Signaled bool  `json:"signaled"`
	Code     uint8 `json:"code"` // exit code, or signal number when Signaled
}

// JobOutputKind distinguishes the three shapes an output stream may take.
type JobOutputKind string

const (
	OutputNone      JobOutputKind = "none"
	OutputInline    JobOutputKind = "inline"
	OutputTruncated JobOutputKind = "truncated"
)

// JobOutputResult is one of stdout/stderr's possible captured shapes.
type JobOutputResult struct {
	Kind           JobOutputKind `json:"kind"`
	Inline         []byte        `json:"inline,omitempty"`          // set when Kind == OutputInline
	TruncatedFirst []byte        `json:"truncated_first,omitempty"` // set when Kind == OutputTruncated
	TruncatedCount uint64        `json:"truncated_count,omitempty"` // bytes dropped beyond TruncatedFirst
}

// JobEffects carries a completed or timed-out job's captured output and duration.
type JobEffects struct {
	Stdout   JobOutputResult `json:"stdout"`
	Stderr   JobOutputResult `json:"stderr"`
	Duration time.Duration   `json:"duration"`
}

// JobOutcome distinguishes the four shapes a JobResult may take.
type JobOutcome string

const (
	OutcomeCompleted      JobOutcome = "completed"
	OutcomeTimedOut       JobOutcome = "timed_out"
	OutcomeExecutionError JobOutcome = "execution_error"
	OutcomeSystemError    JobOutcome = "system_error"
)

// JobResult is the broker's terminal answer for one submitted job.
type JobResult struct {
	Outcome JobOutcome `json:"outcome"`

	Status  JobExitStatus `json:"status"`  // set when Outcome == OutcomeCompleted
	Effects JobEffects    `json:"effects"` // set when Outcome ∈ {Completed, TimedOut}

	ErrorMessage string `json:"error_message,omitempty"` // set when Outcome ∈ {ExecutionError, SystemError}
}

// JobStateCounts is the broker's answer to a stats request: the number of
// in-flight jobs in each broker-side scheduling state.
type JobStateCounts map[string]int
