package metadata

import (
	"github.com/cuemby/relay/pkg/types"
)

// WorkingDirectiveKind discriminates the three shapes a directive's working
// directory field can take: not supplied, an explicit path, or delegated to
// the active image.
type WorkingDirectiveKind int

const (
	WorkingDirectiveAbsent WorkingDirectiveKind = iota
	WorkingDirectiveExplicit
	WorkingDirectiveImage
)

// WorkingDirective is the directive-level working_directory field.
type WorkingDirective struct {
	Kind WorkingDirectiveKind
	Path string // meaningful only when Kind == WorkingDirectiveExplicit
}

// LayersDirectiveKind discriminates the three shapes a directive's layers
// field can take.
type LayersDirectiveKind int

const (
	LayersDirectiveAbsent LayersDirectiveKind = iota
	LayersDirectiveExplicit
	LayersDirectiveImage
)

// LayersDirective is the directive-level layers field.
type LayersDirective struct {
	Kind   LayersDirectiveKind
	Layers []types.Digest // meaningful only when Kind == LayersDirectiveExplicit
}

// EnvironmentDirectiveKind discriminates the three shapes a directive's
// environment field can take.
type EnvironmentDirectiveKind int

const (
	EnvironmentDirectiveAbsent EnvironmentDirectiveKind = iota
	EnvironmentDirectiveExplicit
	EnvironmentDirectiveImage
)

// EnvironmentDirective is the directive-level environment field.
type EnvironmentDirective struct {
	Kind EnvironmentDirectiveKind
	Vars map[string]string // meaningful only when Kind == EnvironmentDirectiveExplicit
}

// ImageDirective names a base image and which fields to delegate to it.
type ImageDirective struct {
	Name string
	Tag  string // defaults to "latest" if empty when parsed
	Use  []string
}

// Directive is one rule in a directive list: an optional filter predicate
// plus optional overrides and additions for every job execution parameter.
// Every non-additive field is a pointer (or sum type) so that "not supplied"
// is distinguishable from the zero value.
type Directive struct {
	Filter string // empty string means "no filter" (always matches)

	Image *ImageDirective

	Network                  *types.JobNetwork
	EnableWritableFileSystem *bool
	WorkingDirectory         WorkingDirective
	User                     *types.UserID
	Group                    *types.GroupID
	Timeout                  *types.Timeout
	IncludeSharedLibraries   *bool

	Layers      LayersDirective
	AddedLayers []types.Digest

	Environment      EnvironmentDirective
	AddedEnvironment map[string]string

	Mounts      []types.JobMount // nil means "not supplied"
	MountsSet   bool             // distinguishes nil-meaning-absent from an explicit empty list
	AddedMounts []types.JobMount

	Devices      *types.JobDeviceSet
	AddedDevices types.JobDeviceSet
}
