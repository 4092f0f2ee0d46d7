package metadata

import (
	"fmt"
	"strings"

	"github.com/cuemby/relay/pkg/metrics"
	"github.com/cuemby/relay/pkg/pattern"
	"github.com/cuemby/relay/pkg/types"
)

// DefaultMetadata is the fold's starting point before any directive is
// applied. Folding an empty directive list against any context yields this
// value unchanged.
func DefaultMetadata() types.JobSpec {
	return types.JobSpec{
		Network:                JobNetworkDefault,
		WorkingDirectory:       "/",
		User:                   0,
		Group:                  0,
		Timeout:                0,
		IncludeSharedLibraries: true,
		Mounts: []types.JobMount{
			{Kind: types.MountTmp, Path: "/tmp"},
			{Kind: types.MountProc, Path: "/proc"},
		},
	}
}

// JobNetworkDefault is the network policy new jobs start from.
const JobNetworkDefault = types.JobNetworkDisabled

// FilterRetains reports whether a directive with the given filter expression
// is retained for ctx: absent filters always match; a filter evaluating to
// Undef is treated as non-matching, per the conservative policy the spec
// mandates for the pattern matcher.
func FilterRetains(filter string, ctx pattern.Context) (bool, error) {
	if strings.TrimSpace(filter) == "" {
		return true, nil
	}
	verdict, err := pattern.Match(filter, ctx)
	if err != nil {
		return false, fmt.Errorf("metadata: evaluate filter %q: %w", filter, err)
	}
	return verdict == pattern.True, nil
}

// Fold folds the retained subset of directives, in order, starting from
// DefaultMetadata, into an effective JobSpec for ctx.
func Fold(directives []Directive, ctx pattern.Context) (types.JobSpec, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MetadataFoldDuration)

	spec := DefaultMetadata()

	for i, d := range directives {
		retained, err := FilterRetains(d.Filter, ctx)
		if err != nil {
			return types.JobSpec{}, err
		}
		if !retained {
			continue
		}
		if err := applyDirective(&spec, d); err != nil {
			return types.JobSpec{}, fmt.Errorf("metadata: directive %d: %w", i, err)
		}
	}

	return spec, nil
}

func applyDirective(spec *types.JobSpec, d Directive) error {
	// 1. Image: parsed and replaces the active image before any
	// image-inheritance field in this same directive is processed.
	// "= image" inheritance below is checked against d.Image, this
	// directive's own image field, not spec.Image: an earlier directive's
	// image does not license a later, image-less directive to inherit from it.
	if d.Image != nil {
		tag := d.Image.Tag
		if tag == "" {
			tag = "latest"
		}
		spec.Image = &types.ImageSpec{Name: d.Image.Name, Tag: tag}
		for _, use := range d.Image.Use {
			switch use {
			case "working_directory":
				spec.Image.Use.WorkingDirectory = true
				spec.WorkingDirectory = ""
			case "layers":
				spec.Image.Use.Layers = true
				spec.Layers = nil
			case "environment":
				spec.Image.Use.Environment = true
			default:
				return fmt.Errorf("image.use: unknown field %q", use)
			}
		}
	}

	// 2. Plain scalars: replace if supplied, else carry.
	if d.Network != nil {
		spec.Network = *d.Network
	}
	if d.EnableWritableFileSystem != nil {
		spec.EnableWritableFileSystem = *d.EnableWritableFileSystem
	}
	if d.User != nil {
		spec.User = *d.User
	}
	if d.Group != nil {
		spec.Group = *d.Group
	}
	if d.Timeout != nil {
		spec.Timeout = *d.Timeout
	}
	if d.IncludeSharedLibraries != nil {
		spec.IncludeSharedLibraries = *d.IncludeSharedLibraries
	}

	// 3. Working directory.
	switch d.WorkingDirectory.Kind {
	case WorkingDirectiveExplicit:
		spec.WorkingDirectory = d.WorkingDirectory.Path
		if spec.Image != nil {
			spec.Image.Use.WorkingDirectory = false
		}
	case WorkingDirectiveImage:
		if d.Image == nil {
			return fmt.Errorf("working_directory = image requires this directive to also set an image")
		}
		spec.Image.Use.WorkingDirectory = true
		spec.WorkingDirectory = ""
	case WorkingDirectiveAbsent:
		// Carry.
	}

	// 4. Layers (explicit/image), then added_layers.
	switch d.Layers.Kind {
	case LayersDirectiveExplicit:
		spec.Layers = append([]types.Digest(nil), d.Layers.Layers...)
		if spec.Image != nil {
			spec.Image.Use.Layers = false
		}
	case LayersDirectiveImage:
		if d.Image == nil {
			return fmt.Errorf("layers = image requires this directive to also set an image")
		}
		spec.Image.Use.Layers = true
		spec.Layers = nil
	case LayersDirectiveAbsent:
		// Carry.
	}
	if len(d.AddedLayers) > 0 {
		spec.Layers = append(spec.Layers, d.AddedLayers...)
	}

	// 5. Environment (explicit/image), then added_environment.
	switch d.Environment.Kind {
	case EnvironmentDirectiveExplicit:
		spec.Environment = append(spec.Environment, types.EnvironmentLayer{
			Vars:   d.Environment.Vars,
			Extend: false,
		})
	case EnvironmentDirectiveImage:
		if d.Image == nil {
			return fmt.Errorf("environment = image requires this directive to also set an image")
		}
		spec.Image.Use.Environment = true
	case EnvironmentDirectiveAbsent:
		// Carry.
	}
	if len(d.AddedEnvironment) > 0 {
		spec.Environment = append(spec.Environment, types.EnvironmentLayer{
			Vars:   d.AddedEnvironment,
			Extend: true,
		})
	}

	// 6. Mounts: replace if supplied, then always append added_mounts.
	if d.MountsSet {
		spec.Mounts = append([]types.JobMount(nil), d.Mounts...)
	}
	if len(d.AddedMounts) > 0 {
		spec.Mounts = append(spec.Mounts, d.AddedMounts...)
	}

	// 7. Devices: start from directive's set if supplied else carry; union
	// with added_devices.
	base := spec.Devices
	if d.Devices != nil {
		base = *d.Devices
	}
	spec.Devices = base.Union(d.AddedDevices)

	return nil
}
