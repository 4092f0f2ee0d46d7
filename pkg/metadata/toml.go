package metadata

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/cuemby/relay/pkg/types"
)

// AllMetadata is the top-level directive file document.
type AllMetadata struct {
	Directives []Directive
}

type rawDocument struct {
	Directives []rawDirective `toml:"directives"`
}

type rawImage struct {
	Name string   `toml:"name"`
	Tag  string   `toml:"tag"`
	Use  []string `toml:"use"`
}

type rawMount struct {
	Kind         string `toml:"kind"`
	Path         string `toml:"path"`
	BindSource   string `toml:"bind_source,omitempty"`
	BindReadOnly bool   `toml:"bind_read_only,omitempty"`
}

type rawDirective struct {
	Filter string `toml:"filter,omitempty"`

	Image *rawImage `toml:"image,omitempty"`

	Network                  *string `toml:"network,omitempty"`
	EnableWritableFileSystem *bool   `toml:"enable_writable_file_system,omitempty"`

	// WorkingDirectory and Layers and Environment are "any" because each may
	// be either a concrete value or the literal string "image".
	WorkingDirectory any `toml:"working_directory,omitempty"`
	Layers           any `toml:"layers,omitempty"`
	Environment      any `toml:"environment,omitempty"`

	User                   *uint32 `toml:"user,omitempty"`
	Group                  *uint32 `toml:"group,omitempty"`
	TimeoutSeconds         *int64  `toml:"timeout,omitempty"`
	IncludeSharedLibraries *bool   `toml:"include_shared_libraries,omitempty"`

	AddedLayers      []string          `toml:"added_layers,omitempty"`
	AddedEnvironment map[string]string `toml:"added_environment,omitempty"`

	Mounts      []rawMount `toml:"mounts,omitempty"`
	AddedMounts []rawMount `toml:"added_mounts,omitempty"`

	Devices      []string `toml:"devices,omitempty"`
	AddedDevices []string `toml:"added_devices,omitempty"`
}

// LoadAllMetadata parses a directive file. Unknown top-level and nested
// fields are a hard error, matching the spec's directive file format.
func LoadAllMetadata(r io.Reader) (AllMetadata, error) {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc rawDocument
	if err := dec.Decode(&doc); err != nil {
		return AllMetadata{}, fmt.Errorf("metadata: parse directive file: %w", err)
	}

	directives := make([]Directive, 0, len(doc.Directives))
	for i, raw := range doc.Directives {
		d, err := raw.toDirective()
		if err != nil {
			return AllMetadata{}, fmt.Errorf("metadata: directive %d: %w", i, err)
		}
		directives = append(directives, d)
	}
	return AllMetadata{Directives: directives}, nil
}

func (raw rawDirective) toDirective() (Directive, error) {
	d := Directive{Filter: raw.Filter}

	if raw.Image != nil {
		d.Image = &ImageDirective{Name: raw.Image.Name, Tag: raw.Image.Tag, Use: raw.Image.Use}
	}

	if raw.Network != nil {
		n := types.JobNetwork(*raw.Network)
		d.Network = &n
	}
	d.EnableWritableFileSystem = raw.EnableWritableFileSystem

	if raw.User != nil {
		u := types.UserID(*raw.User)
		d.User = &u
	}
	if raw.Group != nil {
		g := types.GroupID(*raw.Group)
		d.Group = &g
	}
	if raw.TimeoutSeconds != nil {
		t := types.Timeout(time.Duration(*raw.TimeoutSeconds) * time.Second)
		d.Timeout = &t
	}
	d.IncludeSharedLibraries = raw.IncludeSharedLibraries

	wd, err := parseWorkingDirectory(raw.WorkingDirectory)
	if err != nil {
		return Directive{}, err
	}
	d.WorkingDirectory = wd

	layers, err := parseLayers(raw.Layers)
	if err != nil {
		return Directive{}, err
	}
	d.Layers = layers

	if len(raw.AddedLayers) > 0 {
		digests := make([]types.Digest, 0, len(raw.AddedLayers))
		for _, s := range raw.AddedLayers {
			dg, err := types.ParseDigest(s)
			if err != nil {
				return Directive{}, fmt.Errorf("added_layers: %w", err)
			}
			digests = append(digests, dg)
		}
		d.AddedLayers = digests
	}

	env, err := parseEnvironment(raw.Environment)
	if err != nil {
		return Directive{}, err
	}
	d.Environment = env
	d.AddedEnvironment = raw.AddedEnvironment

	if raw.Mounts != nil {
		d.MountsSet = true
		mounts, err := convertMounts(raw.Mounts)
		if err != nil {
			return Directive{}, err
		}
		d.Mounts = mounts
	}
	if len(raw.AddedMounts) > 0 {
		mounts, err := convertMounts(raw.AddedMounts)
		if err != nil {
			return Directive{}, err
		}
		d.AddedMounts = mounts
	}

	if raw.Devices != nil {
		set, err := parseDeviceSet(raw.Devices)
		if err != nil {
			return Directive{}, err
		}
		d.Devices = &set
	}
	if len(raw.AddedDevices) > 0 {
		set, err := parseDeviceSet(raw.AddedDevices)
		if err != nil {
			return Directive{}, err
		}
		d.AddedDevices = set
	}

	return d, nil
}

func parseWorkingDirectory(v any) (WorkingDirective, error) {
	switch val := v.(type) {
	case nil:
		return WorkingDirective{Kind: WorkingDirectiveAbsent}, nil
	case string:
		if val == "image" {
			return WorkingDirective{Kind: WorkingDirectiveImage}, nil
		}
		return WorkingDirective{Kind: WorkingDirectiveExplicit, Path: val}, nil
	default:
		return WorkingDirective{}, fmt.Errorf("working_directory: expected string or \"image\", got %T", v)
	}
}

func parseLayers(v any) (LayersDirective, error) {
	switch val := v.(type) {
	case nil:
		return LayersDirective{Kind: LayersDirectiveAbsent}, nil
	case string:
		if val == "image" {
			return LayersDirective{Kind: LayersDirectiveImage}, nil
		}
		return LayersDirective{}, fmt.Errorf("layers: unexpected string %q", val)
	case []any:
		digests := make([]types.Digest, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return LayersDirective{}, fmt.Errorf("layers: expected string digest, got %T", item)
			}
			d, err := types.ParseDigest(s)
			if err != nil {
				return LayersDirective{}, fmt.Errorf("layers: %w", err)
			}
			digests = append(digests, d)
		}
		return LayersDirective{Kind: LayersDirectiveExplicit, Layers: digests}, nil
	default:
		return LayersDirective{}, fmt.Errorf("layers: expected array or \"image\", got %T", v)
	}
}

func parseEnvironment(v any) (EnvironmentDirective, error) {
	switch val := v.(type) {
	case nil:
		return EnvironmentDirective{Kind: EnvironmentDirectiveAbsent}, nil
	case string:
		if val == "image" {
			return EnvironmentDirective{Kind: EnvironmentDirectiveImage}, nil
		}
		return EnvironmentDirective{}, fmt.Errorf("environment: unexpected string %q", val)
	case map[string]any:
		vars := make(map[string]string, len(val))
		for k, item := range val {
			s, ok := item.(string)
			if !ok {
				return EnvironmentDirective{}, fmt.Errorf("environment.%s: expected string, got %T", k, item)
			}
			vars[k] = s
		}
		return EnvironmentDirective{Kind: EnvironmentDirectiveExplicit, Vars: vars}, nil
	default:
		return EnvironmentDirective{}, fmt.Errorf("environment: expected table or \"image\", got %T", v)
	}
}

func convertMounts(raw []rawMount) ([]types.JobMount, error) {
	out := make([]types.JobMount, 0, len(raw))
	for _, m := range raw {
		kind := types.JobMountKind(m.Kind)
		switch kind {
		case types.MountTmp, types.MountProc, types.MountSys:
			out = append(out, types.JobMount{Kind: kind, Path: m.Path})
		case types.MountBind:
			out = append(out, types.JobMount{
				Kind:         kind,
				Path:         m.Path,
				BindSource:   m.BindSource,
				BindReadOnly: m.BindReadOnly,
			})
		default:
			return nil, fmt.Errorf("mounts: unknown kind %q", m.Kind)
		}
	}
	return out, nil
}

var deviceByName = map[string]types.JobDevice{
	"full":    types.JobDeviceFull,
	"fuse":    types.JobDeviceFuse,
	"null":    types.JobDeviceNull,
	"random":  types.JobDeviceRandom,
	"shm":     types.JobDeviceShm,
	"tty":     types.JobDeviceTty,
	"urandom": types.JobDeviceURandom,
	"zero":    types.JobDeviceZero,
}

func parseDeviceSet(names []string) (types.JobDeviceSet, error) {
	var set types.JobDeviceSet
	for _, name := range names {
		dev, ok := deviceByName[name]
		if !ok {
			return 0, fmt.Errorf("devices: unknown device %q", name)
		}
		set = set.With(dev)
	}
	return set, nil
}

// WriteDefault serializes the default single-directive document used when no
// directive file exists yet.
func WriteDefault(w io.Writer) error {
	_, err := w.Write(defaultDirectiveTOML())
	return err
}

func defaultDirectiveTOML() []byte {
	var buf bytes.Buffer
	buf.WriteString("# Default directive: no filter, applies to every case.\n")
	buf.WriteString("[[directives]]\n")
	buf.WriteString("include_shared_libraries = true\n")
	buf.WriteString("network = \"disabled\"\n")
	buf.WriteString("working_directory = \"/\"\n")
	buf.WriteString("user = 0\n")
	buf.WriteString("group = 0\n")
	buf.WriteString("layers = []\n")
	buf.WriteString("\n[[directives.mounts]]\n")
	buf.WriteString("kind = \"tmp\"\n")
	buf.WriteString("path = \"/tmp\"\n")
	buf.WriteString("\n[[directives.mounts]]\n")
	buf.WriteString("kind = \"proc\"\n")
	buf.WriteString("path = \"/proc\"\n")
	return buf.Bytes()
}
