package artifact

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cuemby/relay/pkg/types"
)

// sentinelModTime is the fixed timestamp stamped on every generated manifest
// entry so that manifests built from identical inputs are byte-identical
// across runs. The exact value is arbitrary and stable, matching the
// "ARBITRARY_TIME" sentinel of the system this core was modeled on.
var sentinelModTime = time.Unix(1705000271, 0).UTC()

// EntryKind discriminates the three record shapes a manifest entry can take.
type EntryKind string

const (
	EntryFile      EntryKind = "file"
	EntryDirectory EntryKind = "directory"
	EntrySymlink   EntryKind = "symlink"
)

// ManifestEntry is one record of a generated manifest file.
type ManifestEntry struct {
	Kind EntryKind `json:"kind"`
	Path string    `json:"path"`

	// Size and Digest: EntryFile only. ModTime: every entry kind.
	Size    int64        `json:"size,omitempty"`
	Digest  types.Digest `json:"digest,omitempty"`
	ModTime time.Time    `json:"mtime"`

	// EntrySymlink only.
	SymlinkTarget string `json:"symlink_target,omitempty"`
}

// Manifest is an ordered list of entries plus a reproducible name derived
// from its inputs.
type Manifest struct {
	Name    string
	Entries []ManifestEntry
}

// ManifestName returns the reproducible manifest filename for a set of input
// paths: SHA-256 of the concatenated paths, so identical inputs always
// produce the same name and dedup naturally in the Artifact Registry.
func ManifestName(inputs []string) string {
	h := sha256.New()
	for _, p := range inputs {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x.manifest", h.Sum(nil))
}

// ApplyPrefixOptions runs the canonicalize → strip_prefix → prepend_prefix
// pipeline over one source path, in that order.
func ApplyPrefixOptions(path string, opts types.PrefixOptions) (string, error) {
	result := path

	if opts.Canonicalize {
		abs, err := filepath.Abs(result)
		if err != nil {
			return "", fmt.Errorf("canonicalize %s: %w", path, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", fmt.Errorf("canonicalize %s: %w", path, err)
		}
		result = resolved
	}

	if opts.StripPrefix != "" && strings.HasPrefix(result, opts.StripPrefix) {
		result = strings.TrimPrefix(result, opts.StripPrefix)
	}

	if opts.PrependPrefix != "" {
		if filepath.IsAbs(result) {
			result = strings.TrimPrefix(result, string(filepath.Separator))
		}
		result = opts.PrependPrefix + result
	}

	return result, nil
}

// BuildPathsManifest constructs a manifest from an explicit list of
// filesystem paths, each run through the prefix-options pipeline.
func BuildPathsManifest(paths []string, opts types.PrefixOptions) (*Manifest, error) {
	entries := make([]ManifestEntry, 0, len(paths))
	for _, p := range paths {
		entry, err := statEntry(p, opts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return &Manifest{Name: ManifestName(paths), Entries: entries}, nil
}

// BuildGlobManifest walks the filesystem rooted at the pattern's non-wildcard
// prefix, matching pattern with doublestar's "**" semantics, and builds a
// manifest of every matched path run through the prefix-options pipeline.
func BuildGlobManifest(pattern string, opts types.PrefixOptions) (*Manifest, error) {
	base, cleanPattern := doublestar.SplitPattern(pattern)
	if base == "" {
		base = "."
	}

	var matches []string
	fsys := os.DirFS(base)
	err := doublestar.GlobWalk(fsys, cleanPattern, func(path string, d fs.DirEntry) error {
		matches = append(matches, filepath.Join(base, path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	entries := make([]ManifestEntry, 0, len(matches))
	for _, p := range matches {
		entry, err := statEntry(p, opts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return &Manifest{Name: ManifestName([]string{pattern}), Entries: entries}, nil
}

func statEntry(path string, opts types.PrefixOptions) (ManifestEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("stat %s: %w", path, err)
	}

	entryPath, err := ApplyPrefixOptions(path, opts)
	if err != nil {
		return ManifestEntry{}, err
	}

	if info.IsDir() {
		return ManifestEntry{Kind: EntryDirectory, Path: entryPath, ModTime: sentinelModTime}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ManifestEntry{
		Kind:    EntryFile,
		Path:    entryPath,
		Size:    int64(len(data)),
		Digest:  types.DigestOf(data),
		ModTime: sentinelModTime,
	}, nil
}

// BuildStubManifest constructs a manifest from stub path strings. A trailing
// "/" marks a directory entry; otherwise the entry is a zero-length file.
// Each stub may contain brace-expansion groups ("/a/{b,c}/d"), expanded
// before building entries.
func BuildStubManifest(stubs []string) (*Manifest, error) {
	var expanded []string
	for _, stub := range stubs {
		expanded = append(expanded, ExpandBraces(stub)...)
	}

	entries := make([]ManifestEntry, 0, len(expanded))
	for _, stub := range expanded {
		if strings.HasSuffix(stub, "/") {
			entries = append(entries, ManifestEntry{
				Kind:    EntryDirectory,
				Path:    strings.TrimSuffix(stub, "/"),
				ModTime: sentinelModTime,
			})
			continue
		}
		entries = append(entries, ManifestEntry{
			Kind:    EntryFile,
			Path:    stub,
			Size:    0,
			Digest:  types.DigestOf(nil),
			ModTime: sentinelModTime,
		})
	}
	return &Manifest{Name: ManifestName(stubs), Entries: entries}, nil
}

// BuildSymlinkManifest constructs a manifest of symlink entries.
func BuildSymlinkManifest(symlinks []types.SymlinkSpec) (*Manifest, error) {
	inputs := make([]string, 0, len(symlinks)*2)
	entries := make([]ManifestEntry, 0, len(symlinks))
	for _, s := range symlinks {
		inputs = append(inputs, s.Link, s.Target)
		entries = append(entries, ManifestEntry{
			Kind:          EntrySymlink,
			Path:          s.Link,
			SymlinkTarget: s.Target,
			ModTime:       sentinelModTime,
		})
	}
	return &Manifest{Name: ManifestName(inputs), Entries: entries}, nil
}

// ExpandBraces expands one level of shell-style brace groups in path, e.g.
// "/a/{b,c}/d" → ["/a/b/d", "/a/c/d"]. A path with no brace group expands to
// itself. Only a single top-level group is supported, matching the stub
// syntax the spec describes.
func ExpandBraces(path string) []string {
	open := strings.IndexByte(path, '{')
	if open < 0 {
		return []string{path}
	}
	closeIdx := strings.IndexByte(path[open:], '}')
	if closeIdx < 0 {
		return []string{path}
	}
	closeIdx += open

	prefix := path[:open]
	suffix := path[closeIdx+1:]
	alternatives := strings.Split(path[open+1:closeIdx], ",")

	out := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		out = append(out, prefix+alt+suffix)
	}
	return out
}
