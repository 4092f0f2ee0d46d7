package types

// PrefixOptions controls how a manifest entry's path is derived from its
// source path. Operations apply in the order: Canonicalize, StripPrefix,
// PrependPrefix.
type PrefixOptions struct {
	Canonicalize  bool
	StripPrefix   string
	PrependPrefix string
}

// SymlinkSpec is one entry of a Symlinks layer.
type SymlinkSpec struct {
	Link   string
	Target string
}

// LayerKind discriminates the five ways a layer may be specified.
type LayerKind string

const (
	LayerTar      LayerKind = "tar"
	LayerPaths    LayerKind = "paths"
	LayerGlob     LayerKind = "glob"
	LayerStubs    LayerKind = "stubs"
	LayerSymlinks LayerKind = "symlinks"
)

// LayerSpec is a caller-supplied description of one layer. Exactly the
// fields relevant to Kind are meaningful; AddLayer memoizes on the
// structural equality of a LayerSpec value.
type LayerSpec struct {
	Kind LayerKind

	// LayerTar
	Path string

	// LayerPaths
	Paths []string

	// LayerGlob
	Pattern string

	// LayerStubs
	Stubs []string

	// LayerSymlinks
	Symlinks []SymlinkSpec

	// LayerPaths and LayerGlob
	Prefix PrefixOptions
}
