package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/relay/pkg/types"
)

func TestExpandBraces(t *testing.T) {
	assert.Equal(t, []string{"/a/b/d", "/a/c/d"}, ExpandBraces("/a/{b,c}/d"))
	assert.Equal(t, []string{"/no/braces"}, ExpandBraces("/no/braces"))
}

func TestManifestNameIsStableAndOrderSensitive(t *testing.T) {
	n1 := ManifestName([]string{"/a", "/b"})
	n2 := ManifestName([]string{"/a", "/b"})
	n3 := ManifestName([]string{"/b", "/a"})

	assert.Equal(t, n1, n2)
	assert.NotEqual(t, n1, n3)
}

func TestApplyPrefixOptionsPipelineOrder(t *testing.T) {
	got, err := ApplyPrefixOptions("/build/out/bin", types.PrefixOptions{
		StripPrefix:   "/build/out",
		PrependPrefix: "opt/",
	})
	require.NoError(t, err)
	assert.Equal(t, "opt/bin", got)
}

func TestApplyPrefixOptionsPrependStripsLeadingSeparator(t *testing.T) {
	got, err := ApplyPrefixOptions("/bin/true", types.PrefixOptions{
		PrependPrefix: "root/",
	})
	require.NoError(t, err)
	assert.Equal(t, "root/bin/true", got)
}

func TestBuildStubManifestDirectoryAndFileEntries(t *testing.T) {
	m, err := BuildStubManifest([]string{"/a/{b,c}/", "/a/d"})
	require.NoError(t, err)
	require.Len(t, m.Entries, 3)

	byPath := map[string]ManifestEntry{}
	for _, e := range m.Entries {
		byPath[e.Path] = e
	}

	assert.Equal(t, EntryDirectory, byPath["/a/b"].Kind)
	assert.Equal(t, EntryDirectory, byPath["/a/c"].Kind)
	assert.Equal(t, EntryFile, byPath["/a/d"].Kind)
	assert.Equal(t, int64(0), byPath["/a/d"].Size)
	assert.True(t, byPath["/a/d"].ModTime.Equal(sentinelModTime))
}

func TestBuildSymlinkManifest(t *testing.T) {
	m, err := BuildSymlinkManifest([]types.SymlinkSpec{
		{Link: "/usr/bin/cc", Target: "/usr/bin/gcc"},
	})
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, EntrySymlink, m.Entries[0].Kind)
	assert.Equal(t, "/usr/bin/cc", m.Entries[0].Path)
	assert.Equal(t, "/usr/bin/gcc", m.Entries[0].SymlinkTarget)
}

func TestBuildPathsManifestHashesFileContents(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0644))

	m, err := BuildPathsManifest([]string{file}, types.PrefixOptions{})
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, types.DigestOf([]byte("hello")), m.Entries[0].Digest)
	assert.Equal(t, int64(5), m.Entries[0].Size)
}
