package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/relay/pkg/pattern"
)

func TestLoadAllMetadataBasic(t *testing.T) {
	doc := `
[[directives]]
user = 101
group = 101

[[directives]]
filter = 'package.equals("pkg1")'
user = 202
`
	all, err := LoadAllMetadata(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, all.Directives, 2)
	require.NotNil(t, all.Directives[0].User)
	assert.Equal(t, uint32(101), uint32(*all.Directives[0].User))
	assert.Equal(t, `package.equals("pkg1")`, all.Directives[1].Filter)
}

func TestLoadAllMetadataRejectsUnknownField(t *testing.T) {
	doc := `
[[directives]]
bogus_field = true
`
	_, err := LoadAllMetadata(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadAllMetadataWorkingDirectoryImage(t *testing.T) {
	doc := `
[[directives]]
working_directory = "image"

[directives.image]
name = "img1"
use = ["working_directory"]
`
	all, err := LoadAllMetadata(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, all.Directives, 1)
	assert.Equal(t, WorkingDirectiveImage, all.Directives[0].WorkingDirectory.Kind)
	require.NotNil(t, all.Directives[0].Image)
	assert.Equal(t, "img1", all.Directives[0].Image.Name)
}

func TestDefaultDirectiveTOMLParsesAndFoldsToDefault(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteDefault(&buf))

	all, err := LoadAllMetadata(strings.NewReader(buf.String()))
	require.NoError(t, err)

	spec, err := Fold(all.Directives, pattern.Context{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetadata().WorkingDirectory, spec.WorkingDirectory)
	assert.Equal(t, DefaultMetadata().Network, spec.Network)
}
