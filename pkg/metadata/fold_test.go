package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/relay/pkg/pattern"
	"github.com/cuemby/relay/pkg/types"
)

func TestFoldEmptyDirectiveListYieldsDefault(t *testing.T) {
	spec, err := Fold(nil, pattern.Context{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetadata(), spec)
}

func TestFoldDirectiveOverride(t *testing.T) {
	user1 := types.UserID(101)
	group1 := types.GroupID(101)
	user2 := types.UserID(202)

	directives := []Directive{
		{User: &user1, Group: &group1},
		{Filter: `package.equals("pkg1")`, User: &user2},
	}

	spec, err := Fold(directives, pattern.Context{Package: "pkg1", Case: &pattern.CaseContext{Name: "t1"}})
	require.NoError(t, err)
	assert.Equal(t, types.UserID(202), spec.User)
	assert.Equal(t, types.GroupID(101), spec.Group)

	spec, err = Fold(directives, pattern.Context{Package: "pkg2"})
	require.NoError(t, err)
	assert.Equal(t, types.UserID(101), spec.User)
	assert.Equal(t, types.GroupID(101), spec.Group)
}

func TestFoldImageInheritanceWorkingDirectory(t *testing.T) {
	directives := []Directive{
		{
			Image:            &ImageDirective{Name: "img1"},
			WorkingDirectory: WorkingDirective{Kind: WorkingDirectiveImage},
		},
	}

	spec, err := Fold(directives, pattern.Context{})
	require.NoError(t, err)
	assert.Empty(t, spec.WorkingDirectory)
	require.NotNil(t, spec.Image)
	assert.Equal(t, "img1", spec.Image.Name)
	assert.Equal(t, "latest", spec.Image.Tag)
	assert.True(t, spec.Image.Use.WorkingDirectory)
}

func TestFoldImageInheritanceRequiresImage(t *testing.T) {
	directives := []Directive{
		{WorkingDirectory: WorkingDirective{Kind: WorkingDirectiveImage}},
	}
	_, err := Fold(directives, pattern.Context{})
	assert.Error(t, err)
}

func TestFoldImageInheritanceScopedToOwnDirective(t *testing.T) {
	directives := []Directive{
		{Image: &ImageDirective{Name: "img1"}},
		{WorkingDirectory: WorkingDirective{Kind: WorkingDirectiveImage}},
	}
	_, err := Fold(directives, pattern.Context{})
	assert.Error(t, err, "an earlier directive's image must not license a later, image-less directive's inheritance")

	directives = []Directive{
		{Image: &ImageDirective{Name: "img1"}},
		{Layers: LayersDirective{Kind: LayersDirectiveImage}},
	}
	_, err = Fold(directives, pattern.Context{})
	assert.Error(t, err)

	directives = []Directive{
		{Image: &ImageDirective{Name: "img1"}},
		{Environment: EnvironmentDirective{Kind: EnvironmentDirectiveImage}},
	}
	_, err = Fold(directives, pattern.Context{})
	assert.Error(t, err)
}

func TestFoldAddedLayersAppends(t *testing.T) {
	d1 := types.DigestOf([]byte("a"))
	d2 := types.DigestOf([]byte("b"))

	directives := []Directive{
		{Layers: LayersDirective{Kind: LayersDirectiveExplicit, Layers: []types.Digest{d1}}},
		{AddedLayers: []types.Digest{d2}},
	}

	spec, err := Fold(directives, pattern.Context{})
	require.NoError(t, err)
	assert.Equal(t, []types.Digest{d1, d2}, spec.Layers)
}

func TestFoldDevicesUnion(t *testing.T) {
	base := types.JobDeviceSet(0).With(types.JobDeviceNull)
	directives := []Directive{
		{Devices: &base},
		{AddedDevices: types.JobDeviceSet(0).With(types.JobDeviceTty)},
	}

	spec, err := Fold(directives, pattern.Context{})
	require.NoError(t, err)
	assert.True(t, spec.Devices.Has(types.JobDeviceNull))
	assert.True(t, spec.Devices.Has(types.JobDeviceTty))
}

func TestFoldMountsAlwaysAppendsAddedMounts(t *testing.T) {
	directives := []Directive{
		{AddedMounts: []types.JobMount{{Kind: types.MountBind, Path: "/data", BindSource: "/host/data"}}},
	}

	spec, err := Fold(directives, pattern.Context{})
	require.NoError(t, err)
	// default mounts (tmp, proc) plus the added bind mount, duplicates allowed.
	assert.Len(t, spec.Mounts, 3)
}

func TestFoldEnvironmentLayersPreserveOrder(t *testing.T) {
	directives := []Directive{
		{Environment: EnvironmentDirective{Kind: EnvironmentDirectiveExplicit, Vars: map[string]string{"A": "1"}}},
		{AddedEnvironment: map[string]string{"B": "$prev{A}"}},
	}

	spec, err := Fold(directives, pattern.Context{})
	require.NoError(t, err)
	require.Len(t, spec.Environment, 2)
	assert.False(t, spec.Environment[0].Extend)
	assert.True(t, spec.Environment[1].Extend)
	assert.Equal(t, "1", spec.Environment[0].Vars["A"])
}

func TestFoldTriValuedFilterExcludesUndef(t *testing.T) {
	user := types.UserID(7)
	directives := []Directive{
		{Filter: `name.equals("foo_test") && package.equals("bar")`, User: &user},
	}

	spec, err := Fold(directives, pattern.Context{Package: "bar"})
	require.NoError(t, err)
	assert.Equal(t, types.UserID(0), spec.User, "Undef filter must not match")
}
