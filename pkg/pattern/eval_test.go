package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthTables(t *testing.T) {
	assert.Equal(t, False, And(Undef, False))
	assert.Equal(t, Undef, And(Undef, True))
	assert.Equal(t, True, And(True, True))
	assert.Equal(t, False, And(False, True))

	assert.Equal(t, True, Or(Undef, True))
	assert.Equal(t, Undef, Or(Undef, False))
	assert.Equal(t, False, Or(False, False))

	assert.Equal(t, Undef, Not(Undef))
	assert.Equal(t, False, Not(True))
	assert.Equal(t, True, Not(False))
}

func TestSimpleSelectors(t *testing.T) {
	ctx := Context{}
	v, err := Match("all", ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)

	v, err = Match("none", ctx)
	require.NoError(t, err)
	assert.Equal(t, False, v)
}

func TestCompoundSelectorEquals(t *testing.T) {
	ctx := Context{Package: "bar"}
	v, err := Match(`package.equals("bar")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)

	v, err = Match(`package.equals("baz")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, False, v)
}

func TestUndefWhenCaseUnbound(t *testing.T) {
	ctx := Context{Package: "bar", Case: nil}
	v, err := Match(`name.equals("foo_test")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, Undef, v)
}

func TestTriValuedFilterScenario(t *testing.T) {
	// Mirrors the spec's tri-valued filter scenario: "name.equals(foo_test)
	// && package.equals(bar)" with no case bound.
	expr := `name.equals("foo_test") && package.equals("bar")`

	v, err := Match(expr, Context{Package: "bar", Case: nil})
	require.NoError(t, err)
	assert.Equal(t, Undef, v, "short-circuit does not apply; And(Undef, True) = Undef")

	v, err = Match(expr, Context{Package: "qux", Case: nil})
	require.NoError(t, err)
	assert.Equal(t, False, v, "And(Undef, False) = False: package mismatch short-circuits")
}

func TestNotCombinator(t *testing.T) {
	ctx := Context{Package: "bar"}
	v, err := Match(`!package.equals("baz")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)
}

func TestDifferenceCombinator(t *testing.T) {
	ctx := Context{Package: "bar", Artifact: "lib"}
	v, err := Match(`package.equals("bar") - artifact.equals("bin")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)
}

func TestParenthesesGrouping(t *testing.T) {
	ctx := Context{Package: "bar"}
	v, err := Match(`(package.equals("bar") || package.equals("baz")) && all`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)
}

func TestContainsStartsEndsWith(t *testing.T) {
	ctx := Context{Package: "mypackage"}
	v, err := Match(`package.contains("pack")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)

	v, err = Match(`package.starts_with("my")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)

	v, err = Match(`package.ends_with("age")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)
}

func TestGlobsSelector(t *testing.T) {
	ctx := Context{Artifact: "cmd/relay-run"}
	v, err := Match(`artifact.globs("cmd/**")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)
}

func TestMatchesRegexSelector(t *testing.T) {
	ctx := Context{Case: &CaseContext{Name: "TestFooBar"}}
	v, err := Match(`name.matches("^TestFoo.*")`, ctx)
	require.NoError(t, err)
	assert.Equal(t, True, v)
}
