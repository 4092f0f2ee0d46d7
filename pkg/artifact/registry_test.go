package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/relay/pkg/types"
)

func TestRegistryInsertAndLookup(t *testing.T) {
	r := NewRegistry()
	d := types.DigestOf([]byte("hello"))

	r.Insert(d, "/a.tar")

	path, ok := r.Lookup(d)
	assert.True(t, ok)
	assert.Equal(t, "/a.tar", path)
}

func TestRegistryInsertIsIdempotent(t *testing.T) {
	r := NewRegistry()
	d := types.DigestOf([]byte("hello"))

	r.Insert(d, "/first")
	r.Insert(d, "/second")

	path, ok := r.Lookup(d)
	assert.True(t, ok)
	assert.Equal(t, "/first", path, "path must not change once registered")
}

func TestRegistryLookupMiss(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(types.DigestOf([]byte("never registered")))
	assert.False(t, ok)
}
