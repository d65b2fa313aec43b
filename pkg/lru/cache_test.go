package lru_test

import (
	"testing"

	"github.com/developer-mesh/docring/pkg/hashfn"
	"github.com/developer-mesh/docring/pkg/lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutEvictGet(t *testing.T) {
	c := lru.New(2, hashfn.FNV1aString)

	inserted, evicted := c.Put("A", []byte("1"))
	assert.True(t, inserted)
	assert.Nil(t, evicted)

	inserted, evicted = c.Put("B", []byte("2"))
	assert.True(t, inserted)
	assert.Nil(t, evicted)

	v, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	// A is now MRU, B is LRU; inserting C must evict B.
	inserted, evicted = c.Put("C", []byte("3"))
	assert.True(t, inserted)
	require.NotNil(t, evicted)
	assert.Equal(t, "B", *evicted)

	assert.Equal(t, []string{"A", "C"}, sortedKeys(c))

	_, ok = c.Get("B")
	assert.False(t, ok)
}

func TestCache_PutExistingKeyNoEviction(t *testing.T) {
	c := lru.New(1, hashfn.FNV1aString)
	_, evicted := c.Put("A", []byte("1"))
	assert.Nil(t, evicted)

	inserted, evicted := c.Put("A", []byte("2"))
	assert.False(t, inserted)
	assert.Nil(t, evicted)

	v, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, c.Size())
}

func TestCache_Remove(t *testing.T) {
	c := lru.New(2, hashfn.FNV1aString)
	c.Put("A", []byte("1"))
	c.Put("B", []byte("2"))

	c.Remove("A")
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("A")
	assert.False(t, ok)

	// Removing an absent key is a no-op.
	c.Remove("A")
	assert.Equal(t, 1, c.Size())

	// B must still be reachable and capacity must have room again.
	_, evicted := c.Put("C", []byte("3"))
	assert.Nil(t, evicted)
	assert.Equal(t, 2, c.Size())
}

func TestCache_GetPromotesToMRU(t *testing.T) {
	c := lru.New(2, hashfn.FNV1aString)
	c.Put("A", []byte("1"))
	c.Put("B", []byte("2"))

	// Touch A so B becomes the LRU candidate.
	c.Get("A")
	_, evicted := c.Put("C", []byte("3"))
	require.NotNil(t, evicted)
	assert.Equal(t, "B", *evicted)
}

func TestCache_SizeNeverExceedsCapacity(t *testing.T) {
	c := lru.New(3, hashfn.FNV1aString)
	for i := 0; i < 50; i++ {
		c.Put(string(rune('a'+i%26))+string(rune(i)), []byte("x"))
		assert.LessOrEqual(t, c.Size(), c.Capacity())
	}
}

func sortedKeys(c *lru.Cache) []string {
	keys := c.Keys()
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}
