// Package lru implements the bounded cache at the heart of this system: a
// chained hash table for O(1) lookup plus a global recency list for O(1)
// eviction, with a back-reference from every bucket entry to its own
// recency-list slot.
//
// The recency list is not built from raw pointers. Following the
// design-notes re-architecture (arena + stable slot indices, with a free
// list threaded through unused slots) keeps promotion, eviction and
// removal O(1) without the bookkeeping raw pointers would need in a
// garbage-collected language.
package lru

import (
	"github.com/developer-mesh/docring/pkg/hashfn"
)

const noSlot = -1

// recNode is one slot of the recency list (head = least-recently-used,
// tail = most-recently-used). key is kept here, not just in the bucket
// entry, so eviction can identify what to remove from its bucket chain
// without walking back through the entry.
type recNode struct {
	key        string
	prev, next int
	free       bool
}

// bucketEntry is one link in a bucket's chain.
type bucketEntry struct {
	key   string
	value []byte
	slot  int // index into the recency arena; back-reference invariant
	next  *bucketEntry
}

// Cache is a fixed-capacity LRU cache keyed by string, holding byte-string
// values (document content). Capacity zero is not supported: bucket
// selection divides by capacity, so behavior on a zero-capacity cache is
// undefined, as the design allows.
type Cache struct {
	hash     hashfn.StringHash
	capacity int
	size     int
	buckets  []*bucketEntry

	arena    []recNode
	freeHead int // head of the free-slot list, threaded through recNode.next
	lruHead  int // least-recently-used slot
	lruTail  int // most-recently-used slot
}

// New creates a cache of the given capacity using hash for bucket
// selection.
func New(capacity int, hash hashfn.StringHash) *Cache {
	return &Cache{
		hash:     hash,
		capacity: capacity,
		buckets:  make([]*bucketEntry, capacity),
		freeHead: noSlot,
		lruHead:  noSlot,
		lruTail:  noSlot,
	}
}

// Capacity returns the cache's fixed capacity.
func (c *Cache) Capacity() int { return c.capacity }

// Size returns the current number of entries.
func (c *Cache) Size() int { return c.size }

// IsFull reports whether the cache is at capacity.
func (c *Cache) IsFull() bool { return c.size >= c.capacity }

func (c *Cache) bucketIndex(key string) int {
	return int(c.hash(key) % uint32(c.capacity))
}

func (c *Cache) findInBucket(key string) (*bucketEntry, *bucketEntry, int) {
	idx := c.bucketIndex(key)
	var prev *bucketEntry
	for e := c.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			return e, prev, idx
		}
		prev = e
	}
	return nil, nil, idx
}

// allocSlot returns a free recency slot, growing the arena if none are
// free.
func (c *Cache) allocSlot(key string) int {
	if c.freeHead != noSlot {
		slot := c.freeHead
		c.freeHead = c.arena[slot].next
		c.arena[slot] = recNode{key: key, prev: noSlot, next: noSlot}
		return slot
	}
	slot := len(c.arena)
	c.arena = append(c.arena, recNode{key: key, prev: noSlot, next: noSlot})
	return slot
}

func (c *Cache) freeSlot(slot int) {
	c.arena[slot] = recNode{free: true, next: c.freeHead, prev: noSlot}
	c.freeHead = slot
}

// unlinkRec detaches a slot from the recency list without freeing it.
func (c *Cache) unlinkRec(slot int) {
	n := &c.arena[slot]
	if n.prev != noSlot {
		c.arena[n.prev].next = n.next
	} else {
		c.lruHead = n.next
	}
	if n.next != noSlot {
		c.arena[n.next].prev = n.prev
	} else {
		c.lruTail = n.prev
	}
	n.prev, n.next = noSlot, noSlot
}

// appendRecTail appends a (already allocated, already detached) slot at
// the most-recently-used end.
func (c *Cache) appendRecTail(slot int) {
	n := &c.arena[slot]
	n.prev = c.lruTail
	n.next = noSlot
	if c.lruTail != noSlot {
		c.arena[c.lruTail].next = slot
	}
	c.lruTail = slot
	if c.lruHead == noSlot {
		c.lruHead = slot
	}
}

// touch moves an existing slot to the MRU end.
func (c *Cache) touch(slot int) {
	if c.lruTail == slot {
		return
	}
	c.unlinkRec(slot)
	c.appendRecTail(slot)
}

// Put inserts or updates key with value. If key already existed its value
// is replaced and it becomes most-recently-used; inserted is false and no
// eviction happens. Otherwise a new entry is appended at the MRU end; if
// the cache was full, the least-recently-used entry is evicted first and
// its key is returned via evictedKey.
func (c *Cache) Put(key string, value []byte) (inserted bool, evictedKey *string) {
	if entry, _, _ := c.findInBucket(key); entry != nil {
		entry.value = value
		c.touch(entry.slot)
		return false, nil
	}

	if c.IsFull() {
		evicted := c.evictLRU()
		evictedKey = &evicted
	}

	idx := c.bucketIndex(key)
	slot := c.allocSlot(key)
	c.appendRecTail(slot)
	c.buckets[idx] = &bucketEntry{key: key, value: value, slot: slot, next: c.buckets[idx]}
	c.size++
	return true, evictedKey
}

// evictLRU removes the head (least-recently-used) entry and returns its
// key. The caller must ensure the cache is non-empty.
func (c *Cache) evictLRU() string {
	slot := c.lruHead
	key := c.arena[slot].key
	c.unlinkRec(slot)
	c.freeSlot(slot)

	idx := c.bucketIndex(key)
	var prev *bucketEntry
	for e := c.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev != nil {
				prev.next = e.next
			} else {
				c.buckets[idx] = e.next
			}
			break
		}
		prev = e
	}
	c.size--
	return key
}

// Get returns the value for key and promotes it to most-recently-used. Ok
// is false on a miss.
func (c *Cache) Get(key string) (value []byte, ok bool) {
	entry, _, _ := c.findInBucket(key)
	if entry == nil {
		return nil, false
	}
	c.touch(entry.slot)
	return entry.value, true
}

// Remove erases key from both the bucket chain and the recency list. It is
// a no-op if key is absent.
func (c *Cache) Remove(key string) {
	entry, prev, idx := c.findInBucket(key)
	if entry == nil {
		return
	}
	c.unlinkRec(entry.slot)
	c.freeSlot(entry.slot)
	if prev != nil {
		prev.next = entry.next
	} else {
		c.buckets[idx] = entry.next
	}
	c.size--
}

// Keys returns every key currently in the cache, built by iterating the
// actual bucket chains rather than trusting the size counter. A
// metadata-derived count can under- or over-report if a chain walk goes
// wrong, so the result here is always exactly what Size would enumerate.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, c.size)
	for _, head := range c.buckets {
		for e := head; e != nil; e = e.next {
			keys = append(keys, e.key)
		}
	}
	return keys
}
