// Package hashfn provides the two injected hash functions the rest of the
// module depends on: one over document/cache keys, one over server ids.
// Their identity is deliberately unspecified by the design this module
// implements: callers depend only on the StringHash/Uint32Hash function
// types, never on a concrete algorithm, so the hash primitives themselves
// stay swappable.
package hashfn

import "hash/fnv"

// StringHash hashes an arbitrary byte string (document names, cache keys)
// to a 32-bit position on the hash ring.
type StringHash func(string) uint32

// Uint32Hash hashes a server id to a 32-bit position on the hash ring.
type Uint32Hash func(uint32) uint32

// FNV1aString is the default StringHash. FNV-1a gives a good enough
// avalanche for ring placement without pulling in a dedicated hashing
// dependency for what the design treats as an external, swappable
// collaborator.
func FNV1aString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// FNV1aUint32 is the default Uint32Hash, used to place servers (and their
// virtual-node replicas) on the ring.
func FNV1aUint32(v uint32) uint32 {
	b := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	h := fnv.New32a()
	_, _ = h.Write(b[:])
	return h.Sum32()
}
