package ring

import (
	"context"
	"fmt"

	"github.com/developer-mesh/docring/pkg/docserver"
)

// AddServer inserts a new primary (and, if virtual nodes are enabled, its
// replicas) into the ring and runs key migration: after insertion, the
// first ring entry outside the new server's family going forward from it
// has its task queue flushed and its local database scanned; any key
// whose owner under the now-complete ring belongs to the new server's
// family is moved over. cacheCapacity sizes the new server's cache tier
// (its local database is sized as a fixed multiple of it).
func (b *Balancer) AddServer(id uint32, cacheCapacity int) {
	primary := docserver.New(id, cacheCapacity, b.hash, b.sink, b.logger, b.metrics)
	primary.Hash = b.hashID(id)
	b.entries = append(b.entries, entry{srv: primary})

	if b.virtualNodes >= 1 {
		r1 := docserver.NewReplica(id+replicaOffset, primary)
		r1.Hash = b.hashID(id + replicaOffset)
		b.entries = append(b.entries, entry{srv: r1})
	}
	if b.virtualNodes >= 2 {
		r2 := docserver.NewReplica(id+2*replicaOffset, primary)
		r2.Hash = b.hashID(id + 2*replicaOffset)
		b.entries = append(b.entries, entry{srv: r2})
	}

	b.sortEntries()
	b.logger.Info("server added", map[string]interface{}{
		"server_id":     id,
		"cache_size":    cacheCapacity,
		"virtual_nodes": b.virtualNodes,
	})
	b.migrateOnInsert(id)
}

// migrateOnInsert implements the design's unified correctness rule for
// insertion: find the ring's own next entry outside the new family
// (scanning forward from wherever the new primary landed), flush its
// queue, and move every key it owns that the complete new ring now
// assigns to the inserted family.
func (b *Balancer) migrateOnInsert(newFamily uint32) {
	idx := b.entryIndex(newFamily)
	if idx == -1 {
		return
	}
	donorIdx := b.nextOutsideFamily(idx, newFamily)
	if donorIdx == -1 {
		return
	}
	donor := b.entries[donorIdx].srv.Primary()
	target := b.entries[idx].srv.Primary()

	if b.tracer != nil {
		_, span := b.tracer.Start(context.Background(), "docring.migrate", map[string]string{
			"direction": "insert",
			"donor":     fmt.Sprintf("%d", donor.ID),
			"target":    fmt.Sprintf("%d", target.ID),
		})
		defer span.End()
	}

	donor.DrainQueueForMigration()

	moved := 0
	for _, key := range donor.LocalDB.Keys() {
		if b.ownerOf(key) != newFamily {
			continue
		}
		value, ok := donor.LocalDB.Get(key)
		if !ok {
			continue
		}
		target.LocalDB.Put(key, value)
		donor.LocalDB.Remove(key)
		donor.Cache.Remove(key)
		moved++
		if b.metrics != nil {
			b.metrics.IncrementCounter("docring_migration_keys_moved_total", map[string]string{"direction": "insert"}, 1)
		}
	}

	b.logger.Info("migration completed", map[string]interface{}{
		"direction":  "insert",
		"donor_id":   donor.ID,
		"target_id":  target.ID,
		"keys_moved": moved,
	})
}

// RemoveServer deletes every ring entry (primary and any replicas) whose
// primary family equals id. Before removal, for every ring position being
// removed, its own forward neighbor outside the family receives a copy of
// the primary's entire local database; the primary's database is deleted
// exactly once, after all copies have been made.
func (b *Balancer) RemoveServer(id uint32) {
	primaryIdx := b.entryIndex(id)
	if primaryIdx == -1 {
		return
	}
	primary := b.entries[primaryIdx].srv
	primary.DrainQueueForMigration()

	var removeIdx []int
	for i, e := range b.entries {
		if family(e.id()) == id {
			removeIdx = append(removeIdx, i)
		}
	}

	keys := primary.LocalDB.Keys()
	for _, idx := range removeIdx {
		neighborIdx := b.nextOutsideFamily(idx, id)
		if neighborIdx == -1 {
			continue
		}
		neighbor := b.entries[neighborIdx].srv.Primary()
		endSpan := func() {}
		if b.tracer != nil {
			_, span := b.tracer.Start(context.Background(), "docring.migrate", map[string]string{
				"direction": "remove",
				"donor":     fmt.Sprintf("%d", primary.ID),
				"target":    fmt.Sprintf("%d", neighbor.ID),
			})
			endSpan = span.End
		}
		for _, key := range keys {
			value, ok := primary.LocalDB.Get(key)
			if !ok {
				continue
			}
			neighbor.LocalDB.Put(key, value)
			if b.metrics != nil {
				b.metrics.IncrementCounter("docring_migration_keys_moved_total", map[string]string{"direction": "remove"}, 1)
			}
		}
		endSpan()
		b.logger.Info("migration completed", map[string]interface{}{
			"direction":  "remove",
			"donor_id":   primary.ID,
			"target_id":  neighbor.ID,
			"keys_moved": len(keys),
		})
	}

	for _, key := range keys {
		primary.LocalDB.Remove(key)
		primary.Cache.Remove(key)
	}

	b.logger.Info("server removed", map[string]interface{}{
		"server_id":      id,
		"ring_positions": len(removeIdx),
	})
	b.removeIndices(removeIdx)
}

// removeIndices deletes ring entries at the given indices (assumed
// sorted ascending) and re-sorts.
func (b *Balancer) removeIndices(idx []int) {
	remove := make(map[int]bool, len(idx))
	for _, i := range idx {
		remove[i] = true
	}
	kept := b.entries[:0:0]
	for i, e := range b.entries {
		if !remove[i] {
			kept = append(kept, e)
		}
	}
	b.entries = kept
	b.sortEntries()
	b.maybeShrink()
}

// maybeShrink ports the original ring vector's halve-when-under-half-full
// policy. Go's append already grows the backing array on its own, but it
// never shrinks it, so RemoveServer reallocates explicitly once occupancy
// drops below half of the current backing capacity.
func (b *Balancer) maybeShrink() {
	if cap(b.entries) < 8 || len(b.entries) >= cap(b.entries)/2 {
		return
	}
	shrunk := make([]entry, len(b.entries))
	copy(shrunk, b.entries)
	b.entries = shrunk
}
