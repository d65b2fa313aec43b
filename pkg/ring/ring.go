// Package ring implements the consistent-hashing ring that fronts the
// document servers: routing, optional virtual-node replication, and the
// key-migration protocol that runs on AddServer/RemoveServer.
package ring

import (
	"context"
	"sort"

	"github.com/developer-mesh/docring/pkg/docserver"
	"github.com/developer-mesh/docring/pkg/docstore"
	"github.com/developer-mesh/docring/pkg/hashfn"
	"github.com/developer-mesh/docring/pkg/observability"
)

// replicaOffset separates a primary server id from its virtual-node
// replica ids. Replica k of server id carries ring id id+k*replicaOffset.
const replicaOffset = 100000

// entry is one ring position: either a primary server or one of its
// virtual-node replicas, both represented by a *docserver.Server (replicas
// redirect storage access to their primary internally).
type entry struct {
	srv *docserver.Server
}

func (e entry) id() uint32   { return e.srv.ID }
func (e entry) hash() uint32 { return e.srv.Hash }

// family returns the primary server id this ring entry belongs to,
// stripping any virtual-node offset.
func family(id uint32) uint32 { return id % replicaOffset }

// Balancer is the consistent-hashing ring. Entries are kept sorted by
// (hash ascending, id ascending) at all times.
type Balancer struct {
	entries []entry

	hash    hashfn.StringHash
	hashID  hashfn.Uint32Hash
	sink    docstore.ResponseSink
	logger  observability.Logger
	metrics observability.MetricsClient
	tracer  *observability.Tracer

	// virtualNodes is the replica count per primary (0 disables
	// replication). Replica k occupies ring id primary+k*replicaOffset.
	virtualNodes int
}

// Config bundles the construction-time dependencies for a Balancer.
type Config struct {
	StringHash hashfn.StringHash
	IDHash     hashfn.Uint32Hash
	Sink       docstore.ResponseSink
	Logger     observability.Logger
	Metrics    observability.MetricsClient
	// Tracer is optional; when nil, Forward and migration skip span
	// creation entirely.
	Tracer *observability.Tracer
	// VirtualNodes is the number of extra ring positions (replicas) each
	// added server receives. Zero disables virtual nodes entirely.
	VirtualNodes int
}

// New builds an empty Balancer.
func New(cfg Config) *Balancer {
	return &Balancer{
		entries:       make([]entry, 0, 8),
		hash:          cfg.StringHash,
		hashID:        cfg.IDHash,
		sink:          cfg.Sink,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		tracer:        cfg.Tracer,
		virtualNodes:  cfg.VirtualNodes,
	}
}

// Size returns the number of ring entries (primaries plus replicas).
func (b *Balancer) Size() int { return len(b.entries) }

func (b *Balancer) sortEntries() {
	sort.Slice(b.entries, func(i, j int) bool {
		if b.entries[i].hash() != b.entries[j].hash() {
			return b.entries[i].hash() < b.entries[j].hash()
		}
		return b.entries[i].id() < b.entries[j].id()
	})
}

// forward finds the index of the ring entry that owns hash h: the first
// entry whose hash is strictly greater than h, wrapping to index 0 if none
// exists (h is greater than every entry's hash).
func (b *Balancer) forward(h uint32) int {
	for i, e := range b.entries {
		if e.hash() > h {
			return i
		}
	}
	return 0
}

// ownerOf resolves which primary family owns document key under the
// current ring: the first ring entry (primary or replica) whose hash
// strictly exceeds hash(key), stripped down to its primary family.
func (b *Balancer) ownerOf(key string) uint32 {
	idx := b.forward(b.hash(key))
	return family(b.entries[idx].id())
}

// entryIndex returns the index of the ring entry with the given ring id,
// or -1.
func (b *Balancer) entryIndex(id uint32) int {
	for i, e := range b.entries {
		if e.id() == id {
			return i
		}
	}
	return -1
}

// nextOutsideFamily scans forward circularly from index start (exclusive)
// and returns the index of the first entry belonging to a different
// primary family than excludeFamily.
func (b *Balancer) nextOutsideFamily(start int, excludeFamily uint32) int {
	n := len(b.entries)
	for step := 1; step <= n; step++ {
		idx := (start + step) % n
		if family(b.entries[idx].id()) != excludeFamily {
			return idx
		}
	}
	return -1
}

// Forward routes req to the server that should handle it and returns its
// response. GET requests resolve to the specific replica whose ring hash
// strictly exceeds the document's hash (which is possibly a virtual
// node); EDIT requests are routed identically, since the replica
// redirects storage to its primary either way.
func (b *Balancer) Forward(req docstore.Request) docstore.Response {
	if b.tracer != nil {
		_, span := b.tracer.Start(context.Background(), "docring.forward", map[string]string{
			"doc_name":   req.DocName,
			"request_id": req.RequestID.String(),
		})
		defer span.End()
	}

	if len(b.entries) == 0 {
		return docstore.Response{ServerLog: docstore.LogFault()}
	}
	idx := b.forward(b.hash(req.DocName))
	resp := b.entries[idx].srv.Handle(req)
	if b.metrics != nil {
		b.metrics.SetGauge("docring_ring_size", nil, float64(len(b.entries)))
	}
	return resp
}

// Stats returns a point-in-time snapshot for every distinct primary
// server on the ring (replicas are not reported separately, since they
// hold no storage of their own).
func (b *Balancer) Stats() []docserver.Stats {
	seen := make(map[uint32]bool, len(b.entries))
	stats := make([]docserver.Stats, 0, len(b.entries))
	for _, e := range b.entries {
		fam := family(e.id())
		if e.id() != fam || seen[fam] {
			continue
		}
		seen[fam] = true
		stats = append(stats, e.srv.Stats())
	}
	return stats
}
