// Package docserver implements the per-server request pipeline: a cache
// tier, an effectively-unbounded local database tier, a deferred-edit
// queue, and the lazy-execution state machine that ties them together.
package docserver

import (
	"fmt"

	"github.com/developer-mesh/docring/pkg/docstore"
	"github.com/developer-mesh/docring/pkg/hashfn"
	"github.com/developer-mesh/docring/pkg/lru"
	"github.com/developer-mesh/docring/pkg/observability"
)

// localDBMultiplier is how much larger the local database is than the
// cache sitting in front of it, large enough that it never evicts for
// any workload this system is sized for, per the data model.
const localDBMultiplier = 1000

// Server owns one cache, one local database and one task queue, OR, if it
// is a virtual-node replica, none of those: it redirects every storage
// access to OriginalServer. Ring position (ID, Hash) is carried on every
// Server, including replicas, since that's what the ring sorts on.
type Server struct {
	ID   uint32
	Hash uint32

	Cache   *lru.Cache
	LocalDB *lru.Cache
	queue   *taskQueue

	// OriginalServer is nil for a primary, and points at the primary for
	// a virtual-node replica. A replica's Cache/LocalDB/queue fields are
	// left nil; every accessor goes through Primary() first.
	OriginalServer *Server

	logger  observability.Logger
	metrics observability.MetricsClient
	sink    docstore.ResponseSink
}

// New creates a primary server with the given cache capacity. Hash must be
// set by the caller (the ring assigns ring positions, not the server
// itself).
func New(id uint32, cacheCapacity int, hash hashfn.StringHash, sink docstore.ResponseSink, logger observability.Logger, metrics observability.MetricsClient) *Server {
	return &Server{
		ID:      id,
		Cache:   lru.New(cacheCapacity, hash),
		LocalDB: lru.New(cacheCapacity*localDBMultiplier, hash),
		queue:   newTaskQueue(taskQueueDepth),
		logger:  logger,
		metrics: metrics,
		sink:    sink,
	}
}

// NewReplica creates a virtual-node ring entry that claims a ring position
// but holds no storage of its own; every read/write redirects to primary.
func NewReplica(id uint32, primary *Server) *Server {
	return &Server{
		ID:             id,
		OriginalServer: primary,
		logger:         primary.logger,
		metrics:        primary.metrics,
		sink:           primary.sink,
	}
}

// IsReplica reports whether this ring entry redirects to another server's
// storage.
func (s *Server) IsReplica() bool { return s.OriginalServer != nil }

// Primary returns the server whose Cache/LocalDB/queue actually hold data:
// itself if it is a primary, or OriginalServer if it is a replica.
func (s *Server) Primary() *Server {
	if s.OriginalServer != nil {
		return s.OriginalServer
	}
	return s
}

// Stats is a point-in-time snapshot of a server's storage, used by the
// admin introspection surface.
type Stats struct {
	ServerID        uint32
	IsReplica       bool
	CacheSize       int
	CacheCapacity   int
	LocalDBSize     int
	LocalDBCapacity int
	QueueDepth      int
}

// Stats returns a snapshot of the server's (or, for a replica, its
// primary's) storage.
func (s *Server) Stats() Stats {
	p := s.Primary()
	return Stats{
		ServerID:        s.ID,
		IsReplica:       s.IsReplica(),
		CacheSize:       p.Cache.Size(),
		CacheCapacity:   p.Cache.Capacity(),
		LocalDBSize:     p.LocalDB.Size(),
		LocalDBCapacity: p.LocalDB.Capacity(),
		QueueDepth:      p.queue.depth(),
	}
}

// Handle implements the request state machine: EDIT enqueues and returns a
// lazy-exec response immediately; GET first drains the task queue, applying
// each deferred edit (and emitting its response through the sink) before
// performing the read.
func (s *Server) Handle(req docstore.Request) docstore.Response {
	switch req.Type {
	case docstore.RequestEdit:
		return s.handleEdit(req)
	default:
		s.drainQueue()
		return s.getDocument(req.DocName)
	}
}

func (s *Server) handleEdit(req docstore.Request) docstore.Response {
	p := s.Primary()
	depth, accepted := p.queue.enqueue(editTask{name: req.DocName, content: req.DocContent})
	if !accepted {
		s.logger.Warn("task queue full, dropping edit", map[string]interface{}{
			"server_id": s.ID,
			"doc_name":  req.DocName,
		})
	}
	if s.metrics != nil {
		labels := map[string]string{"server_id": fmt.Sprintf("%d", p.ID)}
		s.metrics.SetGauge("docring_queue_depth", labels, float64(depth))
	}

	body := docstore.MsgEditQueued(req.DocName)
	return docstore.Response{
		ServerLog:      docstore.LogLazyExec(depth),
		ServerResponse: &body,
		ServerID:       s.ID,
	}
}

// DrainQueueForMigration flushes any deferred edits before the ring moves
// keys off of this server, so migration never races a pending edit.
func (s *Server) DrainQueueForMigration() { s.drainQueue() }

// drainQueue applies every deferred edit in FIFO order, emitting each
// response through the server's sink as a side effect, exactly as the
// design's "lazy execution" contract requires.
func (s *Server) drainQueue() {
	p := s.Primary()
	for {
		task, ok := p.queue.dequeue()
		if !ok {
			break
		}
		resp := s.applyEdit(task.name, task.content)
		s.sink.Emit(resp)
		if s.metrics != nil {
			labels := map[string]string{"server_id": fmt.Sprintf("%d", p.ID)}
			s.metrics.SetGauge("docring_queue_depth", labels, float64(p.queue.depth()))
		}
	}
}

// applyEdit is the EDIT side of the design's §4.2 state machine: a cache
// hit is always an update (a key that exists can't trigger an eviction on
// put); a cache miss installs the new content into both tiers and
// classifies the outcome by whether the document already existed in
// local_db.
func (s *Server) applyEdit(name string, content []byte) docstore.Response {
	p := s.Primary()

	if _, hit := p.Cache.Get(name); hit {
		s.recordCacheOp("cache", "hit")
		p.Cache.Put(name, content)
		p.LocalDB.Put(name, content)
		body := docstore.MsgUpdated(name)
		return docstore.Response{ServerLog: docstore.LogHit(), ServerResponse: &body, ServerID: s.ID}
	}

	_, dbHit := p.LocalDB.Get(name)
	s.recordCacheOp("local_db", hitMissLabel(dbHit))
	_, evictedKey := p.Cache.Put(name, content)
	p.LocalDB.Put(name, content)
	s.recordCacheInstall(evictedKey)

	log := docstore.LogMissOrEvict(evictedKey)
	if dbHit {
		body := docstore.MsgUpdated(name)
		return docstore.Response{ServerLog: log, ServerResponse: &body, ServerID: s.ID}
	}
	body := docstore.MsgCreated(name)
	return docstore.Response{ServerLog: log, ServerResponse: &body, ServerID: s.ID}
}

// getDocument is the GET side of the design's §4.2 state machine.
func (s *Server) getDocument(name string) docstore.Response {
	p := s.Primary()

	if v, hit := p.Cache.Get(name); hit {
		s.recordCacheOp("cache", "hit")
		body := string(v)
		return docstore.Response{ServerLog: docstore.LogHit(), ServerResponse: &body, ServerID: s.ID}
	}

	v, hit := p.LocalDB.Get(name)
	s.recordCacheOp("local_db", hitMissLabel(hit))
	if hit {
		_, evictedKey := p.Cache.Put(name, v)
		s.recordCacheInstall(evictedKey)
		body := string(v)
		return docstore.Response{ServerLog: docstore.LogMissOrEvict(evictedKey), ServerResponse: &body, ServerID: s.ID}
	}

	return docstore.Response{ServerLog: docstore.LogFault(), ServerResponse: nil, ServerID: s.ID}
}

// hitMissLabel maps a lookup outcome to the result label recorded on
// docring_cache_operations_total.
func hitMissLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// recordCacheOp records one lookup outcome against the named tier (cache or
// local_db).
func (s *Server) recordCacheOp(tier, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementCounter("docring_cache_operations_total", map[string]string{"operation": "lookup", "tier": tier, "result": result}, 1)
}

// recordCacheInstall records the result of installing a value into the
// cache tier (miss or evict; a cache hit never reaches this path since
// Cache.Put on an existing key never evicts), logs an eviction when one
// occurs, and refreshes the cache size gauge.
func (s *Server) recordCacheInstall(evictedKey *string) {
	if evictedKey != nil {
		s.recordCacheOp("cache", "evict")
		s.logger.Info("cache eviction", map[string]interface{}{
			"server_id":   s.ID,
			"evicted_key": *evictedKey,
		})
	} else {
		s.recordCacheOp("cache", "miss")
	}
	if s.metrics != nil {
		s.metrics.SetGauge("docring_cache_size", map[string]string{"tier": "cache"}, float64(s.Primary().Cache.Size()))
	}
}
