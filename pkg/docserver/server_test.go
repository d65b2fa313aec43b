package docserver_test

import (
	"testing"

	"github.com/developer-mesh/docring/pkg/docserver"
	"github.com/developer-mesh/docring/pkg/docstore"
	"github.com/developer-mesh/docring/pkg/hashfn"
	"github.com/developer-mesh/docring/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *docserver.Server {
	return docserver.New(1, 2, hashfn.FNV1aString, docstore.DiscardSink, observability.NewNoopLogger(), &observability.NoopMetricsClient{})
}

func TestServer_EditThenGet(t *testing.T) {
	s := newTestServer()

	editResp := s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc1", DocContent: []byte("hello")})
	require.NotNil(t, editResp.ServerResponse)
	assert.Equal(t, "EDIT doc1", *editResp.ServerResponse)
	assert.Equal(t, "queued; depth=1", editResp.ServerLog)

	getResp := s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})
	require.NotNil(t, getResp.ServerResponse)
	assert.Equal(t, "hello", *getResp.ServerResponse)
	assert.Equal(t, "cache hit", getResp.ServerLog)
}

func TestServer_GetFaultWhenAbsent(t *testing.T) {
	s := newTestServer()
	resp := s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "missing"})
	assert.Nil(t, resp.ServerResponse)
	assert.Equal(t, "document not found", resp.ServerLog)
}

func TestServer_GetAfterCacheHit(t *testing.T) {
	s := newTestServer()
	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc1", DocContent: []byte("v1")})
	s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})

	resp := s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})
	assert.Equal(t, "cache hit", resp.ServerLog)
	assert.Equal(t, "v1", *resp.ServerResponse)
}

func TestServer_EditOnExistingDocumentReportsUpdate(t *testing.T) {
	s := newTestServer()
	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc1", DocContent: []byte("v1")})
	s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})

	var captured []docstore.Response
	s2 := docserver.New(1, 2, hashfn.FNV1aString, docstore.ResponseSinkFunc(func(r docstore.Response) {
		captured = append(captured, r)
	}), observability.NewNoopLogger(), &observability.NoopMetricsClient{})

	s2.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc1", DocContent: []byte("v1")})
	s2.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})

	s2.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc1", DocContent: []byte("v2")})
	resp := s2.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})

	require.Len(t, captured, 2)
	assert.Equal(t, "document doc1", *captured[1].ServerResponse)
	assert.Equal(t, "v2", *resp.ServerResponse)
}

func TestServer_EvictionOnApplyEdit(t *testing.T) {
	s := newTestServer()
	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "A", DocContent: []byte("1")})
	s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "A"})
	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "B", DocContent: []byte("2")})
	s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "B"})

	var captured []docstore.Response
	sink := docstore.ResponseSinkFunc(func(r docstore.Response) { captured = append(captured, r) })
	s2 := docserver.New(2, 2, hashfn.FNV1aString, sink, observability.NewNoopLogger(), &observability.NoopMetricsClient{})
	s2.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "A", DocContent: []byte("1")})
	s2.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "A"})
	s2.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "B", DocContent: []byte("2")})
	s2.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "B"})
	s2.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "C", DocContent: []byte("3")})
	s2.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "C"})

	found := false
	for _, r := range captured {
		if r.ServerLog == "cache miss; evicted A" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestServer_TwoQueuedEditsFlushInOrderOnGet(t *testing.T) {
	var captured []docstore.Response
	sink := docstore.ResponseSinkFunc(func(r docstore.Response) { captured = append(captured, r) })
	s := docserver.New(1, 4, hashfn.FNV1aString, sink, observability.NewNoopLogger(), &observability.NoopMetricsClient{})

	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc", DocContent: []byte("hi")})
	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc", DocContent: []byte("bye")})
	resp := s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc"})

	require.Len(t, captured, 2)
	assert.Equal(t, "new document doc", *captured[0].ServerResponse)
	assert.Equal(t, "document doc", *captured[1].ServerResponse)
	assert.Equal(t, "bye", *resp.ServerResponse)
	assert.Equal(t, "cache hit", resp.ServerLog)
}

func TestServer_QueueFlushOrderingAcrossTwoKeys(t *testing.T) {
	var captured []docstore.Response
	sink := docstore.ResponseSinkFunc(func(r docstore.Response) { captured = append(captured, r) })
	s := docserver.New(1, 4, hashfn.FNV1aString, sink, observability.NewNoopLogger(), &observability.NoopMetricsClient{})

	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "a", DocContent: []byte("1")})
	s.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "b", DocContent: []byte("2")})
	resp := s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "a"})

	require.Len(t, captured, 2)
	assert.Equal(t, "new document a", *captured[0].ServerResponse, "a's edit must flush before b's")
	assert.Equal(t, "new document b", *captured[1].ServerResponse)
	assert.Equal(t, "1", *resp.ServerResponse)

	getB := s.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "b"})
	assert.Equal(t, "2", *getB.ServerResponse)
}

func TestServer_ReplicaRedirectsToPrimary(t *testing.T) {
	primary := newTestServer()
	replica := docserver.NewReplica(100001, primary)

	replica.Handle(docstore.Request{Type: docstore.RequestEdit, DocName: "doc1", DocContent: []byte("v1")})
	resp := replica.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})

	assert.Equal(t, uint32(100001), resp.ServerID)
	assert.Equal(t, "v1", *resp.ServerResponse)

	primaryResp := primary.Handle(docstore.Request{Type: docstore.RequestGet, DocName: "doc1"})
	assert.Equal(t, "cache hit", primaryResp.ServerLog)
}
