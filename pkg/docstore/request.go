// Package docstore defines the request/response types shared by the
// per-server pipeline (pkg/docserver) and the ring (pkg/ring), and the
// exact log/response templates the design requires for byte-compatible
// output.
package docstore

import "github.com/google/uuid"

// RequestType distinguishes the two request shapes the balancer accepts.
type RequestType int

const (
	// RequestEdit replaces a document's content, deferred onto the
	// owning server's task queue until the next GET.
	RequestEdit RequestType = iota
	// RequestGet retrieves a document's content, first flushing any
	// deferred edits targeting the same server.
	RequestGet
)

// Request is a single EDIT or GET against a named document.
type Request struct {
	// RequestID correlates a request across logs, traces and responses.
	// It has no bearing on ring routing or server-side semantics.
	RequestID uuid.UUID
	Type      RequestType
	DocName   string
	// DocContent is the new content for an EDIT; nil for a GET.
	DocContent []byte
}

// Response is the triple every request produces: a log line describing
// what happened server-side, an optional response body, and the id of the
// server that was addressed (which, under virtual nodes, may be a
// replica's id rather than its primary's).
type Response struct {
	ServerLog string
	// ServerResponse is nil only for a FAULT (document not found on a
	// GET); every other outcome carries a body, even if it is the empty
	// string for an edit that wrote empty content.
	ServerResponse *string
	ServerID       uint32
}

// ResponseSink is the injection point for wherever a Response ends up.
// The per-server pipeline calls Emit once per deferred edit it applies
// while draining its queue, in addition to the caller receiving the
// final Response as a return value.
type ResponseSink interface {
	Emit(Response)
}

// ResponseSinkFunc adapts a function to a ResponseSink.
type ResponseSinkFunc func(Response)

func (f ResponseSinkFunc) Emit(r Response) { f(r) }

// DiscardSink is a ResponseSink that does nothing; used when draining a
// queue whose emitted responses have nowhere useful to go (e.g. a test
// that only cares about the final read).
var DiscardSink ResponseSink = ResponseSinkFunc(func(Response) {})
