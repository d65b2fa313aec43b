package docstore

import "fmt"

// Log templates. Exact wording is required for byte-compatibility with a
// reference driver; the template names below are mnemonics, not part of
// the emitted text itself.

// LogHit is printed when a document is served straight from cache.
func LogHit() string { return "cache hit" }

// LogMiss is printed when a document is promoted from local_db into
// cache without evicting anything.
func LogMiss() string { return "cache miss" }

// LogEvict is printed when promoting a document into cache evicted
// another.
func LogEvict(evictedKey string) string {
	return fmt.Sprintf("cache miss; evicted %s", evictedKey)
}

// LogFault is printed when a document exists in neither cache nor db.
func LogFault() string { return "document not found" }

// LogLazyExec is printed when an EDIT is enqueued rather than applied.
func LogLazyExec(depth int) string {
	return fmt.Sprintf("queued; depth=%d", depth)
}

// LogMissOrEvict is the common "did this install evict something" branch
// shared by apply_edit and get_document.
func LogMissOrEvict(evictedKey *string) string {
	if evictedKey != nil {
		return LogEvict(*evictedKey)
	}
	return LogMiss()
}

// Response body templates.

// MsgEditQueued is the response body for a freshly enqueued EDIT.
func MsgEditQueued(name string) string { return fmt.Sprintf("EDIT %s", name) }

// MsgUpdated is the response body when an EDIT updates an existing
// document.
func MsgUpdated(name string) string { return fmt.Sprintf("document %s", name) }

// MsgCreated is the response body when an EDIT creates a new document.
func MsgCreated(name string) string { return fmt.Sprintf("new document %s", name) }

// Print renders a Response using the two-line host template:
//
//	Server <id> has received <body>
//	Server <id> <log>
func (r Response) Print() string {
	body := ""
	if r.ServerResponse != nil {
		body = *r.ServerResponse
	}
	return fmt.Sprintf("Server %d has received %s\nServer %d %s\n", r.ServerID, body, r.ServerID, r.ServerLog)
}
