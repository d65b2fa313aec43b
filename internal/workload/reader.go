// Package workload parses a line-oriented request stream into operations
// for a ring.Balancer, stamping every request with a correlation id.
// Running the operations is left to the caller.
package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/developer-mesh/docring/pkg/docstore"
)

// OpKind distinguishes the four lines a workload file can contain.
type OpKind int

const (
	OpEdit OpKind = iota
	OpGet
	OpAddServer
	OpRemoveServer
)

// Op is one parsed workload line.
type Op struct {
	Kind          OpKind
	Request       docstore.Request
	ServerID      uint32
	CacheCapacity int
}

// Reader tokenizes a workload stream one line at a time. Supported line
// shapes:
//
//	EDIT <name> <content...>
//	GET <name>
//	ADD_SERVER <id> <cache_capacity>
//	REMOVE_SERVER <id>
//
// Blank lines and lines starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
}

// New wraps r as a Reader.
func New(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next parses and returns the next Op, or io.EOF once the stream is
// exhausted. A malformed line returns a descriptive error; the caller
// decides whether to skip it or abort.
func (r *Reader) Next() (Op, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return parseLine(line)
	}
	if err := r.scanner.Err(); err != nil {
		return Op{}, err
	}
	return Op{}, io.EOF
}

func parseLine(line string) (Op, error) {
	fields := strings.SplitN(line, " ", 3)
	switch strings.ToUpper(fields[0]) {
	case "EDIT":
		if len(fields) < 3 {
			return Op{}, fmt.Errorf("workload: EDIT requires a name and content: %q", line)
		}
		return Op{Kind: OpEdit, Request: docstore.Request{
			RequestID:  uuid.New(),
			Type:       docstore.RequestEdit,
			DocName:    fields[1],
			DocContent: []byte(fields[2]),
		}}, nil

	case "GET":
		if len(fields) < 2 {
			return Op{}, fmt.Errorf("workload: GET requires a name: %q", line)
		}
		return Op{Kind: OpGet, Request: docstore.Request{
			RequestID: uuid.New(),
			Type:      docstore.RequestGet,
			DocName:   fields[1],
		}}, nil

	case "ADD_SERVER":
		if len(fields) < 3 {
			return Op{}, fmt.Errorf("workload: ADD_SERVER requires an id and cache_capacity: %q", line)
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Op{}, fmt.Errorf("workload: ADD_SERVER id: %w", err)
		}
		capacity, err := strconv.Atoi(fields[2])
		if err != nil {
			return Op{}, fmt.Errorf("workload: ADD_SERVER cache_capacity: %w", err)
		}
		return Op{Kind: OpAddServer, ServerID: uint32(id), CacheCapacity: capacity}, nil

	case "REMOVE_SERVER":
		if len(fields) < 2 {
			return Op{}, fmt.Errorf("workload: REMOVE_SERVER requires an id: %q", line)
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Op{}, fmt.Errorf("workload: REMOVE_SERVER id: %w", err)
		}
		return Op{Kind: OpRemoveServer, ServerID: uint32(id)}, nil

	default:
		return Op{}, fmt.Errorf("workload: unrecognized operation %q", fields[0])
	}
}
