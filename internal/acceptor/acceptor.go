package acceptor

import (
	"errors"
	"sort"
	"sync/atomic"
)

// ErrInvalidAcceptor is returned when an acceptor is constructed with
// missing or malformed mandatory fields.
var ErrInvalidAcceptor = errors.New("invalid acceptor")

// Kind discriminates the acceptor variants.
type Kind string

const (
	// KindHTTP identifies host and path based acceptors.
	KindHTTP Kind = "http"
	// KindTCP identifies host (server name) based acceptors for raw connections.
	KindTCP Kind = "tcp"
)

// Kinds lists every acceptor kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindHTTP, KindTCP}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Owner is the handler an acceptor routes to. The acceptor package never
// interprets it beyond its identity.
type Owner interface {
	ID() string
}

// Request carries the values an acceptor is matched against.
// An empty ServerID means the request did not arrive through a named server.
type Request struct {
	Host     string
	Path     string
	ServerID string
}

// Acceptor is a single routing rule owned by a deployed handler.
// Acceptors are immutable once constructed.
type Acceptor interface {
	// Kind returns the acceptor variant.
	Kind() Kind
	// Owner returns the handler this acceptor routes to, or nil.
	Owner() Owner
	// Accept reports whether the request is accepted by this rule.
	Accept(req Request) bool
	// Sequence returns the construction sequence number, unique per process.
	Sequence() uint64
}

// sequence hands out construction sequence numbers.
var sequence atomic.Uint64

func nextSequence() uint64 {
	return sequence.Add(1)
}

// serverIDSet is an immutable set of server ids. A nil or empty set
// places no restriction.
type serverIDSet map[string]struct{}

func newServerIDSet(ids []string) serverIDSet {
	if len(ids) == 0 {
		return nil
	}
	set := make(serverIDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// allows reports whether serverID passes the restriction.
func (s serverIDSet) allows(serverID string) bool {
	if len(s) == 0 {
		return true
	}
	if serverID == "" {
		return false
	}
	_, ok := s[serverID]
	return ok
}

// ids returns the restricted ids sorted ascending.
func (s serverIDSet) ids() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
