package acceptor

import (
	"fmt"
	"strings"
)

// TCPAcceptor accepts raw connections by exact server name.
type TCPAcceptor struct {
	host      string
	serverIDs serverIDSet
	owner     Owner
	seq       uint64
}

// TCPOption configures a TCPAcceptor.
type TCPOption func(*TCPAcceptor)

// WithTCPOwner sets the handler the acceptor routes to.
func WithTCPOwner(owner Owner) TCPOption {
	return func(a *TCPAcceptor) {
		a.owner = owner
	}
}

// WithTCPServerIDs restricts the acceptor to connections received by the given servers.
func WithTCPServerIDs(ids ...string) TCPOption {
	return func(a *TCPAcceptor) {
		a.serverIDs = newServerIDSet(ids)
	}
}

// NewTCPAcceptor creates a TCP acceptor for host. An empty host accepts
// only connections that carry no server name.
func NewTCPAcceptor(host string, opts ...TCPOption) (*TCPAcceptor, error) {
	if host != strings.TrimSpace(host) {
		return nil, fmt.Errorf("%w: tcp host %q has surrounding spaces", ErrInvalidAcceptor, host)
	}

	a := &TCPAcceptor{
		host: host,
		seq:  nextSequence(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Kind implements Acceptor.
func (a *TCPAcceptor) Kind() Kind {
	return KindTCP
}

// Owner implements Acceptor.
func (a *TCPAcceptor) Owner() Owner {
	return a.owner
}

// Sequence implements Acceptor.
func (a *TCPAcceptor) Sequence() uint64 {
	return a.seq
}

// Host returns the server name the acceptor is bound to, or "".
func (a *TCPAcceptor) Host() string {
	return a.host
}

// ServerIDs returns the restricted server ids sorted ascending, or nil.
func (a *TCPAcceptor) ServerIDs() []string {
	return a.serverIDs.ids()
}

// Matches reports whether a connection for host received by serverID is
// accepted. Hosts must be equal, so an unset host only matches an unset
// request host; there is no prefix or wildcard matching.
func (a *TCPAcceptor) Matches(host, serverID string) bool {
	return a.host == host && a.serverIDs.allows(serverID)
}

// Accept implements Acceptor.
func (a *TCPAcceptor) Accept(req Request) bool {
	return a.Matches(req.Host, req.ServerID)
}

// String implements fmt.Stringer.
func (a *TCPAcceptor) String() string {
	return fmt.Sprintf("tcp[%s]", a.host)
}
