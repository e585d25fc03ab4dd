package acceptor

import (
	"fmt"
	"strings"
)

// hostPriority is added to the priority of acceptors bound to a host so that
// they are always tried before host-less ones.
const hostPriority = 1000

// HTTPAcceptor accepts HTTP requests by host and path prefix.
type HTTPAcceptor struct {
	host      string
	path      string
	priority  int
	serverIDs serverIDSet
	owner     Owner
	seq       uint64
}

// HTTPOption configures an HTTPAcceptor.
type HTTPOption func(*HTTPAcceptor)

// WithHost binds the acceptor to a host. The host is compared
// case-insensitively; an empty host matches any request host.
func WithHost(host string) HTTPOption {
	return func(a *HTTPAcceptor) {
		a.host = strings.ToLower(host)
	}
}

// WithOwner sets the handler the acceptor routes to.
func WithOwner(owner Owner) HTTPOption {
	return func(a *HTTPAcceptor) {
		a.owner = owner
	}
}

// WithServerIDs restricts the acceptor to requests received by the given servers.
func WithServerIDs(ids ...string) HTTPOption {
	return func(a *HTTPAcceptor) {
		a.serverIDs = newServerIDSet(ids)
	}
}

// NewHTTPAcceptor creates an HTTP acceptor for the given path.
func NewHTTPAcceptor(path string, opts ...HTTPOption) (*HTTPAcceptor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: http acceptor requires a path", ErrInvalidAcceptor)
	}

	a := &HTTPAcceptor{
		path: NormalizePath(path),
		seq:  nextSequence(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.priority = strings.Count(a.path, "/")
	if a.host != "" {
		a.priority += hostPriority
	}

	return a, nil
}

// NormalizePath collapses repeated separators and guarantees exactly one
// leading and one trailing '/'.
func NormalizePath(path string) string {
	var sb strings.Builder
	sb.Grow(len(path) + 2)

	prevSlash := false
	if !strings.HasPrefix(path, "/") {
		sb.WriteByte('/')
		prevSlash = true
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		sb.WriteByte(c)
	}

	if !prevSlash {
		sb.WriteByte('/')
	}
	return sb.String()
}

// Kind implements Acceptor.
func (a *HTTPAcceptor) Kind() Kind {
	return KindHTTP
}

// Owner implements Acceptor.
func (a *HTTPAcceptor) Owner() Owner {
	return a.owner
}

// Sequence implements Acceptor.
func (a *HTTPAcceptor) Sequence() uint64 {
	return a.seq
}

// Host returns the lower-cased host, or an empty string when unbound.
func (a *HTTPAcceptor) Host() string {
	return a.host
}

// Path returns the normalized path.
func (a *HTTPAcceptor) Path() string {
	return a.path
}

// Priority returns the matching specificity of the acceptor.
func (a *HTTPAcceptor) Priority() int {
	return a.priority
}

// ServerIDs returns the restricted server ids sorted ascending, or nil.
func (a *HTTPAcceptor) ServerIDs() []string {
	return a.serverIDs.ids()
}

// Matches reports whether a request for host and path received by serverID
// is accepted.
func (a *HTTPAcceptor) Matches(host, path, serverID string) bool {
	if a.host != "" && a.host != strings.ToLower(host) {
		return false
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if !strings.HasPrefix(path, a.path) {
		return false
	}
	return a.serverIDs.allows(serverID)
}

// Accept implements Acceptor.
func (a *HTTPAcceptor) Accept(req Request) bool {
	return a.Matches(req.Host, req.Path, req.ServerID)
}

// String implements fmt.Stringer.
func (a *HTTPAcceptor) String() string {
	host := a.host
	if host == "" {
		host = "*"
	}
	return fmt.Sprintf("http[%s%s priority=%d]", host, a.path, a.priority)
}
