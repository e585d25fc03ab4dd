package acceptor

import (
	"fmt"
)

// DefaultPath is the path used when a handler declares no entrypoint.
const DefaultPath = "/"

// VirtualHost describes one configured HTTP entrypoint.
type VirtualHost struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Path string `json:"path" yaml:"path"`
}

// Entrypoint is a descriptor declared by a deployable unit. HTTP
// entrypoints carry a path; TCP entrypoints carry a host and no path.
type Entrypoint struct {
	Kind      Kind     `json:"kind" yaml:"kind"`
	Host      string   `json:"host,omitempty" yaml:"host,omitempty"`
	Path      string   `json:"path,omitempty" yaml:"path,omitempty"`
	ServerIDs []string `json:"serverIds,omitempty" yaml:"serverIds,omitempty"`
}

// HTTPEntrypoint builds an HTTP entrypoint from a virtual host.
func HTTPEntrypoint(vh VirtualHost, serverIDs ...string) Entrypoint {
	return Entrypoint{Kind: KindHTTP, Host: vh.Host, Path: vh.Path, ServerIDs: serverIDs}
}

// TCPEntrypoint builds a TCP entrypoint for host.
func TCPEntrypoint(host string, serverIDs ...string) Entrypoint {
	return Entrypoint{Kind: KindTCP, Host: host, ServerIDs: serverIDs}
}

// New builds the acceptor described by the entrypoint.
func (e Entrypoint) New(owner Owner) (Acceptor, error) {
	switch e.Kind {
	case KindHTTP, "":
		return NewHTTPAcceptor(e.Path,
			WithHost(e.Host),
			WithOwner(owner),
			WithServerIDs(e.ServerIDs...),
		)
	case KindTCP:
		return NewTCPAcceptor(e.Host,
			WithTCPOwner(owner),
			WithTCPServerIDs(e.ServerIDs...),
		)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAcceptor, e.Kind)
	}
}

// FromEntrypoints builds one acceptor per entrypoint, in declaration order.
// Without entrypoints it returns a single host-less HTTP acceptor on "/".
func FromEntrypoints(owner Owner, entrypoints []Entrypoint) ([]Acceptor, error) {
	if len(entrypoints) == 0 {
		a, err := NewHTTPAcceptor(DefaultPath, WithOwner(owner))
		if err != nil {
			return nil, err
		}
		return []Acceptor{a}, nil
	}

	acceptors := make([]Acceptor, 0, len(entrypoints))
	for i, ep := range entrypoints {
		a, err := ep.New(owner)
		if err != nil {
			return nil, fmt.Errorf("entrypoint %d: %w", i, err)
		}
		acceptors = append(acceptors, a)
	}
	return acceptors, nil
}
