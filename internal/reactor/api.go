package reactor

import (
	"slices"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
)

// TCPHost is a TCP entrypoint of an API: an optional TLS server name and an
// optional server restriction. Without a host it serves connections that
// send no server name.
type TCPHost struct {
	Host      string   `json:"host,omitempty" yaml:"host,omitempty"`
	ServerIDs []string `json:"serverIds,omitempty" yaml:"serverIds,omitempty"`
}

// VirtualHost is an HTTP entrypoint of an API.
type VirtualHost struct {
	Host      string   `json:"host,omitempty" yaml:"host,omitempty"`
	Path      string   `json:"path" yaml:"path"`
	ServerIDs []string `json:"serverIds,omitempty" yaml:"serverIds,omitempty"`
}

// API is the deployable definition of an API.
type API struct {
	Name         string        `json:"name" yaml:"name"`
	Identifier   string        `json:"id" yaml:"id"`
	Disabled     bool          `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	VirtualHosts []VirtualHost `json:"virtualHosts,omitempty" yaml:"virtualHosts,omitempty"`
	TCPHosts     []TCPHost     `json:"tcpHosts,omitempty" yaml:"tcpHosts,omitempty"`
	Target       string        `json:"target" yaml:"target"`
}

var _ Reactable = (*API)(nil)

// ID implements Reactable.
func (a *API) ID() string {
	return a.Identifier
}

// Enabled implements Reactable.
func (a *API) Enabled() bool {
	return !a.Disabled
}

// Entrypoints implements Reactable. Virtual hosts come first, in declaration
// order, followed by TCP hosts.
func (a *API) Entrypoints() []acceptor.Entrypoint {
	if len(a.VirtualHosts) == 0 && len(a.TCPHosts) == 0 {
		return nil
	}

	eps := make([]acceptor.Entrypoint, 0, len(a.VirtualHosts)+len(a.TCPHosts))
	for _, vh := range a.VirtualHosts {
		eps = append(eps, acceptor.HTTPEntrypoint(
			acceptor.VirtualHost{Host: vh.Host, Path: vh.Path},
			vh.ServerIDs...,
		))
	}
	for _, th := range a.TCPHosts {
		eps = append(eps, acceptor.TCPEntrypoint(th.Host, th.ServerIDs...))
	}
	return eps
}

// Equal reports whether two definitions describe the same deployment.
func (a *API) Equal(b *API) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Identifier != b.Identifier || a.Disabled != b.Disabled || a.Target != b.Target {
		return false
	}
	if len(a.VirtualHosts) != len(b.VirtualHosts) || len(a.TCPHosts) != len(b.TCPHosts) {
		return false
	}
	for i := range a.VirtualHosts {
		if !a.VirtualHosts[i].equal(b.VirtualHosts[i]) {
			return false
		}
	}
	for i := range a.TCPHosts {
		if !a.TCPHosts[i].equal(b.TCPHosts[i]) {
			return false
		}
	}
	return true
}

func (v VirtualHost) equal(o VirtualHost) bool {
	return v.Host == o.Host && v.Path == o.Path && slices.Equal(v.ServerIDs, o.ServerIDs)
}

func (t TCPHost) equal(o TCPHost) bool {
	return t.Host == o.Host && slices.Equal(t.ServerIDs, o.ServerIDs)
}
