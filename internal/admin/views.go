package admin

import (
	"net/url"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/registry"
)

// AcceptorView is the JSON form of an acceptor.
type AcceptorView struct {
	Kind      acceptor.Kind `json:"kind" yaml:"kind"`
	Host      string        `json:"host,omitempty" yaml:"host,omitempty"`
	Path      string        `json:"path,omitempty" yaml:"path,omitempty"`
	Priority  int           `json:"priority,omitempty" yaml:"priority,omitempty"`
	ServerIDs []string      `json:"serverIds,omitempty" yaml:"serverIds,omitempty"`
	API       string        `json:"api,omitempty" yaml:"api,omitempty"`
	Sequence  uint64        `json:"sequence" yaml:"sequence"`
}

// DeploymentView is the JSON form of a deployed API.
type DeploymentView struct {
	ID        string         `json:"id" yaml:"id"`
	Target    string         `json:"target,omitempty" yaml:"target,omitempty"`
	Acceptors []AcceptorView `json:"acceptors" yaml:"acceptors"`
}

// NewAcceptorView describes a.
func NewAcceptorView(a acceptor.Acceptor) AcceptorView {
	v := AcceptorView{
		Kind:     a.Kind(),
		Sequence: a.Sequence(),
	}
	if owner := a.Owner(); owner != nil {
		v.API = owner.ID()
	}

	switch a := a.(type) {
	case *acceptor.HTTPAcceptor:
		v.Host = a.Host()
		v.Path = a.Path()
		v.Priority = a.Priority()
		v.ServerIDs = a.ServerIDs()
	case *acceptor.TCPAcceptor:
		v.Host = a.Host()
		v.ServerIDs = a.ServerIDs()
	}
	return v
}

// NewAcceptorViews describes acceptors, keeping their order.
func NewAcceptorViews[T acceptor.Acceptor](acceptors []T) []AcceptorView {
	views := make([]AcceptorView, 0, len(acceptors))
	for _, a := range acceptors {
		views = append(views, NewAcceptorView(a))
	}
	return views
}

// NewDeploymentView describes d.
func NewDeploymentView(d registry.Deployment) DeploymentView {
	v := DeploymentView{
		ID:        d.ID,
		Acceptors: NewAcceptorViews(d.Acceptors),
	}
	if t, ok := d.Handler.(interface{ Target() *url.URL }); ok && t.Target() != nil {
		v.Target = t.Target().String()
	}
	return v
}
