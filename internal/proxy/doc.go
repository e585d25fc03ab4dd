// Package proxy provides the default handlers created for deployed APIs.
//
// A Handler forwards HTTP requests to the API target through a reverse proxy
// and relays raw TCP (TLS passthrough) connections to the same target. The
// acceptor matched for a request decides which part of the path is stripped
// before forwarding.
package proxy
