// Package admin serves the administration API of the gateway.
//
// Endpoints:
//
//	GET /acceptors/http   HTTP acceptors in resolution order
//	GET /acceptors/tcp    TCP acceptors in resolution order
//	GET /apis             deployed APIs
//	GET /apis/:id         one deployed API
//	GET /health           liveness
//	GET /ready            readiness
//	GET /metrics          Prometheus metrics
package admin
