// Package acceptor defines the routing rules that bind incoming traffic to
// deployed API handlers.
//
// An acceptor is one entrypoint of a deployed API: a host and path for HTTP
// traffic, or a host (the TLS server name) for raw TCP connections. Each
// acceptor may be restricted to a set of server ids, which name the gateway
// listeners it is allowed to serve.
//
// # Ordering
//
// HTTP acceptors carry a priority derived from their specificity:
//
//	priority = (host set ? 1000 : 0) + number of '/' in the normalized path
//
// so "/" weighs 1, "/products/v1" weighs 3 and a host-qualified "/" weighs
// 1001. CompareHTTP orders acceptors by priority descending, then host
// (host-qualified first), then path, then construction sequence. The
// sequence number is unique per acceptor, so two acceptors never compare
// equal and sorted collections never collapse distinct entries.
//
// # Usage
//
//	a, err := acceptor.NewHTTPAcceptor("/products",
//	    acceptor.WithHost("api.example.com"),
//	    acceptor.WithServerIDs("http-public"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	a.Matches("API.example.com", "/products/42", "http-public") // true
package acceptor
