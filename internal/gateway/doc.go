// Package gateway runs the entrypoint servers that feed requests and
// connections into the acceptor resolver.
//
// One server is started per configured server id:
//
//   - HTTPServer resolves (host, path, server id) for every request and
//     serves it through the matched acceptor's owner when the owner is an
//     http.Handler. Unmatched requests are answered with a JSON 404.
//   - TCPServer peeks the TLS ClientHello, resolves (server name, server id)
//     and hands the connection to the owner when it is a ConnHandler.
//     A ClientHello without a server name resolves with an empty host.
//     Unmatched connections are closed.
//
// # Usage
//
//	gw, err := gateway.New(cfg, res,
//	    gateway.WithLogger(logger),
//	    gateway.WithMetrics(metrics),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := gw.Start(ctx); err != nil {
//	    return err
//	}
//	defer gw.Stop(context.Background())
package gateway
