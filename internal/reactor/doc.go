// Package reactor defines the deployable units of the gateway and the
// lifecycle that turns them into routable handlers.
//
// A Reactable is a deployable API. A HandlerFactory turns it into a Handler,
// which exposes the acceptors the registry publishes. The lifecycle Adapter
// maps deploy, update, undeploy and stop notifications onto registry calls.
//
//	adapter := reactor.NewAdapter(reg, reactor.WithAdapterLogger(logger))
//	go adapter.Run(ctx, events)
package reactor
