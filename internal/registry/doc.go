// Package registry holds the authoritative, concurrency-safe routing table
// of the gateway: the sorted acceptors of every deployed reactable.
//
// Writers (Create, Update, Remove, Clear) are serialized by a mutex and
// publish each change as one immutable snapshot per acceptor kind.
// Readers (Ascend, Acceptors) load the current snapshot without locking, so
// resolution never waits on a deployment and never observes a half-applied
// update.
//
// # Usage
//
//	reg := registry.New(factory, registry.WithLogger(logger), registry.WithMetrics(metrics))
//	if err := reg.Create(ctx, api); err != nil {
//	    return err
//	}
//
//	reg.Ascend(acceptor.KindHTTP, func(a acceptor.Acceptor) bool {
//	    fmt.Println(a)
//	    return true
//	})
package registry
