package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

func httpAPI(id string, paths ...string) *reactor.API {
	api := &reactor.API{Name: id, Identifier: id}
	for _, p := range paths {
		api.VirtualHosts = append(api.VirtualHosts, reactor.VirtualHost{Path: p})
	}
	return api
}

func httpPaths(r *Registry) []string {
	var out []string
	for _, a := range r.HTTPAcceptors() {
		out = append(out, a.Host()+a.Path())
	}
	return out
}

func resolvable(r *Registry, path string) bool {
	found := false
	r.Ascend(acceptor.KindHTTP, func(a acceptor.Acceptor) bool {
		found = a.Accept(acceptor.Request{Path: path})
		return !found
	})
	return found
}

// recordingHandler counts lifecycle calls.
type recordingHandler struct {
	*reactor.BaseHandler
	started  atomic.Int32
	stopped  atomic.Int32
	stopErr  error
	startErr error
}

func (h *recordingHandler) Start(context.Context) error {
	h.started.Add(1)
	return h.startErr
}

func (h *recordingHandler) Stop(context.Context) error {
	h.stopped.Add(1)
	return h.stopErr
}

type recordingFactory struct {
	mu       sync.Mutex
	handlers []*recordingHandler
	err      error
}

func (f *recordingFactory) Create(r reactor.Reactable) (reactor.Handler, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := &recordingHandler{}
	base, err := reactor.NewBaseHandler(r, h)
	if err != nil {
		return nil, err
	}
	h.BaseHandler = base

	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
	return h, nil
}

func TestRegistry_CreateOrdersAcceptors(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("products-v1", "/products/v1")))
	require.NoError(t, r.Create(ctx, &reactor.API{
		Identifier:   "products-v2",
		VirtualHosts: []reactor.VirtualHost{{Host: "api.gravitee.io", Path: "/products/v2"}},
	}))
	require.NoError(t, r.Create(ctx, httpAPI("root")))

	want := []string{"api.gravitee.io/products/v2/", "/products/v1/", "/"}
	if diff := cmp.Diff(want, httpPaths(r)); diff != "" {
		t.Errorf("acceptor order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, r.Len(acceptor.KindHTTP))
	assert.Equal(t, 0, r.Len(acceptor.KindTCP))
}

func TestRegistry_CreateSplitsKinds(t *testing.T) {
	t.Parallel()

	r := New(nil)
	api := &reactor.API{
		Identifier:   "mixed",
		VirtualHosts: []reactor.VirtualHost{{Path: "/a"}},
		TCPHosts:     []reactor.TCPHost{{Host: "acme.com"}, {Host: "acme.net"}},
	}
	require.NoError(t, r.Create(context.Background(), api))

	assert.Len(t, r.Acceptors(acceptor.KindHTTP), 1)
	tcp := r.TCPAcceptors()
	require.Len(t, tcp, 2)
	assert.Equal(t, "acme.com", tcp[0].Host())
	assert.Equal(t, "acme.net", tcp[1].Host())

	d, ok := r.Deployment("mixed")
	require.True(t, ok)
	assert.Len(t, d.Acceptors, 3)
	assert.Equal(t, "mixed", d.Handler.ID())
}

func TestRegistry_CreateDisabledIsNoop(t *testing.T) {
	t.Parallel()

	r := New(nil)
	api := httpAPI("disabled", "/a")
	api.Disabled = true

	require.NoError(t, r.Create(context.Background(), api))
	assert.Equal(t, 0, r.Len(acceptor.KindHTTP))
	assert.Empty(t, r.Deployments())
}

func TestRegistry_CreateExistingReplaces(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("api", "/a")))
	require.NoError(t, r.Create(ctx, httpAPI("api", "/b")))

	assert.Equal(t, []string{"/b/"}, httpPaths(r))
	assert.Len(t, r.Deployments(), 1)
}

func TestRegistry_UpdateChangesPath(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("other", "/other")))
	require.NoError(t, r.Create(ctx, httpAPI("api", "/a")))
	before := r.Len(acceptor.KindHTTP)

	require.NoError(t, r.Update(ctx, httpAPI("api", "/b")))

	assert.False(t, resolvable(r, "/a"))
	assert.True(t, resolvable(r, "/b"))
	assert.Equal(t, before, r.Len(acceptor.KindHTTP))
}

func TestRegistry_UpdateUnknownDeploys(t *testing.T) {
	t.Parallel()

	r := New(nil)
	require.NoError(t, r.Update(context.Background(), httpAPI("api", "/a")))
	assert.True(t, resolvable(r, "/a"))
}

func TestRegistry_UpdateToDisabledRemoves(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("api", "/a", "/b")))
	api := httpAPI("api", "/a", "/b")
	api.Disabled = true
	require.NoError(t, r.Update(ctx, api))

	assert.Equal(t, 0, r.Len(acceptor.KindHTTP))
	_, ok := r.Deployment("api")
	assert.False(t, ok)
}

func TestRegistry_UpdateFailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	factory := &recordingFactory{}
	r := New(factory)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("api", "/a")))

	factory.err = errors.New("boom")
	err := r.Update(ctx, httpAPI("api", "/b"))
	require.Error(t, err)

	assert.True(t, resolvable(r, "/a"))
	assert.False(t, resolvable(r, "/b"))
	assert.Equal(t, int32(0), factory.handlers[0].stopped.Load())
}

func TestRegistry_InvalidEntrypoint(t *testing.T) {
	t.Parallel()

	r := New(nil)
	err := r.Create(context.Background(), &reactor.API{
		Identifier: "bad",
		TCPHosts:   []reactor.TCPHost{{Host: ""}},
	})
	require.ErrorIs(t, err, acceptor.ErrInvalidAcceptor)
	assert.Empty(t, r.Deployments())
}

func TestRegistry_StartFailureIsNotPublished(t *testing.T) {
	t.Parallel()

	factory := reactor.HandlerFactoryFunc(func(rc reactor.Reactable) (reactor.Handler, error) {
		h := &recordingHandler{startErr: errors.New("listen failed")}
		base, err := reactor.NewBaseHandler(rc, h)
		h.BaseHandler = base
		return h, err
	})
	r := New(factory)

	err := r.Create(context.Background(), httpAPI("api", "/a"))
	require.Error(t, err)
	assert.Equal(t, 0, r.Len(acceptor.KindHTTP))
}

func TestRegistry_RemoveExcludesOwnedAcceptors(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	api := httpAPI("api", "/a", "/b", "/c")
	require.NoError(t, r.Create(ctx, api))
	require.NoError(t, r.Create(ctx, httpAPI("other", "/d")))
	before := r.Len(acceptor.KindHTTP)

	require.NoError(t, r.Remove(ctx, api))

	assert.Equal(t, before-3, r.Len(acceptor.KindHTTP))
	for _, a := range r.Acceptors(acceptor.KindHTTP) {
		assert.NotEqual(t, "api", a.Owner().ID())
	}
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, httpAPI("api", "/a")))

	require.NoError(t, r.Remove(ctx, httpAPI("missing", "/a")))
	assert.Equal(t, 1, r.Len(acceptor.KindHTTP))
}

func TestRegistry_HandlerLifecycle(t *testing.T) {
	t.Parallel()

	factory := &recordingFactory{}
	r := New(factory)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("api", "/a")))
	require.NoError(t, r.Update(ctx, httpAPI("api", "/b")))
	require.NoError(t, r.Remove(ctx, httpAPI("api")))

	require.Len(t, factory.handlers, 2)
	for _, h := range factory.handlers {
		assert.Equal(t, int32(1), h.started.Load())
		assert.Equal(t, int32(1), h.stopped.Load())
	}
}

func TestRegistry_StopErrorIsReported(t *testing.T) {
	t.Parallel()

	factory := reactor.HandlerFactoryFunc(func(rc reactor.Reactable) (reactor.Handler, error) {
		h := &recordingHandler{stopErr: errors.New("drain timeout")}
		base, err := reactor.NewBaseHandler(rc, h)
		h.BaseHandler = base
		return h, err
	})
	r := New(factory)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("api", "/a")))
	err := r.RemoveID(ctx, "api")
	require.Error(t, err)
	assert.Equal(t, 0, r.Len(acceptor.KindHTTP))
}

func TestRegistry_DefaultAcceptor(t *testing.T) {
	t.Parallel()

	factory := reactor.HandlerFactoryFunc(func(rc reactor.Reactable) (reactor.Handler, error) {
		h, err := reactor.NewBaseHandler(rc, nil)
		if err != nil {
			return nil, err
		}
		return emptyHandler{h}, nil
	})
	r := New(factory)
	require.NoError(t, r.Create(context.Background(), httpAPI("api")))

	acceptors := r.HTTPAcceptors()
	require.Len(t, acceptors, 1)
	assert.Equal(t, "/", acceptors[0].Path())
	assert.Equal(t, "api", acceptors[0].Owner().ID())
}

type emptyHandler struct {
	*reactor.BaseHandler
}

func (emptyHandler) Acceptors() []acceptor.Acceptor { return nil }

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	factory := &recordingFactory{}
	r := New(factory)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("a", "/a")))
	require.NoError(t, r.Create(ctx, &reactor.API{
		Identifier: "b",
		TCPHosts:   []reactor.TCPHost{{Host: "acme.com"}},
	}))

	require.NoError(t, r.Clear(ctx))

	assert.Equal(t, 0, r.Len(acceptor.KindHTTP))
	assert.Equal(t, 0, r.Len(acceptor.KindTCP))
	assert.Empty(t, r.Deployments())
	for _, h := range factory.handlers {
		assert.Equal(t, int32(1), h.stopped.Load())
	}
}

func TestRegistry_IdenticalRoutesAreRetained(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, httpAPI("first", "/same")))
	require.NoError(t, r.Create(ctx, httpAPI("second", "/same")))

	acceptors := r.HTTPAcceptors()
	require.Len(t, acceptors, 2)
	assert.Equal(t, "first", acceptors[0].Owner().ID())
	assert.Equal(t, "second", acceptors[1].Owner().ID())
}

func TestRegistry_Metrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	r := New(nil, WithMetrics(metrics), WithLogger(observability.NopLogger()))
	require.NoError(t, r.Create(context.Background(), httpAPI("api", "/a", "/b")))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetGauge() == nil {
				continue
			}
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += ":" + l.GetValue()
			}
			values[key] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 2.0, values["test_registry_acceptors:http"])
	assert.Equal(t, 0.0, values["test_registry_acceptors:tcp"])
	assert.Equal(t, 1.0, values["test_registry_deployments"])
}

func TestRegistry_ConcurrentCreates(t *testing.T) {
	t.Parallel()

	const n = 100
	r := New(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.Create(ctx, httpAPI(fmt.Sprintf("api-%d", i), fmt.Sprintf("/api-%d", i))))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, r.Len(acceptor.KindHTTP))
	assert.Len(t, r.Deployments(), n)
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	const n = 100
	r := New(nil)
	ctx := context.Background()

	for i := 0; i < n; i++ {
		require.NoError(t, r.Create(ctx, httpAPI(fmt.Sprintf("api-%d", i), fmt.Sprintf("/old-%d", i))))
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			acceptors := r.HTTPAcceptors()
			assert.Len(t, acceptors, n)
			for i := 1; i < len(acceptors); i++ {
				assert.LessOrEqual(t, acceptor.CompareHTTP(acceptors[i-1], acceptors[i]), 0)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.Update(ctx, httpAPI(fmt.Sprintf("api-%d", i), fmt.Sprintf("/new-%d", i))))
		}(i)
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Equal(t, n, r.Len(acceptor.KindHTTP))
	for i := 0; i < n; i++ {
		assert.True(t, resolvable(r, fmt.Sprintf("/new-%d", i)))
		assert.False(t, resolvable(r, fmt.Sprintf("/old-%d", i)))
	}
}
