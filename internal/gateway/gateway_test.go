package gateway

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
)

func testConfig(servers ...config.ServerConfig) *config.GatewayConfig {
	cfg := config.DefaultConfig()
	cfg.Spec.Servers = servers
	return cfg
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "stopped"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	res := resolver.New(staticSource{})

	_, err := New(nil, res)
	require.ErrorIs(t, err, ErrNilConfig)

	_, err = New(testConfig(), nil)
	require.ErrorIs(t, err, ErrNilResolver)

	_, err = New(testConfig(serverConfig("udp", acceptor.Kind("udp"))), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported kind")
}

func TestGateway_Lifecycle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(
		serverConfig("public", acceptor.KindHTTP),
		serverConfig("tls", acceptor.KindTCP),
	)
	gw, err := New(cfg, resolver.New(staticSource{}), WithShutdownTimeout(time.Second))
	require.NoError(t, err)

	assert.Same(t, cfg, gw.Config())
	require.Len(t, gw.Servers(), 2)
	assert.IsType(t, &HTTPServer{}, gw.Servers()[0])
	assert.IsType(t, &TCPServer{}, gw.Servers()[1])

	s, ok := gw.Server("tls")
	require.True(t, ok)
	assert.Equal(t, "tls", s.ID())
	_, ok = gw.Server("missing")
	assert.False(t, ok)

	assert.Equal(t, StateStopped, gw.State())
	assert.Zero(t, gw.Uptime())
	require.ErrorIs(t, gw.Stop(context.Background()), ErrGatewayNotRunning)

	require.NoError(t, gw.Start(context.Background()))
	assert.True(t, gw.IsRunning())
	require.ErrorIs(t, gw.Start(context.Background()), ErrGatewayNotStopped)

	require.Eventually(t, func() bool { return gw.Uptime() > 0 }, time.Second, time.Millisecond)
	assert.NotNil(t, gw.Servers()[0].(*HTTPServer).Addr())
	assert.NotNil(t, gw.Servers()[1].(*TCPServer).Addr())

	require.NoError(t, gw.Stop(context.Background()))
	assert.Equal(t, StateStopped, gw.State())
	assert.Zero(t, gw.Uptime())
}

func TestGateway_StartFailureStopsStartedServers(t *testing.T) {
	t.Parallel()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	conflicting := serverConfig("conflict", acceptor.KindTCP)
	conflicting.Address = busy.Addr().String()

	gw, err := New(testConfig(serverConfig("public", acceptor.KindHTTP), conflicting),
		resolver.New(staticSource{}))
	require.NoError(t, err)

	err = gw.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict")
	assert.Equal(t, StateStopped, gw.State())
	assert.Nil(t, gw.Servers()[0].(*HTTPServer).Addr())
}
