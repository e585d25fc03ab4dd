package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/util"
)

// staticSource serves a fixed, already ordered list of acceptors.
type staticSource map[acceptor.Kind][]acceptor.Acceptor

func (s staticSource) Ascend(kind acceptor.Kind, fn func(a acceptor.Acceptor) bool) {
	for _, a := range s[kind] {
		if !fn(a) {
			return
		}
	}
}

// plainOwner owns acceptors but can neither serve requests nor connections.
type plainOwner string

func (o plainOwner) ID() string { return string(o) }

// httpOwner answers with a JSON description of what it received.
type httpOwner string

func (o httpOwner) ID() string { return string(o) }

func (o httpOwner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"owner":  string(o),
		"path":   r.URL.Path,
		"server": util.ServerIDFromContext(r.Context()),
	}
	if a, ok := resolver.FromContext(r.Context()); ok {
		body["acceptor"] = a.(*acceptor.HTTPAcceptor).Path()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// greetOwner writes its id on the connection and returns.
type greetOwner string

func (o greetOwner) ID() string { return string(o) }

func (o greetOwner) HandleConn(_ context.Context, conn net.Conn, preface []byte) error {
	if len(preface) == 0 {
		_, err := conn.Write([]byte("no preface"))
		return err
	}
	_, err := conn.Write([]byte("hello from " + string(o)))
	return err
}

// blockingOwner holds connections until its context is done.
type blockingOwner struct {
	id      string
	entered chan struct{}
}

func (o *blockingOwner) ID() string { return o.id }

func (o *blockingOwner) HandleConn(ctx context.Context, _ net.Conn, _ []byte) error {
	o.entered <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func mustHTTP(t *testing.T, path string, opts ...acceptor.HTTPOption) *acceptor.HTTPAcceptor {
	t.Helper()
	a, err := acceptor.NewHTTPAcceptor(path, opts...)
	require.NoError(t, err)
	return a
}

func mustTCP(t *testing.T, host string, opts ...acceptor.TCPOption) *acceptor.TCPAcceptor {
	t.Helper()
	a, err := acceptor.NewTCPAcceptor(host, opts...)
	require.NoError(t, err)
	return a
}

func serverConfig(id string, kind acceptor.Kind) config.ServerConfig {
	return config.ServerConfig{
		ID:              id,
		Kind:            kind,
		Address:         "127.0.0.1:0",
		ReadTimeout:     config.Duration(5 * time.Second),
		WriteTimeout:    config.Duration(5 * time.Second),
		IdleTimeout:     config.Duration(5 * time.Second),
		ShutdownTimeout: config.Duration(2 * time.Second),
		SNITimeout:      config.Duration(time.Second),
		MaxConnections:  16,
	}
}

// buildClientHello builds a minimal TLS record holding a ClientHello with
// an optional server_name extension.
func buildClientHello(serverName string) []byte {
	var extensions []byte
	if serverName != "" {
		name := []byte(serverName)
		ext := make([]byte, 0, 9+len(name))
		ext = binary.BigEndian.AppendUint16(ext, 0)                   // server_name
		ext = binary.BigEndian.AppendUint16(ext, uint16(5+len(name))) // extension length
		ext = binary.BigEndian.AppendUint16(ext, uint16(3+len(name))) // list length
		ext = append(ext, 0)                                          // host_name
		ext = binary.BigEndian.AppendUint16(ext, uint16(len(name)))
		ext = append(ext, name...)
		extensions = ext
	}

	body := []byte{0x03, 0x03}                  // client version
	body = append(body, make([]byte, 32)...)    // random
	body = append(body, 0x00)                   // session id
	body = append(body, 0x00, 0x02, 0x00, 0x2f) // cipher suites
	body = append(body, 0x01, 0x00)             // compression methods
	body = binary.BigEndian.AppendUint16(body, uint16(len(extensions)))
	body = append(body, extensions...)

	handshake := []byte{1, byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body))}
	handshake = append(handshake, body...)

	record := []byte{22, 0x03, 0x01}
	record = binary.BigEndian.AppendUint16(record, uint16(len(handshake)))
	return append(record, handshake...)
}
