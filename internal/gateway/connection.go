package gateway

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

// ConnectionTracker tracks active TCP connections for limits and drain.
type ConnectionTracker struct {
	connections sync.Map
	maxConns    int
	count       atomic.Int64
	logger      observability.Logger
}

// TrackedConnection is a connection registered with a tracker.
type TrackedConnection struct {
	ID         string
	RemoteAddr string
	StartTime  time.Time
	conn       net.Conn
}

// NewConnectionTracker creates a tracker admitting at most maxConns
// connections. A non-positive limit disables the check.
func NewConnectionTracker(maxConns int, logger observability.Logger) *ConnectionTracker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ConnectionTracker{
		maxConns: maxConns,
		logger:   logger,
	}
}

// Add registers conn. It fails with ErrMaxConnections when the tracker is full.
func (t *ConnectionTracker) Add(conn net.Conn) (*TrackedConnection, error) {
	if n := t.count.Add(1); t.maxConns > 0 && n > int64(t.maxConns) {
		t.count.Add(-1)
		return nil, fmt.Errorf("%w: %d", ErrMaxConnections, t.maxConns)
	}

	tracked := &TrackedConnection{
		ID:         uuid.New().String(),
		RemoteAddr: conn.RemoteAddr().String(),
		StartTime:  time.Now(),
		conn:       conn,
	}
	t.connections.Store(tracked.ID, tracked)

	t.logger.Debug("connection added",
		observability.String("id", tracked.ID),
		observability.String("remote_addr", tracked.RemoteAddr),
	)
	return tracked, nil
}

// Remove unregisters the connection with the given id.
func (t *ConnectionTracker) Remove(id string) {
	if _, loaded := t.connections.LoadAndDelete(id); loaded {
		t.count.Add(-1)
		t.logger.Debug("connection removed", observability.String("id", id))
	}
}

// Count returns the number of tracked connections.
func (t *ConnectionTracker) Count() int {
	return int(t.count.Load())
}

// List returns the tracked connections.
func (t *ConnectionTracker) List() []*TrackedConnection {
	var out []*TrackedConnection
	t.connections.Range(func(_, value any) bool {
		out = append(out, value.(*TrackedConnection))
		return true
	})
	return out
}

// CloseAll closes every tracked connection and returns how many were closed.
func (t *ConnectionTracker) CloseAll() int {
	closed := 0
	t.connections.Range(func(_, value any) bool {
		tracked := value.(*TrackedConnection)
		if err := tracked.conn.Close(); err != nil {
			t.logger.Debug("error closing connection",
				observability.String("id", tracked.ID),
				observability.Error(err),
			)
		}
		closed++
		return true
	})
	return closed
}
