package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

// HandleConn relays conn to the API target. preface holds bytes already
// read from conn, typically the TLS ClientHello, and is sent first. It
// returns when either side closes or ctx is done.
func (h *Handler) HandleConn(ctx context.Context, conn net.Conn, preface []byte) error {
	if !h.track(conn) {
		return opError("relay", h.ID(), h.address, ErrHandlerStopped)
	}
	defer h.untrack(conn)

	upstream, err := h.dialer.DialContext(ctx, "tcp", h.address)
	if err != nil {
		return opError("dial", h.ID(), h.address, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
	}
	defer upstream.Close()

	h.logger.Debug("relay connected to upstream",
		observability.String("address", h.address),
		observability.String("client", conn.RemoteAddr().String()),
	)

	if len(preface) > 0 {
		if _, err := upstream.Write(preface); err != nil {
			return opError("preface", h.ID(), h.address, err)
		}
	}

	return h.bidirectionalCopy(ctx, conn, upstream)
}

// bidirectionalCopy copies data both ways until one direction completes or
// ctx is done, then closes both connections and waits for the other
// direction.
func (h *Handler) bidirectionalCopy(ctx context.Context, client, upstream net.Conn) error {
	errCh := make(chan error, 2)

	go func() { errCh <- h.copy(upstream, client) }()
	go func() { errCh <- h.copy(client, upstream) }()

	received := 0
	var firstErr error
	select {
	case <-ctx.Done():
		firstErr = ctx.Err()
	case firstErr = <-errCh:
		received++
	}

	_ = client.Close()
	_ = upstream.Close()

	for ; received < 2; received++ {
		<-errCh
	}
	return firstErr
}

// copy copies src to dst with a pooled buffer. A closed connection or EOF
// ends the copy without error.
func (h *Handler) copy(dst, src net.Conn) error {
	bufPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(dst, src, *bufPtr)
	if err == nil || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
