package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	recordTypeHandshake    = 22
	handshakeClientHello   = 1
	extensionServerName    = 0
	serverNameTypeHostName = 0
	maxTLSRecordLength     = 16384
	recordHeaderLength     = 5
)

var errClientHelloTruncated = errors.New("ClientHello truncated")

// ExtractSNI reads the first TLS record from conn and returns the server
// name it carries together with every byte consumed, so the caller can
// replay them upstream. A ClientHello without the server_name extension
// yields an empty name and no error.
func ExtractSNI(conn net.Conn, timeout time.Duration) (serverName string, clientHello []byte, err error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return "", nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
		defer func() {
			_ = conn.SetReadDeadline(time.Time{})
		}()
	}

	header := make([]byte, recordHeaderLength)
	if _, err := io.ReadFull(conn, header); err != nil {
		return "", nil, fmt.Errorf("failed to read TLS record header: %w", err)
	}

	if header[0] != recordTypeHandshake {
		return "", header, fmt.Errorf("%w: record type %d", ErrNotTLS, header[0])
	}

	recordLength := int(binary.BigEndian.Uint16(header[3:5]))
	if recordLength > maxTLSRecordLength {
		return "", header, fmt.Errorf("TLS record too large: %d", recordLength)
	}

	clientHello = make([]byte, recordHeaderLength+recordLength)
	copy(clientHello, header)
	if _, err := io.ReadFull(conn, clientHello[recordHeaderLength:]); err != nil {
		return "", header, fmt.Errorf("failed to read handshake message: %w", err)
	}

	serverName, err = parseClientHello(clientHello[recordHeaderLength:])
	if err != nil {
		return "", clientHello, err
	}
	return serverName, clientHello, nil
}

// parseClientHello extracts the host_name entry of the server_name
// extension from a handshake message.
func parseClientHello(data []byte) (string, error) {
	if len(data) < 4 {
		return "", errClientHelloTruncated
	}
	if data[0] != handshakeClientHello {
		return "", fmt.Errorf("%w: handshake type %d", ErrNotTLS, data[0])
	}

	length := int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if len(data) < 4+length {
		return "", errClientHelloTruncated
	}

	// version(2) + random(32)
	pos := 4 + 2 + 32
	var ok bool
	for _, width := range []int{1, 2, 1} { // session id, cipher suites, compression methods
		if pos, ok = skipLengthPrefixed(data, pos, width); !ok {
			return "", errClientHelloTruncated
		}
	}

	if pos+2 > len(data) {
		return "", nil
	}
	extensionsEnd := pos + 2 + int(binary.BigEndian.Uint16(data[pos:pos+2]))
	pos += 2
	if extensionsEnd > len(data) {
		return "", errClientHelloTruncated
	}

	for pos+4 <= extensionsEnd {
		extType := binary.BigEndian.Uint16(data[pos : pos+2])
		extLength := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		pos += 4
		if pos+extLength > extensionsEnd {
			return "", errClientHelloTruncated
		}
		if extType == extensionServerName {
			return parseServerName(data[pos : pos+extLength])
		}
		pos += extLength
	}

	return "", nil
}

// skipLengthPrefixed skips a field whose length is encoded in the
// preceding width bytes.
func skipLengthPrefixed(data []byte, pos, width int) (int, bool) {
	if pos+width > len(data) {
		return pos, false
	}
	var n int
	for i := 0; i < width; i++ {
		n = n<<8 | int(data[pos+i])
	}
	pos += width
	if pos+n > len(data) {
		return pos, false
	}
	return pos + n, true
}

func parseServerName(data []byte) (string, error) {
	if len(data) < 2 {
		return "", errClientHelloTruncated
	}
	end := 2 + int(binary.BigEndian.Uint16(data[0:2]))
	if end > len(data) {
		return "", errClientHelloTruncated
	}

	pos := 2
	for pos+3 <= end {
		nameType := data[pos]
		nameLength := int(binary.BigEndian.Uint16(data[pos+1 : pos+3]))
		pos += 3
		if pos+nameLength > end {
			return "", errClientHelloTruncated
		}
		if nameType == serverNameTypeHostName {
			return string(data[pos : pos+nameLength]), nil
		}
		pos += nameLength
	}
	return "", nil
}
