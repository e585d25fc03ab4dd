package acceptor

import (
	"cmp"
	"strings"
)

// CompareHTTP orders HTTP acceptors from most to least specific.
//
// The order is priority descending, then host-qualified before host-less,
// then host ascending, then path ascending, then construction sequence
// ascending. It returns a negative number when a sorts before b.
func CompareHTTP(a, b *HTTPAcceptor) int {
	if c := cmp.Compare(b.priority, a.priority); c != 0 {
		return c
	}
	if c := compareHosts(a.host, b.host); c != 0 {
		return c
	}
	if c := strings.Compare(a.path, b.path); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// CompareTCP orders TCP acceptors by host ascending, case-insensitively,
// then by construction sequence.
func CompareTCP(a, b *TCPAcceptor) int {
	if c := strings.Compare(strings.ToLower(a.host), strings.ToLower(b.host)); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// compareHosts sorts set hosts before unset ones and set hosts
// case-insensitively.
func compareHosts(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
}

// LessHTTP reports whether a sorts before b.
func LessHTTP(a, b *HTTPAcceptor) bool {
	return CompareHTTP(a, b) < 0
}

// LessTCP reports whether a sorts before b.
func LessTCP(a, b *TCPAcceptor) bool {
	return CompareTCP(a, b) < 0
}
