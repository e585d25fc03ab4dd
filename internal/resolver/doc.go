// Package resolver matches incoming requests against the acceptors
// published by the registry.
//
// Acceptors are iterated in specificity order and the first one that
// accepts the request wins, so the scan stops at the most specific match.
package resolver
