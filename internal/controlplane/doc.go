// Package controlplane provides the sources of lifecycle events that drive
// the acceptor registry.
//
// FileSource watches the gateway configuration file and turns changes of
// its API list into DEPLOY, UPDATE and UNDEPLOY events. RedisSource
// receives the same events as JSON messages on a Redis pub/sub channel:
//
//	{"type":"DEPLOY","api":{"id":"products","target":"http://products:8080",
//	 "virtualHosts":[{"path":"/products"}]}}
//
// Run fans the events of several sources into a reactor.Adapter.
package controlplane
