// Package health provides the health and readiness state of the gateway.
//
// Readiness aggregates registered checks. A check reporting unhealthy
// makes the gateway not ready; a degraded check is reported but keeps it
// ready. A draining gateway is never ready.
//
//	checker := health.NewChecker(version)
//	checker.RegisterCheck("redis", health.RedisCheck(client, time.Second))
//	checker.RegisterCheck("deployments", health.DeploymentsCheck(reg.Len))
package health
