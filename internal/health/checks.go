package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCheck pings the deployment channel's Redis server.
func RedisCheck(client redis.UniversalClient, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) Check {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := client.Ping(ctx).Err(); err != nil {
			return Check{Status: StatusUnhealthy, Message: fmt.Sprintf("redis ping failed: %v", err)}
		}
		return Check{Status: StatusHealthy}
	}
}

// DeploymentsCheck reports degraded while nothing is deployed.
func DeploymentsCheck(count func() int) CheckFunc {
	return func(context.Context) Check {
		n := count()
		if n == 0 {
			return Check{Status: StatusDegraded, Message: "no API deployed"}
		}
		return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d APIs deployed", n)}
	}
}
