package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCheck(status Status) CheckFunc {
	return func(context.Context) Check {
		return Check{Status: status}
	}
}

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	resp := NewChecker("1.2.3").Health()

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		checks    map[string]Status
		draining  bool
		want      Status
		wantReady bool
	}{
		{
			name:      "no checks",
			want:      StatusHealthy,
			wantReady: true,
		},
		{
			name:      "all healthy",
			checks:    map[string]Status{"a": StatusHealthy, "b": StatusHealthy},
			want:      StatusHealthy,
			wantReady: true,
		},
		{
			name:      "degraded stays ready",
			checks:    map[string]Status{"a": StatusHealthy, "b": StatusDegraded},
			want:      StatusDegraded,
			wantReady: true,
		},
		{
			name:   "unhealthy wins over degraded",
			checks: map[string]Status{"a": StatusUnhealthy, "b": StatusDegraded},
			want:   StatusUnhealthy,
		},
		{
			name:     "draining is never ready",
			checks:   map[string]Status{"a": StatusHealthy},
			draining: true,
			want:     StatusDraining,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			for name, status := range tt.checks {
				c.RegisterCheck(name, staticCheck(status))
			}
			c.SetDraining(tt.draining)

			resp := c.Readiness(context.Background())

			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.wantReady, resp.Ready())
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestChecker_UnregisterCheck(t *testing.T) {
	t.Parallel()

	c := NewChecker("test")
	c.RegisterCheck("broken", staticCheck(StatusUnhealthy))
	require.Equal(t, StatusUnhealthy, c.Readiness(context.Background()).Status)

	c.UnregisterCheck("broken")
	assert.Equal(t, StatusHealthy, c.Readiness(context.Background()).Status)
	assert.False(t, c.IsDraining())
}
