package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeHealthChecker_AllPassing(t *testing.T) {
	checker := NewCompositeHealthChecker("0.1.0")
	checker.AddCheck("database", func(ctx context.Context) error { return nil })
	checker.AddCheck("cache", func(ctx context.Context) error { return nil })

	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "0.1.0", status.Version)
	require.Len(t, status.Checks, 2)
	assert.True(t, status.Checks["database"].Healthy)
	assert.Equal(t, "OK", status.Checks["cache"].Message)
}

func TestCompositeHealthChecker_OneFailing(t *testing.T) {
	checker := NewCompositeHealthChecker("0.1.0")
	checker.AddCheck("database", func(ctx context.Context) error { return nil })
	checker.AddCheck("push_gateway", func(ctx context.Context) error {
		return errors.New("push gateway unreachable")
	})

	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Contains(t, status.Message, "push_gateway")
	assert.False(t, status.Checks["push_gateway"].Healthy)
	assert.True(t, status.Checks["database"].Healthy)
}

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	checker := NewCompositeHealthChecker("0.1.0")

	status := checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "No health checks registered", status.Message)
}

type staticGateway struct{ healthy bool }

func (g staticGateway) IsHealthy(context.Context) bool { return g.healthy }

func TestNewGatewayCheck(t *testing.T) {
	assert.NoError(t, NewGatewayCheck(staticGateway{healthy: true})(context.Background()))
	assert.Error(t, NewGatewayCheck(staticGateway{healthy: false})(context.Background()))
}
