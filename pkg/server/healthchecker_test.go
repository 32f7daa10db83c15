package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingHealthChecker(t *testing.T) {
	ctx := context.Background()

	assert.True(t, NewPingHealthChecker(pingerFunc(func(context.Context) error { return nil })).Healthy(ctx))
	assert.False(t, NewPingHealthChecker(pingerFunc(func(context.Context) error { return errors.New("down") })).Healthy(ctx))
	assert.False(t, NewPingHealthChecker(nil).Healthy(ctx))
	assert.True(t, NewOkHealthChecker().Healthy(ctx))
}
