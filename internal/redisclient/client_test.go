package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "lock:payment-confirm:abc", lockName("payment-confirm:abc"))
	assert.Equal(t, "cart:count:user_1", cartCountKey("user_1"))
}

func openTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires TEST_REDIS_ADDR")
	}

	c, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockIsExclusive(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	key := "test-lock:" + t.Name()
	t.Cleanup(func() { _ = c.ReleaseLock(ctx, key) })

	ok, err := c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, key))
	ok, err = c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCartCountCache(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	clerkID := "test_user_" + t.Name()

	_, ok, err := c.GetCartCount(ctx, clerkID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetCartCount(ctx, clerkID, 4, time.Minute))
	count, ok, err := c.GetCartCount(ctx, clerkID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, count)

	require.NoError(t, c.InvalidateCartCount(ctx, clerkID))
	_, ok, err = c.GetCartCount(ctx, clerkID)
	require.NoError(t, err)
	assert.False(t, ok)
}
