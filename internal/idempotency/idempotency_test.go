package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWithoutRedisDegradesToFirstTime(t *testing.T) {
	store := NewStore(nil)

	first, err := store.MarkOnce(context.Background(), "statement:sent:1:2025-01", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	// Still first-time; without redis nothing is remembered.
	again, err := store.MarkOnce(context.Background(), "statement:sent:1:2025-01", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)

	assert.NoError(t, store.Clear(context.Background(), "statement:sent:1:2025-01"))
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	first, err := store.MarkOnce(context.Background(), "key", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestLockerWithoutRedisAlwaysGrants(t *testing.T) {
	locker := NewLocker(nil)
	require.Nil(t, locker)

	token, owner, err := locker.TryLock(context.Background(), "scheduler:job:late_fees", time.Minute)
	require.NoError(t, err)
	assert.True(t, owner)
	assert.Empty(t, token)

	assert.NoError(t, locker.Release(context.Background(), "scheduler:job:late_fees", token))
}
