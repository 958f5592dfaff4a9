package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSetJobCancelled(t *testing.T) {
	mr, client := setupTestRedis(t)

	require.NoError(t, SetJobCancelled(client, "job-1"))

	assert.True(t, IsJobCancelled(client, "job-1"))
	assert.True(t, mr.Exists("cancel:job:job-1"))
	assert.Greater(t, mr.TTL("cancel:job:job-1").Seconds(), 0.0)
}

func TestClearJobCancelled(t *testing.T) {
	_, client := setupTestRedis(t)

	require.NoError(t, SetJobCancelled(client, "job-2"))
	require.True(t, IsJobCancelled(client, "job-2"))

	ClearJobCancelled(client, "job-2")
	assert.False(t, IsJobCancelled(client, "job-2"))

	// Clearing a flag that was never set is a no-op
	ClearJobCancelled(client, "job-never")
}

func TestIsJobCancelledUnsetFlag(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.False(t, IsJobCancelled(client, "job-unknown"))
}

func TestCancelHelpersNilClient(t *testing.T) {
	assert.False(t, IsJobCancelled(nil, "job-x"))
	ClearJobCancelled(nil, "job-x")
}
