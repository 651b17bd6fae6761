package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "ADVERTISE_ADDR", "STORE", "WORKER_POOL_SIZE", "SEAT_CHECK_WORKERS", "HERO_ROSTER",
		"LOG_LEVEL", "LOG_PRETTY", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"ROOM_TTL_SECONDS", "LOCK_WAIT_MS", "SEAT_CHECK_RETRIES", "SEAT_CHECK_BACKOFF_MS",
		"PICK_TIMEOUT_SECONDS", "HAND_SIZE", "MIN_SEATS", "MAX_SEATS", "MAX_ROUNDS",
		"CASSANDRA_HOSTS", "CASSANDRA_KEYSPACE", "CASSANDRA_USERNAME", "CASSANDRA_PASSWORD",
		"CASSANDRA_CONSISTENCY", "CASSANDRA_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "http://0.0.0.0:8080", cfg.AdvertiseAddr)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 64, cfg.WorkerPoolSize)
	assert.Equal(t, 16, cfg.SeatCheckWorkers)
	assert.Equal(t, 900*time.Second, cfg.Room.TTL)
	assert.Equal(t, 3*time.Second, cfg.Room.LockWait)
	assert.Equal(t, 3, cfg.Room.SeatCheckRetries)
	assert.Equal(t, 4, cfg.Room.HandSize)
	assert.Equal(t, 5, cfg.Room.MinSeats)
	assert.Equal(t, 10, cfg.Room.MaxSeats)
	assert.Empty(t, cfg.Cassandra.Hosts)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "memory")
	t.Setenv("ADVERTISE_ADDR", "http://node-2:8080")
	t.Setenv("CASSANDRA_HOSTS", "c1:9042, c2:9042,")
	t.Setenv("LOCK_WAIT_MS", "250")
	t.Setenv("MIN_SEATS", "2")
	t.Setenv("WORKER_POOL_SIZE", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "http://node-2:8080", cfg.AdvertiseAddr)
	assert.Equal(t, []string{"c1:9042", "c2:9042"}, cfg.Cassandra.Hosts)
	assert.Equal(t, 250*time.Millisecond, cfg.Room.LockWait)
	assert.Equal(t, 2, cfg.Room.MinSeats)
	assert.Equal(t, 1, cfg.WorkerPoolSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad int", key: "HAND_SIZE", val: "four"},
		{name: "bad bool", key: "LOG_PRETTY", val: "maybe"},
		{name: "unknown store", key: "STORE", val: "etcd"},
		{name: "seat bounds", key: "MAX_SEATS", val: "12"},
		{name: "min above max", key: "MIN_SEATS", val: "11"},
		{name: "empty pool", key: "WORKER_POOL_SIZE", val: "0"},
		{name: "no seat check workers", key: "SEAT_CHECK_WORKERS", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
