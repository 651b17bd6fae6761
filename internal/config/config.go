package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Host             string
	Port             string
	AdvertiseAddr    string
	Store            string
	WorkerPoolSize   int
	SeatCheckWorkers int
	HeroRoster       string
	LogLevel         string
	LogPretty        bool
	Redis            RedisConfig
	Room             RoomConfig
	Cassandra        CassandraConfig
}

// RedisConfig holds the shared store connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RoomConfig tunes room lifetime, seat-completion and the game loop
type RoomConfig struct {
	TTL              time.Duration
	LockWait         time.Duration
	SeatCheckRetries int
	SeatCheckBackoff time.Duration
	PickTimeout      time.Duration
	HandSize         int
	MinSeats         int
	MaxSeats         int
	MaxRounds        int
}

// CassandraConfig holds Cassandra-specific configuration. No hosts means
// games are archived in memory.
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var errs []string
	intVar := func(key, def string) int {
		v, err := strconv.Atoi(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s value: %v", key, err))
		}
		return v
	}
	boolVar := func(key, def string) bool {
		v, err := strconv.ParseBool(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s value: %v", key, err))
		}
		return v
	}

	cfg := &Config{
		Host:             getEnv("HOST", "0.0.0.0"),
		Port:             getEnv("PORT", "8080"),
		AdvertiseAddr:    getEnv("ADVERTISE_ADDR", ""),
		Store:            getEnv("STORE", StoreRedis),
		WorkerPoolSize:   intVar("WORKER_POOL_SIZE", "64"),
		SeatCheckWorkers: intVar("SEAT_CHECK_WORKERS", "16"),
		HeroRoster:       getEnv("HERO_ROSTER", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        boolVar("LOG_PRETTY", "false"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", "0"),
		},
		Room: RoomConfig{
			TTL:              time.Duration(intVar("ROOM_TTL_SECONDS", "900")) * time.Second,
			LockWait:         time.Duration(intVar("LOCK_WAIT_MS", "3000")) * time.Millisecond,
			SeatCheckRetries: intVar("SEAT_CHECK_RETRIES", "3"),
			SeatCheckBackoff: time.Duration(intVar("SEAT_CHECK_BACKOFF_MS", "500")) * time.Millisecond,
			PickTimeout:      time.Duration(intVar("PICK_TIMEOUT_SECONDS", "120")) * time.Second,
			HandSize:         intVar("HAND_SIZE", "4"),
			MinSeats:         intVar("MIN_SEATS", "5"),
			MaxSeats:         intVar("MAX_SEATS", "10"),
			MaxRounds:        intVar("MAX_ROUNDS", "1"),
		},
		Cassandra: CassandraConfig{
			Hosts:       parseHosts(getEnv("CASSANDRA_HOSTS", "")),
			Keyspace:    getEnv("CASSANDRA_KEYSPACE", "sgs_seats"),
			Username:    getEnv("CASSANDRA_USERNAME", ""),
			Password:    getEnv("CASSANDRA_PASSWORD", ""),
			Consistency: getEnv("CASSANDRA_CONSISTENCY", "QUORUM"),
			Timeout:     time.Duration(intVar("CASSANDRA_TIMEOUT_SECONDS", "5")) * time.Second,
		},
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	if cfg.AdvertiseAddr == "" {
		cfg.AdvertiseAddr = cfg.BaseURL()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parse but make no sense together.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE value %q: want %s or %s", c.Store, StoreRedis, StoreMemory)
	}
	if c.Room.MinSeats < 2 || c.Room.MaxSeats > 10 || c.Room.MinSeats > c.Room.MaxSeats {
		return fmt.Errorf("invalid seat bounds [%d, %d]: must lie within [2, 10]", c.Room.MinSeats, c.Room.MaxSeats)
	}
	if c.Room.TTL <= 0 {
		return fmt.Errorf("ROOM_TTL_SECONDS must be positive")
	}
	if c.Room.HandSize < 0 {
		return fmt.Errorf("HAND_SIZE must not be negative")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive")
	}
	if c.SeatCheckWorkers <= 0 {
		return fmt.Errorf("SEAT_CHECK_WORKERS must be positive")
	}
	return nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// BaseURL returns the base URL for this instance
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseHosts parses a comma-separated list of hosts
func parseHosts(hostsStr string) []string {
	parts := strings.Split(hostsStr, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		host := strings.TrimSpace(part)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return nil
	}
	return hosts
}
