package cassandra

import (
	"fmt"
	"strings"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/config"
)

// Client wraps a gocql.Session and provides connection management
type Client struct {
	session *gocql.Session
	config  config.CassandraConfig
	log     zerolog.Logger
}

// NewClient creates a new Cassandra client and establishes a connection
func NewClient(cfg config.CassandraConfig, log zerolog.Logger) (*Client, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)

	// Set connection options
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.Timeout
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.RetryPolicy = RetryPolicy(3)

	// Authentication (if provided)
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	// Connection pool settings
	cluster.NumConns = 2
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	log = log.With().Str("component", "cassandra").Logger()
	log.Info().Strs("hosts", cfg.Hosts).Str("keyspace", cfg.Keyspace).Msg("Connected to Cassandra")

	client := &Client{
		session: session,
		config:  cfg,
		log:     log,
	}

	if err := client.initializeSchema(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return client, nil
}

// Session returns the underlying gocql.Session
func (c *Client) Session() *gocql.Session {
	return c.session
}

// Keyspace returns the configured keyspace
func (c *Client) Keyspace() string {
	return c.config.Keyspace
}

// Close closes the Cassandra session
func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
		c.log.Info().Msg("Cassandra session closed")
	}
}

// initializeSchema creates the keyspace and tables if they don't exist
func (c *Client) initializeSchema() error {
	for _, stmt := range schema(c.config.Keyspace) {
		if err := c.session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("apply %q: %w", firstLine(stmt), err)
		}
	}
	c.log.Info().Str("keyspace", c.config.Keyspace).Msg("Cassandra schema initialized")
	return nil
}

// schema lists the DDL of the archive.
//
// games is keyed by room id; seats are parallel lists in turn order.
// user_games is partitioned by user and clustered newest first so a
// player's history is a single-partition read.
func schema(keyspace string) []string {
	return []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': 1
		}`, keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.games (
			room_id text PRIMARY KEY,
			owner text,
			seat_users list<text>,
			seat_roles list<text>,
			started_at timestamp,
			ended_at timestamp,
			status text,
			reason text
		)`, keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.user_games (
			user_id text,
			started_at timestamp,
			room_id text,
			position int,
			PRIMARY KEY ((user_id), started_at, room_id)
		) WITH CLUSTERING ORDER BY (started_at DESC, room_id ASC)`, keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.user_wins (
			user_id text,
			record_key text,
			game_mode text,
			hero text,
			recorded_at timestamp,
			PRIMARY KEY ((user_id), record_key)
		)`, keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.user_tokens (
			user_id text PRIMARY KEY,
			last_win timestamp,
			luck_used int,
			rep_used int
		)`, keyspace),
	}
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return line
}

// parseConsistency parses a consistency level string
func parseConsistency(consistencyStr string) gocql.Consistency {
	switch strings.ToUpper(consistencyStr) {
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.Quorum
	}
}

// RetryPolicy provides simple retry logic for transient errors
func RetryPolicy(maxRetries int) gocql.RetryPolicy {
	return &simpleRetryPolicy{maxRetries: maxRetries}
}

type simpleRetryPolicy struct {
	maxRetries int
}

func (p *simpleRetryPolicy) Attempt(q gocql.RetryableQuery) bool {
	return q.Attempts() <= p.maxRetries
}

func (p *simpleRetryPolicy) GetRetryType(err error) gocql.RetryType {
	if err == gocql.ErrTimeoutNoResponse {
		return gocql.Retry
	}
	if err != nil {
		msg := strings.ToLower(err.Error())
		for _, transient := range []string{"timeout", "connection", "unavailable"} {
			if strings.Contains(msg, transient) {
				return gocql.Retry
			}
		}
	}
	return gocql.Rethrow
}
