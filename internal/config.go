package internal

import (
	"chatroom/errors"
	"fmt"
	"time"
)

const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8080"`
	GRPCPort  int    `env:"GRPC_PORT,default=9090"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
	JWTSecret string `env:"JWT_SECRET,required=true"`

	MembershipBackend string `env:"MEMBERSHIP_BACKEND,default=badger"`
	BadgerFilepath    string `env:"BADGER_FILEPATH,default=./data/badger"`
	DatabaseURL       string `env:"DATABASE_URL"`

	CacheBackend    string        `env:"CACHE_BACKEND,default=memory"`
	CacheMaxEntries int64         `env:"CACHE_MAX_ENTRIES,default=10000"`
	RedisURL        string        `env:"REDIS_URL"`
	ChatCacheTTL    time.Duration `env:"CHAT_CACHE_TTL,default=5m"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	ConnectTimeout       time.Duration `env:"CONNECT_TIMEOUT,default=5s"`
	JoinPolicy           string        `env:"JOIN_POLICY,default=trust"`
	ResyncInterval       time.Duration `env:"RESYNC_INTERVAL,default=10s"`
	ResyncTimeout        time.Duration `env:"RESYNC_TIMEOUT,default=2s"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate checks the values go-env cannot: enums, cross-field
// requirements and positive durations.
func (c Config) Validate() error {
	switch c.MembershipBackend {
	case BackendBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("%w: BADGER_FILEPATH is required for the badger backend", errors.ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", errors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: MEMBERSHIP_BACKEND must be %q or %q, got %q",
			errors.ErrInvalidConfig, BackendBadger, BackendPostgres, c.MembershipBackend)
	}

	switch c.CacheBackend {
	case CacheMemory:
		if c.CacheMaxEntries <= 0 {
			return fmt.Errorf("%w: CACHE_MAX_ENTRIES must be positive", errors.ErrInvalidConfig)
		}
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis cache", errors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: CACHE_BACKEND must be %q or %q, got %q",
			errors.ErrInvalidConfig, CacheMemory, CacheRedis, c.CacheBackend)
	}

	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("%w: JWT_SECRET must be at least 16 bytes", errors.ErrInvalidConfig)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("%w: CONNECTION_BUFFER_SIZE must be positive", errors.ErrInvalidConfig)
	}

	for name, d := range map[string]time.Duration{
		"CHAT_CACHE_TTL":     c.ChatCacheTTL,
		"CONNECT_TIMEOUT":    c.ConnectTimeout,
		"RESYNC_INTERVAL":    c.ResyncInterval,
		"RESYNC_TIMEOUT":     c.ResyncTimeout,
		"HEARTBEAT_INTERVAL": c.HeartbeatInterval,
		"RESTART_INTERVAL":   c.RestartInterval,
		"SHUTDOWN_TIMEOUT":   c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", errors.ErrInvalidConfig, name, d)
		}
	}
	return nil
}
