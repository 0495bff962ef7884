package internal

import (
	"chatroom/errors"
	stderrors "errors"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults_From_Environ(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("PORT", "9000")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(9000, config.Port)
	req.Equal(BackendBadger, config.MembershipBackend)
	req.Equal(CacheMemory, config.CacheBackend)
	req.Equal("trust", config.JoinPolicy)
	req.Equal(5*time.Minute, config.ChatCacheTTL)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.NoError(config.Validate())
}

func TestConfig_Missing_Secret_Fails(t *testing.T) {
	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			JWTSecret:            "0123456789abcdef",
			MembershipBackend:    BackendBadger,
			BadgerFilepath:       "/tmp/badger",
			CacheBackend:         CacheMemory,
			CacheMaxEntries:      100,
			ChatCacheTTL:         time.Minute,
			ConnectionBufferSize: 8,
			ConnectTimeout:       time.Second,
			ResyncInterval:       time.Second,
			ResyncTimeout:        time.Second,
			HeartbeatInterval:    time.Second,
			RestartInterval:      time.Second,
			ShutdownTimeout:      time.Second,
		}
	}

	tests := []struct {
		description string
		modify      func(c *Config)
		wantErr     bool
	}{
		{"Should accept a complete badger config", func(c *Config) {}, false},
		{"Should accept postgres with a url", func(c *Config) {
			c.MembershipBackend = BackendPostgres
			c.DatabaseURL = "postgres://localhost/chatroom"
		}, false},
		{"Should accept redis with a url", func(c *Config) {
			c.CacheBackend = CacheRedis
			c.RedisURL = "redis://localhost:6379/0"
		}, false},
		{"Should reject an unknown backend", func(c *Config) { c.MembershipBackend = "mysql" }, true},
		{"Should reject postgres without a url", func(c *Config) { c.MembershipBackend = BackendPostgres }, true},
		{"Should reject an unknown cache", func(c *Config) { c.CacheBackend = "memcached" }, true},
		{"Should reject redis without a url", func(c *Config) { c.CacheBackend = CacheRedis }, true},
		{"Should reject a short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"Should reject an empty send buffer", func(c *Config) { c.ConnectionBufferSize = 0 }, true},
		{"Should reject a zero duration", func(c *Config) { c.ResyncInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			config := valid()
			tt.modify(&config)

			err := config.Validate()

			if tt.wantErr {
				req.True(stderrors.Is(err, errors.ErrInvalidConfig))
			} else {
				req.NoError(err)
			}
		})
	}
}
