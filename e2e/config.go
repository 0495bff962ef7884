package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// PRESENCE_ADDR is host:port of a running presence server; empty skips the suite
	PresenceAddr string `envconfig:"PRESENCE_ADDR"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	// Two users seeded as members of E2E_CHAT_ID
	FirstUser  int64 `envconfig:"E2E_FIRST_USER" default:"7"`
	SecondUser int64 `envconfig:"E2E_SECOND_USER" default:"8"`
	ChatID     int64 `envconfig:"E2E_CHAT_ID" default:"3"`
	// E2E_DEBUG_JSON dumps every frame read from the socket
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
