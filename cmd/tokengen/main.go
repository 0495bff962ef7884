package main

import (
	"chatroom/auth"
	"chatroom/domain"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the same environment as the presence server so the
// minted tokens verify against it.
type Config struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TTL       time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	Colours   bool          `envconfig:"TOKENGEN_COLOURS" default:"true"`
}

// tokengen mints a development token for a user id:
//
//	JWT_SECRET=... go run ./cmd/tokengen -user 7
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return err
	}
	userID := flag.Int64("user", 0, "user id written in the subject claim")
	ttl := flag.Duration("ttl", config.TTL, "token lifetime")
	flag.Parse()

	if !domain.UserID(*userID).Valid() {
		return fmt.Errorf("-user must be a positive id, got %d", *userID)
	}

	token, err := auth.NewIssuer([]byte(config.JWTSecret)).Issue(domain.UserID(*userID), *ttl)
	if err != nil {
		return err
	}

	header := fmt.Sprintf("user %d, expires %s", *userID, time.Now().Add(*ttl).UTC().Format(time.RFC3339))
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Fprintln(os.Stderr, header)
	fmt.Println(token)
	return nil
}
