package main

import (
	"bufio"
	"chatroom/auth"
	"chatroom/transport"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	ChatID        int64  `env:"CHAT_ID,default=1"`
	Token         string `env:"CHAT_TOKEN,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the presence server, prints every frame it receives and
// sends each stdin line to the configured chat.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := fmt.Sprintf("ws://%s/ws", config.ServerAddress)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url,
		http.Header{"Authorization": {"Bearer " + config.Token}})
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", url, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	log.Info(fmt.Sprintf(">>> Connected to %s, writing to chat %d (Ctrl+C to quit)...", url, config.ChatID))

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			frame := auth.RequestFrame{Type: auth.FrameSend, ChatID: config.ChatID, Body: scanner.Text()}
			if err := conn.WriteJSON(frame); err != nil {
				log.Warn("Send failed", "error", err)
				return
			}
		}
	}()

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var frame transport.ResponseFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				log.Warn("Undecodable frame", "error", err)
				continue
			}
			printFrame(frame)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		return exitOK, nil
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection error: %w", err)
	}
}

func printFrame(frame transport.ResponseFrame) {
	switch frame.Type {
	case transport.FrameMessage:
		if msg := frame.Message; msg != nil {
			fmt.Printf("[%s] chat-%d user %d: %s\n",
				msg.CreatedAt.Local().Format(time.TimeOnly), msg.ChatID, msg.SenderID, msg.Content)
		}
	case transport.FrameError:
		fmt.Printf("! %s\n", frame.Error)
	default:
		fmt.Printf("* %s chat=%d user=%d\n", frame.Type, frame.ChatID, frame.UserID)
	}
}
