package e2e

import (
	"chatroom/auth"
	"chatroom/domain"
	"chatroom/transport"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.PresenceAddr == "" {
		s.T().Skip("PRESENCE_ADDR not set")
	}
}

func (s *BaseWsSuite) Step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Token mints a token the server under test accepts.
func (s *BaseWsSuite) Token(userID int64) string {
	token, err := auth.NewIssuer([]byte(s.Config.JWTSecret)).Issue(domain.UserID(userID), time.Minute)
	s.Require().NoError(err)
	return token
}

func (s *BaseWsSuite) Dial(token string) *websocket.Conn {
	url := fmt.Sprintf("ws://%s/ws", s.Config.PresenceAddr)
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + token}})
	s.Require().NoError(err, "Failed to connect to presence server at "+url)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *BaseWsSuite) ReadFrame(t *testing.T, conn *websocket.Conn) transport.ResponseFrame {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		t.Log("FRAME:", string(data))
	}
	var frame transport.ResponseFrame
	s.Require().NoError(json.Unmarshal(data, &frame))
	return frame
}

func (s *BaseWsSuite) WriteFrame(conn *websocket.Conn, frame auth.RequestFrame) {
	s.Require().NoError(conn.WriteJSON(frame))
}
