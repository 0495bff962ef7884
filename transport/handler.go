package transport

import (
	"chatroom/auth"
	"chatroom/domain"
	"chatroom/errors"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Presence is the lifecycle surface the handler drives for each socket.
type Presence interface {
	OnConnect(ctx context.Context, connID domain.ConnectionID, creds domain.Credentials) error
	OnDisconnect(ctx context.Context, connID domain.ConnectionID, reason domain.DisconnectReason)
	Join(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) error
	Leave(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) error
	Publish(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID, payload func(sender domain.UserID) ([]byte, error)) error
	UserOf(connID domain.ConnectionID) (domain.UserID, bool)
}

type HandlerConfig struct {
	BufferSize     int
	ConnectTimeout time.Duration
}

// Handler upgrades HTTP requests to websocket sessions and turns socket
// lifecycle and inbound frames into presence events.
type Handler struct {
	log      *slog.Logger
	hub      *Hub
	presence Presence
	config   HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, hub *Hub, presence Presence, config HandlerConfig) *Handler {
	return &Handler{
		log:      log,
		hub:      hub,
		presence: presence,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// session holds the outcome of the connect sync, which runs concurrently
// with the read loop so a client leaving mid-sync can abort it.
type session struct {
	conn       *Connection
	connected  chan error
	connectErr error
	ready      bool
}

func (s *session) awaitConnect() error {
	if !s.ready {
		s.connectErr = <-s.connected
		s.ready = true
	}
	return s.connectErr
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFrom(r)
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := NewConnection(domain.ConnectionID(uuid.NewString()), ws, h.config.BufferSize)
	if err := h.hub.Attach(conn); err != nil {
		conn.Close(websocket.CloseTryAgainLater, "server shutting down")
		return
	}
	conn.Start()
	defer conn.Close(websocket.CloseNormalClosure, "")
	defer h.hub.Detach(conn.ID)

	ctx := context.WithoutCancel(r.Context())
	connectCtx, cancelConnect := context.WithTimeout(ctx, h.config.ConnectTimeout)
	defer cancelConnect()

	s := &session{conn: conn, connected: make(chan error, 1)}
	go func() {
		err := h.presence.OnConnect(connectCtx, conn.ID, creds)
		if err == nil {
			userID, _ := h.presence.UserOf(conn.ID)
			h.reply(conn, ResponseFrame{Type: FrameConnected, UserID: userID})
		}
		s.connected <- err
	}()

	reason := h.readLoop(ctx, s)
	cancelConnect()
	if err := s.awaitConnect(); err != nil {
		// Never registered, nothing to clean up.
		return
	}
	h.presence.OnDisconnect(ctx, conn.ID, reason)
}

func (h *Handler) readLoop(ctx context.Context, s *session) domain.DisconnectReason {
	for {
		_, data, err := s.conn.ws.ReadMessage()
		if err != nil {
			return h.disconnectReason(err)
		}
		if s.awaitConnect() != nil {
			return domain.ReasonClientClosed
		}
		h.dispatch(ctx, s.conn, data)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *Connection, data []byte) {
	var frame auth.RequestFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.reply(conn, ResponseFrame{Type: FrameError, Error: errors.ErrInvalidFrame.Error()})
		return
	}
	if err := auth.ValidateFrame(frame); err != nil {
		h.reply(conn, ResponseFrame{Type: FrameError, ChatID: domain.ChatID(frame.ChatID), Error: err.Error()})
		return
	}

	chatID := domain.ChatID(frame.ChatID)
	var err error
	switch frame.Type {
	case auth.FrameJoin:
		if err = h.presence.Join(ctx, conn.ID, chatID); err == nil {
			h.reply(conn, ResponseFrame{Type: FrameJoined, ChatID: chatID})
		}
	case auth.FrameLeave:
		if err = h.presence.Leave(ctx, conn.ID, chatID); err == nil {
			h.reply(conn, ResponseFrame{Type: FrameLeft, ChatID: chatID})
		}
	case auth.FrameSend:
		err = h.presence.Publish(ctx, conn.ID, chatID, func(sender domain.UserID) ([]byte, error) {
			msg := domain.NewMessage(chatID, sender, frame.Body, time.Now().UTC())
			return json.Marshal(ResponseFrame{Type: FrameMessage, ChatID: chatID, Message: &msg})
		})
	}
	if err != nil {
		h.log.Debug("Frame rejected", "connection_id", conn.ID, "chat_id", chatID, "type", frame.Type, "error", err)
		h.reply(conn, ResponseFrame{Type: FrameError, ChatID: chatID, Error: err.Error()})
	}
}

func (h *Handler) reply(conn *Connection, frame ResponseFrame) {
	if err := conn.Send(frame.Encode()); err != nil {
		h.log.Debug("Reply dropped", "connection_id", conn.ID, "type", frame.Type, "error", err)
	}
}

func (h *Handler) disconnectReason(err error) domain.DisconnectReason {
	switch {
	case h.hub.ShuttingDown():
		return domain.ReasonServerShutdown
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		return domain.ReasonClientClosed
	default:
		return domain.ReasonTransportError
	}
}

// credentialsFrom reads the bearer token from the Authorization header,
// falling back to the access_token query parameter browsers can set.
func credentialsFrom(r *http.Request) domain.Credentials {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}
	return domain.Credentials{Token: token}
}
