package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type MemberSvc interface {
	Join(ctx context.Context, roomID, displayName string, conn domain.ConnID) (*service.JoinResult, error)
	Reconnect(ctx context.Context, roomID, displayName string, conn domain.ConnID) (*service.JoinResult, error)
	ExplicitLeave(ctx context.Context, conn domain.ConnID) error
	Disconnect(ctx context.Context, conn domain.ConnID)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, env domain.Envelope) error
}

type Options struct {
	PingEvery time.Duration
	ReadLimit int64
	SendQueue int
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	members  MemberSvc
	router   Dispatcher
	log      *slog.Logger

	pingEvery time.Duration
	readLimit int64
	sendQueue int
}

func NewServer(hub *Hub, members MemberSvc, router Dispatcher, opts Options, log *slog.Logger) *Server {
	if opts.PingEvery <= 0 {
		opts.PingEvery = 15 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:     hub,
		members: members,
		router:  router,
		log:     log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: opts.PingEvery,
		readLimit: opts.ReadLimit,
		sendQueue: opts.SendQueue,
	}
}

// WS endpoint: GET /ws. Комната выбирается кадром join/reconnect.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}

	// ctx живёт дольше запроса: Disconnect должен отработать и после отмены
	ctx := context.WithoutCancel(r.Context())
	c := newWsConn(conn, domain.ConnID(uuid.NewString()), s.sendQueue)
	s.hub.Register(c)
	c.Send(Message{Type: TypeConnected, Payload: ConnectedPayload{ConnectionID: c.id}})
	s.log.Debug("ws connected", "conn", c.id, "remote", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(ctx, c)

	// закрытие соединения: единственный сигнал отмены
	s.hub.Unregister(c.id)
	s.members.Disconnect(ctx, c.id)

	if err := c.Close(); err != nil {
		s.log.Debug("ws close failed", "conn", c.id, "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(s.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read failed", "conn", c.id, "err", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug("ws dropping non-json frame", "conn", c.id, "err", err)
			continue
		}
		s.handle(ctx, c, msg)
	}
}

func (s *Server) handle(ctx context.Context, c *wsConn, msg inbound) {
	switch msg.Type {
	case TypeJoin, TypeReconnect:
		var p JoinPayload
		if err := decode(msg.Payload, &p); err != nil {
			s.reply(c, TypeInvalidRequest, ErrorPayload{Error: "malformed payload"})
			return
		}
		if err := validate.Struct(p); err != nil {
			s.reply(c, TypeInvalidRequest, ErrorPayload{Error: "roomId and displayName are required"})
			return
		}
		var err error
		if msg.Type == TypeJoin {
			_, err = s.members.Join(ctx, p.RoomID, p.DisplayName, c.id)
		} else {
			_, err = s.members.Reconnect(ctx, p.RoomID, p.DisplayName, c.id)
		}
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNameTaken):
			s.reply(c, TypeNameTaken, NameTakenPayload{RoomID: p.RoomID, DisplayName: p.DisplayName})
		case errors.Is(err, domain.ErrInvalidRequest):
			s.reply(c, TypeInvalidRequest, ErrorPayload{Error: err.Error()})
		default:
			// неудачный reconnect клиенту не сообщается
			s.log.Debug("ws join rejected", "conn", c.id, "type", msg.Type, "err", err)
		}

	case TypeLeaveRoom:
		if err := s.members.ExplicitLeave(ctx, c.id); err != nil {
			s.log.Debug("ws leave-room ignored", "conn", c.id, "err", err)
		}

	case TypeSignal:
		var p SignalPayload
		if err := decode(msg.Payload, &p); err != nil {
			s.log.Debug("ws dropping malformed signal", "conn", c.id, "err", err)
			return
		}
		// отправитель всегда берётся из соединения
		_ = s.router.Dispatch(ctx, domain.Envelope{
			Kind:         domain.Kind(p.Kind),
			SenderConnID: c.id,
			TargetConnID: domain.ConnID(p.TargetConnectionID),
			Payload:      p.Payload,
		})

	default:
		s.log.Debug("ws unknown frame type", "conn", c.id, "type", msg.Type)
	}
}

func (s *Server) reply(c *wsConn, typ string, payload any) {
	c.Send(Message{Type: typ, Payload: payload})
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				s.log.Debug("ws write failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(raw, dst)
}

type wsConn struct {
	conn *websocket.Conn
	id   domain.ConnID

	send      chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, id domain.ConnID, queue int) *wsConn {
	return &wsConn{
		conn:   c,
		id:     id,
		send:   make(chan Message, queue),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() domain.ConnID { return c.id }

func (c *wsConn) Send(msg Message) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
