package echoapi

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core/presence"
)

const (
	TypingEvent = "typing"

	sendQueueSize = 64
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameSize  = 4096
)

var errSendQueueFull = errors.New("send queue full")

// socketChannel is a presence.Channel backed by a websocket connection.
// Events are queued and written by a dedicated goroutine, so Send never blocks.
type socketChannel struct {
	id        string
	conn      *websocket.Conn
	queue     chan presence.Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ presence.Channel = (*socketChannel)(nil)

func newSocketChannel(conn *websocket.Conn) *socketChannel {
	return &socketChannel{
		id:    uuid.New().String(),
		conn:  conn,
		queue: make(chan presence.Event, sendQueueSize),
		done:  make(chan struct{}),
	}
}

func (ch *socketChannel) ID() string { return ch.id }

func (ch *socketChannel) Send(ev presence.Event) error {
	select {
	case <-ch.done:
		return presence.ErrChannelClosed
	default:
	}
	select {
	case ch.queue <- ev:
		return nil
	default:
		return errSendQueueFull
	}
}

func (ch *socketChannel) close() {
	ch.closeOnce.Do(func() {
		close(ch.done)
		_ = ch.conn.Close()
	})
}

func (ch *socketChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ch.close()
	}()

	for {
		select {
		case <-ch.done:
			return
		case ev := <-ch.queue:
			_ = ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ch.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ch.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type inboundEvent struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type typingPayload struct {
	To string `json:"to"`
}

// readPump relays the inbound ephemeral events of accountID until the connection drops.
func (s *Server) readPump(ch *socketChannel, accountID string) {
	defer ch.close()

	ch.conn.SetReadLimit(maxFrameSize)
	_ = ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	ch.conn.SetPongHandler(func(string) error {
		return ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev inboundEvent
		if err := ch.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Debug(fmt.Sprintf("socket %s of %s: %v", ch.id, accountID, err))
			}
			return
		}

		switch ev.Name {
		case TypingEvent:
			var p typingPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil || p.To == "" {
				continue
			}
			s.Presence.ForwardEphemeral(accountID, p.To, TypingEvent, nil)
		default: // join is implicit on connect
		}
	}
}

// socket upgrades an authenticated request (token in the query string) to a live channel.
func (s *Server) socket(ctx echo.Context) error {
	claims, err := parseToken(s.Conf, ctx.QueryParam("token"))
	if err != nil {
		return err
	}
	if _, err = s.Accounts.GetByID(ctx.Request().Context(), claims.Subject); err != nil {
		return errors.Wrap(err, "finding account")
	}

	conn, err := s.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		s.Logger.Debug(fmt.Sprintf("upgrading socket of %s: %v", claims.Subject, err))
		return nil
	}

	ch := newSocketChannel(conn)
	s.Presence.Connect(claims.Subject, ch)
	defer s.Presence.Disconnect(ch.ID())

	go ch.writePump()
	s.readPump(ch, claims.Subject)
	return nil
}
