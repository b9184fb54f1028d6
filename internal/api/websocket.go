package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/glyphmark/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
)

// Client is one WebSocket connection driving one session.
type Client struct {
	session *Session
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if s.cors.OriginAllowed(origin) {
		return true
	}
	logging.SecurityEvent("origin_rejected", "websocket", "origin", origin)
	return false
}

// handleWebSocket upgrades the connection and opens a session for it. The
// session is removed when the connection closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("websocket upgrade failed", "error", err)
		return
	}

	sess := s.sessions.Create()
	client := &Client{
		session: sess,
		conn:    conn,
		send:    make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	logging.WebSocketEvent("session_opened", s.sessions.Len(), "session", sess.ID)

	go client.writePump()
	client.readPump()

	s.sessions.Remove(sess.ID)
	logging.WebSocketEvent("session_closed", s.sessions.Len(), "session", sess.ID)
}

// readPump applies each incoming op and queues its reply. It owns send and
// closes it on exit.
func (c *Client) readPump() {
	defer close(c.send)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.reply(c.session.Apply(Op{Type: OpRender}))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("websocket unexpected close", "session", c.session.ID, "error", err)
			}
			return
		}

		var op Op
		if err := json.Unmarshal(data, &op); err != nil {
			if !c.reply(Reply{Type: "error", Session: c.session.ID, Code: "INVALID_MESSAGE", Message: err.Error()}) {
				return
			}
			continue
		}
		if !c.reply(c.session.Apply(op)) {
			return
		}
	}
}

// reply queues r, reporting false once the writer has stopped.
func (c *Client) reply(r Reply) bool {
	data, err := json.Marshal(r)
	if err != nil {
		logging.Error("failed to marshal session reply", "error", err)
		return true
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	}
}

// writePump writes one reply per frame and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
