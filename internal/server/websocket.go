package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxChatFrame caps an incoming chat frame.
	maxChatFrame = 16 << 10

	// eventBuffer is the per-client queue of pending events.
	eventBuffer = 256

	// defaultReplay is how many past events a new event client receives.
	defaultReplay = 50
)

// handleChatSocket runs one chat conversation per connection. Each text frame
// is a message; each reply is the processing result. Frames without a session
// id use the connection's own session.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("chat upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.log.Debug().Str("session", sessionID).Msg("chat client connected")

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxChatFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("session", sessionID).Msg("chat read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg orchestrator.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := write(errorBody{Error: "invalid message: " + err.Error()}); err != nil {
				return
			}
			continue
		}
		if msg.SessionID == "" {
			msg.SessionID = sessionID
		}

		if err := write(s.engine.Process(r.Context(), msg)); err != nil {
			return
		}
	}
}

// handleEventSocket streams bus events as JSON. The client first receives up
// to ?replay=N past events (default 50, at most eventBuffer), then live ones.
// A client too slow to keep its buffer drained is disconnected.
func (s *Server) handleEventSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("events upgrade failed")
		return
	}

	send := make(chan []byte, eventBuffer)

	replay := defaultReplay
	if v := r.URL.Query().Get("replay"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			replay = n
		}
	}
	replay = min(replay, eventBuffer)
	if replay > 0 {
		for _, ev := range s.bus.History(replay) {
			if data, err := json.Marshal(ev); err == nil {
				select {
				case send <- data:
				default:
				}
			}
		}
	}

	var (
		mu     sync.Mutex
		closed bool
	)
	closeSend := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(send)
		}
	}

	subID := s.bus.Subscribe("", func(ev bus.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case send <- data:
		default:
			s.log.Warn().Msg("event client too slow, disconnecting")
			closed = true
			close(send)
		}
	})

	go s.eventWritePump(conn, send)
	s.eventReadPump(conn)

	if subID != "" {
		_ = s.bus.Unsubscribe(subID)
	}
	closeSend()
}

// eventReadPump discards incoming frames and keeps the read deadline alive.
func (s *Server) eventReadPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) eventWritePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
